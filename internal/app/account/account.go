/*
Package account holds persisted member accounts and the Store interface
the session core consumes.

An Account survives disconnects. Identity id and email are globally
unique across a Store; Create and RenameID enforce that atomically.
*/
package account

import (
	"context"
	"errors"
)

// Sentinel outcomes of store operations.
var (
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")

	// ErrIDTaken is returned when the identity id is already in use.
	ErrIDTaken = errors.New("account id already in use")

	// ErrEmailTaken is returned when the email is already in use.
	ErrEmailTaken = errors.New("account email already in use")
)

// Account is a persisted member account.
type Account struct {
	// ID is the identity id, unique across the store.
	ID string

	// Name is the display name.
	Name string

	// AvatarExt is the file extension of the stored avatar, empty when none.
	AvatarExt string

	// Email is unique across the store.
	Email string

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string

	// Banned blocks the account from completing login.
	Banned bool

	// Ext carries open-ended collaborator data. The core itself only
	// uses the typed fields above.
	Ext map[string]string
}

// Clone returns a deep copy, used to snapshot an account before a
// persistence call so no registry lock is held across I/O.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}

	cp := *a
	if a.Ext != nil {
		cp.Ext = make(map[string]string, len(a.Ext))
		for k, v := range a.Ext {
			cp.Ext[k] = v
		}
	}
	return &cp
}

// Store persists accounts. Implementations must enforce id and email
// uniqueness atomically: a concurrent Create with the same email yields
// exactly one success and one ErrEmailTaken.
type Store interface {
	// ByID returns the account with the given identity id, or ErrNotFound.
	ByID(ctx context.Context, id string) (*Account, error)

	// ByEmail returns the account with the given email, or ErrNotFound.
	ByEmail(ctx context.Context, email string) (*Account, error)

	// List returns all accounts.
	List(ctx context.Context) ([]*Account, error)

	// Create inserts a new account, failing with ErrIDTaken or
	// ErrEmailTaken on conflict.
	Create(ctx context.Context, acct *Account) error

	// Save persists the current state of an existing account, keyed by
	// its id. Fails with ErrNotFound for unknown accounts and
	// ErrEmailTaken when an email change collides.
	Save(ctx context.Context, acct *Account) error

	// RenameID changes an account's identity id, failing with
	// ErrNotFound or ErrIDTaken.
	RenameID(ctx context.Context, oldID, newID string) error

	// Close releases store resources.
	Close()
}
