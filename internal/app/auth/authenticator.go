/*
Package auth validates guest and member logins and performs account
registration.

The Authenticator is a collaborator of the session core: it owns
credential verification and store-level uniqueness, while session
uniqueness (one live session per account) stays with the engine's
session registry.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"neochat/internal/app/account"
	"neochat/internal/app/identity"
	"neochat/internal/app/protocol"
	"neochat/internal/pkg/randx"
)

const (
	// storeTimeout bounds every account-store call made during
	// authentication. Expiry is a retryable failure, not data loss.
	storeTimeout = 5 * time.Second

	minPasswordLen = 6
	maxPasswordLen = 50
)

// RegisterSpec carries the fields of a registration request.
type RegisterSpec struct {
	ID       string
	Name     string
	Email    string
	Password string
}

// Authenticator validates logins and registers accounts.
type Authenticator interface {
	// Guest produces a fresh guest user with a generated identity.
	Guest(ctx context.Context, name string) (*identity.User, error)

	// Member validates member credentials. The returned user is non-nil
	// only for AuthSuccess. A banned account with matching credentials
	// yields AuthUnauthorized.
	Member(ctx context.Context, id, password string) (protocol.AuthResult, *identity.User, error)

	// Register creates a new account and member as an atomic pair.
	// Conflicts yield AuthEmailInUse or AuthIDInUse with a nil user.
	Register(ctx context.Context, spec RegisterSpec) (protocol.AuthResult, *identity.User, error)
}

// Service is the default Authenticator backed by an account.Store and
// bcrypt password hashes.
type Service struct {
	store account.Store
}

// NewService returns an Authenticator over the given store.
func NewService(store account.Store) *Service {
	return &Service{store: store}
}

// Guest produces a guest user with a server-generated "Guest-" identity.
func (s *Service) Guest(ctx context.Context, name string) (*identity.User, error) {
	id, err := randx.GuestID()
	if err != nil {
		return nil, fmt.Errorf("generate guest id: %w", err)
	}

	if name == "" {
		name = id
	}

	return identity.NewGuest(id, name), nil
}

// Member validates credentials against the stored account.
func (s *Service) Member(ctx context.Context, id, password string) (protocol.AuthResult, *identity.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	acct, err := s.store.ByID(ctx, id)
	if errors.Is(err, account.ErrNotFound) {
		return protocol.AuthUnknownUser, nil, nil
	}
	if err != nil {
		return protocol.AuthServerError, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return protocol.AuthIncorrectPassword, nil, nil
	}

	// Credentials matched, but a banned account may not complete login.
	if acct.Banned {
		return protocol.AuthUnauthorized, nil, nil
	}

	return protocol.AuthSuccess, identity.NewMember(acct), nil
}

// Register creates the account and member pair. Either both are created
// or neither: the store insert is the single commit point, and the
// member is only built from the committed account.
func (s *Service) Register(ctx context.Context, spec RegisterSpec) (protocol.AuthResult, *identity.User, error) {
	if randx.HasGuestPrefix(spec.ID) || spec.ID == "" {
		return protocol.AuthIDInUse, nil, nil
	}

	if _, err := mail.ParseAddress(spec.Email); err != nil {
		return protocol.AuthEmailInUse, nil, nil
	}

	if n := utf8.RuneCountInString(spec.Password); n < minPasswordLen || n > maxPasswordLen {
		return protocol.AuthIncorrectPassword, nil, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(spec.Password), bcrypt.DefaultCost)
	if err != nil {
		return protocol.AuthServerError, nil, err
	}

	name := spec.Name
	if name == "" {
		name = spec.ID
	}

	acct := &account.Account{
		ID:           spec.ID,
		Name:         name,
		Email:        spec.Email,
		PasswordHash: string(hashed),
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	err = s.store.Create(ctx, acct)
	switch {
	case errors.Is(err, account.ErrIDTaken):
		return protocol.AuthIDInUse, nil, nil
	case errors.Is(err, account.ErrEmailTaken):
		return protocol.AuthEmailInUse, nil, nil
	case err != nil:
		return protocol.AuthServerError, nil, err
	}

	return protocol.AuthSuccess, identity.NewMember(acct), nil
}
