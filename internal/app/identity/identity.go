/*
Package identity defines who a connected participant is.

A User is a tagged union of the two session variants: a Guest with no
backing account, or a Member owning a persisted Account. Exactly one
User is bound to a connection at a time, and the variant is fixed for
the lifetime of the session.
*/
package identity

import "neochat/internal/app/account"

// Kind is the session variant tag.
type Kind int

const (
	// KindGuest is an unregistered participant without a backing account.
	KindGuest Kind = iota

	// KindMember is a registered participant owning an Account.
	KindMember
)

// String returns the wire representation of the variant.
func (k Kind) String() string {
	if k == KindMember {
		return "member"
	}
	return "guest"
}

// Identity is the mutable public identity of a participant.
type Identity struct {
	// ID is unique among accounts and may not carry the guest prefix
	// for members.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// AvatarExt is the file extension of the stored avatar, empty when none.
	AvatarExt string `json:"avatarExt,omitempty"`
}

// User is an authenticated session participant.
type User struct {
	// Kind selects the variant; dispatch by matching on it.
	Kind Kind

	// Identity is the session's public identity. For members it mirrors
	// the account fields and is kept in sync on edits.
	Identity Identity

	// Account is the owned account for KindMember, nil for guests.
	// The joined-channel set lives in the engine's channel registry,
	// which indexes it by client id under its own lock.
	Account *account.Account

	// Ext carries open-ended collaborator data attached to the session.
	Ext map[string]string
}

// NewGuest builds a Guest session user.
func NewGuest(id, name string) *User {
	return &User{
		Kind:     KindGuest,
		Identity: Identity{ID: id, Name: name},
	}
}

// NewMember builds a Member session user owning the given account.
func NewMember(acct *account.Account) *User {
	return &User{
		Kind: KindMember,
		Identity: Identity{
			ID:        acct.ID,
			Name:      acct.Name,
			AvatarExt: acct.AvatarExt,
		},
		Account: acct,
	}
}

// IsMember reports whether the user is the Member variant.
func (u *User) IsMember() bool {
	return u != nil && u.Kind == KindMember
}
