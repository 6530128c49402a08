/*
Package engine implements the package-dispatch protocol engine.

This file holds the profile handlers: EditProfile for the name, id,
email, and password keys, and SetAvatar for a freshly uploaded avatar.
*/
package engine

import (
	"errors"
	"net/mail"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"neochat/internal/app/account"
	"neochat/internal/app/hook"
	"neochat/internal/app/identity"
	"neochat/internal/app/protocol"
	"neochat/internal/pkg/randx"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 50
)

// handleEditProfile applies a single-key profile edit. Edits that touch
// the account are persisted before the in-memory identity changes, so a
// store failure leaves the session untouched.
func (e *Engine) handleEditProfile(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("EditProfile without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.EditProfileContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid EDIT_PROFILE content")
		return
	}

	var hookErr error
	switch content.Key {
	case "name":
		hookErr = e.editName(c, user, content.Value)
	case "id":
		hookErr = e.editID(c, user, content.Value)
	case "email":
		hookErr = e.editEmail(user, content.Value)
	case "password":
		hookErr = e.editPassword(user, content.CurrentPassword, content.Value)
	default:
		hookErr = errRejected
	}

	if errors.Is(hookErr, hook.ErrCancelled) {
		return
	}

	// Secrets never travel back in the echo.
	echo := content
	echo.CurrentPassword = ""
	if echo.Key == "password" {
		echo.Value = ""
	}

	e.reply(c, protocol.TypeEditProfileResponse, protocol.EditProfileResponseContent{
		OK:      hookErr == nil,
		Request: echo,
	})

	// Account edits change what the moderation account list shows.
	if hookErr == nil && user.IsMember() && content.Key != "password" {
		e.refreshModeratorAccountLists()
	}
}

// editName changes the display name, persisting it for members.
func (e *Engine) editName(c *Client, user *identity.User, name string) error {
	if name == "" {
		return errRejected
	}

	event := &IdentityEvent{UserID: user.Identity.ID, Key: "name"}
	return e.hooks.Do(hook.IdentityEdit, event, func() error {
		if user.IsMember() {
			edited := user.Account.Clone()
			edited.Name = name

			ctx, cancel := storeCtx()
			defer cancel()
			if err := e.store.Save(ctx, edited); err != nil {
				e.logger.Error().Err(err).Str("account_id", edited.ID).Msg("Failed to persist name edit.")
				return errRejected
			}
			user.Account.Name = name
		}

		user.Identity.Name = name
		c.logger.Info().Str("user_id", user.Identity.ID).Msg("Display name edited.")
		return nil
	})
}

// editID renames a member account. The new id may not carry the guest
// prefix, and the session registry is rekeyed on success.
func (e *Engine) editID(c *Client, user *identity.User, newID string) error {
	if !user.IsMember() || newID == "" || randx.HasGuestPrefix(newID) || newID == user.Identity.ID {
		return errRejected
	}

	oldID := user.Identity.ID
	event := &IdentityEvent{UserID: oldID, Key: "id"}
	return e.hooks.Do(hook.IdentityEdit, event, func() error {
		ctx, cancel := storeCtx()
		defer cancel()
		if err := e.store.RenameID(ctx, oldID, newID); err != nil {
			if !errors.Is(err, account.ErrIDTaken) {
				e.logger.Error().Err(err).Str("account_id", oldID).Msg("Failed to persist id edit.")
			}
			return errRejected
		}

		e.sessions.RenameUser(oldID, newID)
		user.Account.ID = newID
		user.Identity.ID = newID

		c.logger.Info().Str("old_id", oldID).Str("new_id", newID).Msg("Account id edited.")
		return nil
	})
}

// editEmail changes a member's email after format and uniqueness checks.
func (e *Engine) editEmail(user *identity.User, email string) error {
	if !user.IsMember() {
		return errRejected
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errRejected
	}

	event := &AccountEvent{AccountID: user.Identity.ID, Key: "email"}
	return e.hooks.Do(hook.AccountEdit, event, func() error {
		edited := user.Account.Clone()
		edited.Email = email

		ctx, cancel := storeCtx()
		defer cancel()
		if err := e.store.Save(ctx, edited); err != nil {
			if !errors.Is(err, account.ErrEmailTaken) {
				e.logger.Error().Err(err).Str("account_id", edited.ID).Msg("Failed to persist email edit.")
			}
			return errRejected
		}

		user.Account.Email = email
		return nil
	})
}

// editPassword replaces a member's password hash after the current
// password is verified against the stored hash.
func (e *Engine) editPassword(user *identity.User, current, next string) error {
	if !user.IsMember() {
		return errRejected
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Account.PasswordHash), []byte(current)) != nil {
		return errRejected
	}
	if n := utf8.RuneCountInString(next); n < minPasswordLen || n > maxPasswordLen {
		return errRejected
	}

	event := &AccountEvent{AccountID: user.Identity.ID, Key: "password"}
	return e.hooks.Do(hook.AccountEdit, event, func() error {
		hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return errRejected
		}

		edited := user.Account.Clone()
		edited.PasswordHash = string(hashed)

		ctx, cancel := storeCtx()
		defer cancel()
		if err := e.store.Save(ctx, edited); err != nil {
			e.logger.Error().Err(err).Str("account_id", edited.ID).Msg("Failed to persist password edit.")
			return errRejected
		}

		user.Account.PasswordHash = edited.PasswordHash
		return nil
	})
}

// handleSetAvatar records the extension of an avatar the client just
// uploaded through the HTTP avatar endpoint.
func (e *Engine) handleSetAvatar(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("SetAvatar without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.SetAvatarContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid SET_AVATAR content")
		return
	}

	event := &IdentityEvent{UserID: user.Identity.ID, Key: "avatar"}
	hookErr := e.hooks.Do(hook.IdentityEdit, event, func() error {
		if user.IsMember() {
			edited := user.Account.Clone()
			edited.AvatarExt = content.Extension

			ctx, cancel := storeCtx()
			defer cancel()
			if err := e.store.Save(ctx, edited); err != nil {
				e.logger.Error().Err(err).Str("account_id", edited.ID).Msg("Failed to persist avatar edit.")
				return errRejected
			}
			user.Account.AvatarExt = content.Extension
		}

		user.Identity.AvatarExt = content.Extension
		return nil
	})

	if hookErr == nil {
		c.logger.Info().Str("user_id", user.Identity.ID).Str("extension", content.Extension).Msg("Avatar updated.")
		if user.IsMember() {
			e.refreshModeratorAccountLists()
		}
	}
}
