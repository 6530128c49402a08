/*
Package engine implements the package-dispatch protocol engine.

This file holds the session lifecycle handlers: Debug, Meta, the three
login paths (guest, member, register), and LoginFinished.
*/
package engine

import (
	"errors"

	"neochat/internal/app/auth"
	"neochat/internal/app/hook"
	"neochat/internal/app/identity"
	"neochat/internal/app/protocol"
	"neochat/internal/pkg/auth/jwt"
)

// authRegisterSpec maps the wire content onto the authenticator's spec.
func authRegisterSpec(c protocol.RegisterContent) auth.RegisterSpec {
	return auth.RegisterSpec{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Password: c.Password,
	}
}

func (e *Engine) handleDebug(c *Client, pkg protocol.Package) {
	content, err := protocol.Decode[protocol.DebugContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid DEBUG content")
		return
	}

	e.logger.Debug().Str("client_id", c.ID).Str("message", content.Message).Msg("Debug package received.")
}

// handleMeta answers with the live server settings; the settings
// provider is read per request, so edits take effect immediately.
func (e *Engine) handleMeta(c *Client, pkg protocol.Package) {
	srv := e.settings.Server()

	e.reply(c, protocol.TypeMetaResponse, protocol.MetaResponseContent{
		ServerName:          srv.ServerName,
		GuestsAllowed:       srv.GuestsAllowed,
		RegistrationAllowed: srv.RegistrationAllowed,
	})
}

// handleGuestLogin authenticates a guest session. Only valid while no
// user is bound and guest logins are enabled; an ineligible attempt is
// dropped without a response, matching the gate semantics of the
// before-receive hook.
func (e *Engine) handleGuestLogin(c *Client, pkg protocol.Package) {
	if e.sessions.UserByClient(c.ID) != nil {
		c.logger.Warn().Msg("Guest login on a client that already has a session, ignoring.")
		return
	}

	if !e.settings.Server().GuestsAllowed {
		c.logger.Info().Msg("Guest login rejected: guest logins are disabled.")
		return
	}

	content, err := protocol.Decode[protocol.GuestLoginContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid GUEST_LOGIN content")
		return
	}

	ctx, cancel := storeCtx()
	defer cancel()

	user, err := e.auth.Guest(ctx, content.Name)
	if err != nil {
		e.logger.Error().Err(err).Msg("Guest authentication failed.")
		e.reply(c, protocol.TypeLoginResponse, protocol.LoginResponseContent{Result: protocol.AuthServerError})
		return
	}

	e.completeLogin(c, user)
}

// handleMemberLogin authenticates a member session. Each failure maps to
// a distinct rejection. A live session elsewhere is torn down first; the
// rejection only surfaces when the takeover fails.
func (e *Engine) handleMemberLogin(c *Client, pkg protocol.Package) {
	if e.sessions.UserByClient(c.ID) != nil {
		c.logger.Warn().Msg("Member login on a client that already has a session, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.MemberLoginContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid MEMBER_LOGIN content")
		return
	}

	ctx, cancel := storeCtx()
	defer cancel()

	result, user, err := e.auth.Member(ctx, content.ID, content.Password)
	if err != nil {
		e.logger.Error().Err(err).Str("member_id", content.ID).Msg("Member authentication failed.")
	}

	if result != protocol.AuthSuccess {
		e.reply(c, protocol.TypeLoginResponse, protocol.LoginResponseContent{Result: result})
		return
	}

	if staleID, ok := e.sessions.ClientByUser(user.Identity.ID); ok {
		if stale := e.connections.Get(staleID); stale != nil {
			c.logger.Warn().
				Str("member_id", user.Identity.ID).
				Str("stale_client_id", staleID).
				Msg("Member already connected, closing stale session for replacement.")
			e.forceDisconnect(stale, "Signed in from another connection.")
		}

		if _, still := e.sessions.ClientByUser(user.Identity.ID); still {
			e.reply(c, protocol.TypeLoginResponse, protocol.LoginResponseContent{Result: protocol.AuthExistingSession})
			return
		}
	}

	e.completeLogin(c, user)
}

// handleRegister creates an account and member as an atomic pair: both
// or neither reach their registries. Registration must be enabled.
func (e *Engine) handleRegister(c *Client, pkg protocol.Package) {
	if e.sessions.UserByClient(c.ID) != nil {
		c.logger.Warn().Msg("Register on a client that already has a session, ignoring.")
		return
	}

	if !e.settings.Server().RegistrationAllowed {
		c.logger.Info().Msg("Registration rejected: registration is disabled.")
		return
	}

	content, err := protocol.Decode[protocol.RegisterContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid REGISTER content")
		return
	}

	ctx, cancel := storeCtx()
	defer cancel()

	var (
		result protocol.AuthResult
		user   *identity.User
	)

	event := &AccountEvent{AccountID: content.ID}
	hookErr := e.hooks.Do(hook.AccountCreate, event, func() error {
		var regErr error
		result, user, regErr = e.auth.Register(ctx, authRegisterSpec(content))
		if regErr != nil {
			e.logger.Error().Err(regErr).Str("account_id", content.ID).Msg("Registration failed.")
		}
		if result != protocol.AuthSuccess {
			return errRejected
		}
		return nil
	})

	if errors.Is(hookErr, hook.ErrCancelled) {
		c.logger.Info().Str("account_id", content.ID).Msg("Registration vetoed by before hook.")
		return
	}
	if errors.Is(hookErr, errRejected) {
		e.reply(c, protocol.TypeLoginResponse, protocol.LoginResponseContent{Result: result})
		return
	}

	e.completeLogin(c, user)
}

// completeLogin binds the authenticated user under the login hook pair
// and answers with the success response carrying the session token.
func (e *Engine) completeLogin(c *Client, user *identity.User) {
	event := &LoginEvent{ClientID: c.ID, User: user}
	err := e.hooks.Do(hook.Login, event, func() error {
		return e.sessions.Bind(c.ID, user)
	})

	if errors.Is(err, hook.ErrCancelled) {
		c.logger.Info().Str("user_id", user.Identity.ID).Msg("Login vetoed by before hook.")
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", user.Identity.ID).Msg("Failed to bind session.")
		e.reply(c, protocol.TypeLoginResponse, protocol.LoginResponseContent{Result: protocol.AuthExistingSession})
		return
	}

	token, err := jwt.GenerateToken(&jwt.Payload{
		ID:       user.Identity.ID,
		UserType: user.Kind.String(),
	}, e.jwtSecret, jwt.SessionExpiration)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to generate session token.")
	}

	ident := user.Identity
	e.reply(c, protocol.TypeLoginResponse, protocol.LoginResponseContent{
		Result:   protocol.AuthSuccess,
		Identity: &ident,
		Token:    token,
	})
}

// handleLoginFinished is the client's "I'm ready" signal: assign default
// groups, join the main channel, and push the permission catalog. This
// is the transition to the channel-joined state.
func (e *Engine) handleLoginFinished(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("LoginFinished without a bound user, ignoring.")
		return
	}

	if !e.sessions.MarkChannelJoined(c.ID) {
		c.logger.Warn().Msg("LoginFinished on an already finished session, ignoring.")
		return
	}

	switch user.Kind {
	case identity.KindGuest:
		e.groups.AddMember(GroupGuests, c.ID)
	case identity.KindMember:
		if !e.groups.MemberOfAny(c.ID) {
			e.groups.AddMember(GroupMembers, c.ID)
		}
	}

	if result := e.channels.Join(c.ID, MainChannelID, ""); result != protocol.ChannelSuccess {
		c.logger.Warn().Str("result", string(result)).Msg("Main channel join failed.")
	}

	e.reply(c, protocol.TypeKnownPermissionsUpdate, protocol.KnownPermissionsUpdateContent{
		Groups: e.groups.Catalog(),
	})

	if e.groups.HasPermission(c.ID, PermModerateViewAccount) {
		e.sendAccountList(protocol.To(c.ID))
	}

	e.logger.Info().
		Str("client_id", c.ID).
		Str("user_id", user.Identity.ID).
		Str("user_type", user.Kind.String()).
		Msg("Login finished, user joined main channel.")
}
