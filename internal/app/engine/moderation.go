/*
Package engine implements the package-dispatch protocol engine.

This file holds the moderation handlers: kick, ban, unban, and the
account list pushed to sessions holding the view permission.
*/
package engine

import (
	"errors"

	"neochat/internal/app/account"
	"neochat/internal/app/protocol"
)

// accountList loads the moderation view of every stored account.
func (e *Engine) accountList() ([]protocol.AccountInfo, error) {
	ctx, cancel := storeCtx()
	defer cancel()

	accounts, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]protocol.AccountInfo, 0, len(accounts))
	for _, acct := range accounts {
		infos = append(infos, protocol.AccountInfo{
			ID:        acct.ID,
			Name:      acct.Name,
			AvatarExt: acct.AvatarExt,
			Email:     acct.Email,
			Banned:    acct.Banned,
		})
	}
	return infos, nil
}

// sendAccountList pushes the account list to a target.
func (e *Engine) sendAccountList(target protocol.Target) {
	infos, err := e.accountList()
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to load accounts for list update.")
		return
	}

	pkg, err := protocol.New(protocol.TypeAccountListUpdate, protocol.AccountListUpdateContent{Accounts: infos})
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to build account list update.")
		return
	}
	e.Send(target, pkg)
}

// refreshModeratorAccountLists pushes the account list to every
// connected session holding the view permission.
func (e *Engine) refreshModeratorAccountLists() {
	for _, c := range e.connections.All() {
		if e.groups.HasPermission(c.ID, PermModerateViewAccount) {
			e.sendAccountList(protocol.To(c.ID))
		}
	}
}

// punishmentPermission maps a moderation action to the permission
// guarding it.
func punishmentPermission(action protocol.PunishmentAction) (string, bool) {
	switch action {
	case protocol.PunishmentKick:
		return PermModerateKick, true
	case protocol.PunishmentBan:
		return PermModerateBan, true
	default:
		return "", false
	}
}

// handleCreatePunishment kicks or bans a target user. The request is
// echoed back with the Result field filled; unauthorized attempts are
// answered explicitly.
func (e *Engine) handleCreatePunishment(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("CreatePunishment without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.CreatePunishmentContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid CREATE_PUNISHMENT content")
		return
	}

	permission, known := punishmentPermission(content.Action)
	if !known || !e.groups.HasPermission(c.ID, permission) {
		content.Result = protocol.PunishmentNotAuthorized
		e.reply(c, protocol.TypeCreatePunishment, content)
		return
	}

	content.Result = e.applyPunishment(content)
	e.reply(c, protocol.TypeCreatePunishment, content)

	if content.Result == protocol.PunishmentSuccess {
		e.logger.Info().
			Str("actor_id", user.Identity.ID).
			Str("target_id", content.TargetID).
			Str("action", string(content.Action)).
			Msg("Punishment applied.")
	}
}

// applyPunishment executes a kick or ban against the target. A kick
// needs a live target session; a ban needs a stored account and also
// disconnects the target if connected.
func (e *Engine) applyPunishment(content protocol.CreatePunishmentContent) protocol.PunishmentResult {
	reason := content.Reason
	if reason == "" {
		reason = string(content.Action)
	}

	switch content.Action {
	case protocol.PunishmentKick:
		clientID, online := e.sessions.ClientByUser(content.TargetID)
		if !online {
			return protocol.PunishmentNotFound
		}
		if target := e.connections.Get(clientID); target != nil {
			e.forceDisconnect(target, reason)
		}
		return protocol.PunishmentSuccess

	case protocol.PunishmentBan:
		ctx, cancel := storeCtx()
		defer cancel()

		acct, err := e.store.ByID(ctx, content.TargetID)
		if errors.Is(err, account.ErrNotFound) {
			return protocol.PunishmentNotFound
		}
		if err != nil {
			e.logger.Error().Err(err).Str("target_id", content.TargetID).Msg("Failed to load account for ban.")
			return protocol.PunishmentServerError
		}

		acct.Banned = true
		if err := e.store.Save(ctx, acct); err != nil {
			e.logger.Error().Err(err).Str("target_id", content.TargetID).Msg("Failed to persist ban.")
			return protocol.PunishmentServerError
		}

		if clientID, online := e.sessions.ClientByUser(content.TargetID); online {
			if target := e.connections.Get(clientID); target != nil {
				e.forceDisconnect(target, reason)
			}
		}

		e.refreshModeratorAccountLists()
		return protocol.PunishmentSuccess
	}

	return protocol.PunishmentNotFound
}

// handleDeletePunishment lifts a ban. The request is echoed back with
// the Result field filled.
func (e *Engine) handleDeletePunishment(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("DeletePunishment without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.DeletePunishmentContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid DELETE_PUNISHMENT content")
		return
	}

	if !e.groups.HasPermission(c.ID, PermModerateUnban) {
		content.Result = protocol.PunishmentNotAuthorized
		e.reply(c, protocol.TypeDeletePunishment, content)
		return
	}

	content.Result = e.liftBan(content.TargetID)
	e.reply(c, protocol.TypeDeletePunishment, content)

	if content.Result == protocol.PunishmentSuccess {
		e.logger.Info().
			Str("actor_id", user.Identity.ID).
			Str("target_id", content.TargetID).
			Msg("Ban lifted.")
	}
}

// liftBan clears the banned flag on the target account.
func (e *Engine) liftBan(targetID string) protocol.PunishmentResult {
	ctx, cancel := storeCtx()
	defer cancel()

	acct, err := e.store.ByID(ctx, targetID)
	if errors.Is(err, account.ErrNotFound) {
		return protocol.PunishmentNotFound
	}
	if err != nil {
		e.logger.Error().Err(err).Str("target_id", targetID).Msg("Failed to load account for unban.")
		return protocol.PunishmentServerError
	}

	acct.Banned = false
	if err := e.store.Save(ctx, acct); err != nil {
		e.logger.Error().Err(err).Str("target_id", targetID).Msg("Failed to persist unban.")
		return protocol.PunishmentServerError
	}

	e.refreshModeratorAccountLists()
	return protocol.PunishmentSuccess
}
