/*
Package engine implements the package-dispatch protocol engine.

This file holds the settings handlers. Settings edits take effect
immediately: the provider is read fresh by Meta and the login gates.
*/
package engine

import (
	"neochat/internal/app/protocol"
)

// handleOpenSettings returns the settings model for a scope. Unknown
// scopes are reported with Found=false.
func (e *Engine) handleOpenSettings(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("OpenSettings without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.OpenSettingsContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid OPEN_SETTINGS content")
		return
	}

	if !e.groups.HasPermission(c.ID, PermSettingsEdit) {
		e.reply(c, protocol.TypeOpenSettingsResponse, protocol.OpenSettingsResponseContent{
			Scope: content.Scope,
			Found: false,
		})
		return
	}

	model, found := e.settings.Open(content.Scope)
	e.reply(c, protocol.TypeOpenSettingsResponse, protocol.OpenSettingsResponseContent{
		Scope: content.Scope,
		Found: found,
		Model: model,
	})
}

// handleEditSettings applies an edited settings model. The edit is
// rejected with a reason when the caller lacks the permission, the
// scope is unknown, or the model fails validation.
func (e *Engine) handleEditSettings(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("EditSettings without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.EditSettingsContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid EDIT_SETTINGS content")
		return
	}

	if !e.groups.HasPermission(c.ID, PermSettingsEdit) {
		e.reply(c, protocol.TypeEditSettingsResponse, protocol.EditSettingsResponseContent{
			Scope:   content.Scope,
			Applied: false,
			Reason:  "not authorized",
		})
		return
	}

	applied, reason := e.settings.Edit(content.Scope, content.Model)
	e.reply(c, protocol.TypeEditSettingsResponse, protocol.EditSettingsResponseContent{
		Scope:   content.Scope,
		Applied: applied,
		Reason:  reason,
	})

	if applied {
		e.logger.Info().
			Str("scope", content.Scope).
			Str("actor_id", user.Identity.ID).
			Msg("Settings edited.")
	}
}
