/*
Package engine implements the package-dispatch protocol engine.

This file holds the permission-group handlers. Any change to the group
catalog is broadcast to all connected clients as KNOWN_PERMISSIONS_UPDATE.
*/
package engine

import (
	"errors"

	"neochat/internal/app/hook"
	"neochat/internal/app/protocol"
)

// broadcastPermissions pushes the current group catalog to every
// connected client.
func (e *Engine) broadcastPermissions() {
	pkg, err := protocol.New(protocol.TypeKnownPermissionsUpdate, protocol.KnownPermissionsUpdateContent{
		Groups: e.groups.Catalog(),
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to build permissions update.")
		return
	}
	e.Send(protocol.Target{Broadcast: true}, pkg)
}

// handleCreateGroup adds a permission group. The caller needs the
// group-create permission; the group-create hook pair can veto.
func (e *Engine) handleCreateGroup(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("CreateGroup without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.CreateGroupContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid CREATE_GROUP content")
		return
	}

	if !e.groups.HasPermission(c.ID, PermGroupCreate) {
		e.reply(c, protocol.TypeCreateGroupResponse, protocol.CreateGroupResponseContent{Result: protocol.GroupNotAuthorized})
		return
	}

	if content.ID == "" {
		e.reply(c, protocol.TypeCreateGroupResponse, protocol.CreateGroupResponseContent{Result: protocol.GroupIDInUse})
		return
	}

	var result protocol.GroupOpResult

	event := &GroupEvent{GroupID: content.ID, ActorID: user.Identity.ID}
	hookErr := e.hooks.Do(hook.GroupCreate, event, func() error {
		result = e.groups.Create(GroupSpec{
			ID:          content.ID,
			Name:        content.Name,
			SortOrder:   content.SortOrder,
			Permissions: content.Permissions,
		})
		if result != protocol.GroupSuccess {
			return errRejected
		}
		return nil
	})

	switch {
	case errors.Is(hookErr, hook.ErrCancelled):
		e.reply(c, protocol.TypeCreateGroupResponse, protocol.CreateGroupResponseContent{Result: protocol.GroupCancelled})
		return
	case errors.Is(hookErr, errRejected):
		e.reply(c, protocol.TypeCreateGroupResponse, protocol.CreateGroupResponseContent{Result: result})
		return
	}

	e.reply(c, protocol.TypeCreateGroupResponse, protocol.CreateGroupResponseContent{
		Result: protocol.GroupSuccess,
		Group: &protocol.GroupInfo{
			ID:          content.ID,
			Name:        content.Name,
			SortOrder:   content.SortOrder,
			Permissions: content.Permissions,
		},
	})

	e.broadcastPermissions()

	e.logger.Info().
		Str("group_id", content.ID).
		Str("actor_id", user.Identity.ID).
		Msg("Group created.")
}

// handleDeleteGroup removes a permission group. A missing group is
// reported as NOT_FOUND, never swallowed.
func (e *Engine) handleDeleteGroup(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("DeleteGroup without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.DeleteGroupContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid DELETE_GROUP content")
		return
	}

	if !e.groups.HasPermission(c.ID, PermGroupDelete) {
		e.reply(c, protocol.TypeDeleteGroupResponse, protocol.DeleteGroupResponseContent{
			Result:  protocol.GroupNotAuthorized,
			GroupID: content.GroupID,
		})
		return
	}

	var result protocol.GroupOpResult

	event := &GroupEvent{GroupID: content.GroupID, ActorID: user.Identity.ID}
	hookErr := e.hooks.Do(hook.GroupRemove, event, func() error {
		if result = e.groups.Remove(content.GroupID); result != protocol.GroupSuccess {
			return errRejected
		}
		return nil
	})

	switch {
	case errors.Is(hookErr, hook.ErrCancelled):
		result = protocol.GroupCancelled
	case hookErr == nil:
		result = protocol.GroupSuccess
	}

	e.reply(c, protocol.TypeDeleteGroupResponse, protocol.DeleteGroupResponseContent{
		Result:  result,
		GroupID: content.GroupID,
	})

	if result == protocol.GroupSuccess {
		e.broadcastPermissions()
		e.logger.Info().
			Str("group_id", content.GroupID).
			Str("actor_id", user.Identity.ID).
			Msg("Group removed.")
	}
}
