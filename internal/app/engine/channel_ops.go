/*
Package engine implements the package-dispatch protocol engine.

This file holds the channel handlers: Input broadcasting, EnterChannel,
CreateChannel (with lifetime expiry), and DeleteChannel.
*/
package engine

import (
	"errors"
	"time"

	"neochat/internal/app/hook"
	"neochat/internal/app/protocol"
	"neochat/internal/pkg/randx"
)

// handleInput rebroadcasts a chat message to the members of its channel.
// The sender must have joined the channel first.
func (e *Engine) handleInput(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("Input without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.InputContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid INPUT content")
		return
	}

	if content.Message == "" || !e.channels.IsMember(c.ID, content.ChannelID) {
		c.logger.Warn().Str("channel_id", content.ChannelID).Msg("Input for a channel the client has not joined, ignoring.")
		return
	}

	sender := user.Identity
	content.Sender = &sender
	content.MessageID = randx.MessageID()
	content.Timestamp = time.Now().UnixMilli()

	e.channels.AppendMessage(content.ChannelID, StoredMessage{
		MessageID: content.MessageID,
		SenderID:  sender.ID,
		Message:   content.Message,
		Timestamp: content.Timestamp,
	})

	out, err := protocol.New(protocol.TypeInput, content)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to build INPUT broadcast.")
		return
	}

	e.sendToChannel(content.ChannelID, out, c.ID)
}

// sendToChannel delivers a package to every member session of a channel
// except the given one. Members disconnecting mid-broadcast are skipped.
func (e *Engine) sendToChannel(channelID string, pkg protocol.Package, exceptClientID string) {
	for _, memberID := range e.channels.Members(channelID) {
		if memberID == exceptClientID {
			continue
		}
		if member := e.connections.Get(memberID); member != nil {
			_ = member.Send(pkg)
		}
	}
}

// handleEnterChannel joins the client's user to a channel, answering
// with the exact outcome: joining twice reports AlreadyMember, a wrong
// password WrongPassword, a reached member limit Full.
func (e *Engine) handleEnterChannel(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("EnterChannel without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.EnterChannelContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid ENTER_CHANNEL content")
		return
	}

	result := e.channels.Join(c.ID, content.ChannelID, content.Password)
	if result != protocol.ChannelSuccess {
		e.reply(c, protocol.TypeEnterChannelResponse, protocol.EnterChannelResponseContent{Result: result})
		return
	}

	info := e.channelInfo(content.ChannelID)
	e.reply(c, protocol.TypeEnterChannelResponse, protocol.EnterChannelResponseContent{
		Result:  protocol.ChannelSuccess,
		Channel: &info,
	})
}

// channelInfo snapshots a channel including the identities of its
// current member sessions.
func (e *Engine) channelInfo(channelID string) protocol.ChannelInfo {
	info, _ := e.channels.Snapshot(channelID)

	for _, memberID := range e.channels.Members(channelID) {
		if member := e.sessions.UserByClient(memberID); member != nil {
			info.Members = append(info.Members, member.Identity)
		}
	}

	return info
}

// handleCreateChannel instantiates a channel owned by the caller,
// guarded by the channel-create hook pair so collaborators can veto
// (quota limits). The creator joins the new channel immediately.
func (e *Engine) handleCreateChannel(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("CreateChannel without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.CreateChannelContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid CREATE_CHANNEL content")
		return
	}

	channelID := content.ID
	if channelID == "" {
		channelID, err = randx.ChannelID()
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to generate channel id.")
			return
		}
	}

	spec := ChannelSpec{
		ID:       channelID,
		Name:     content.Name,
		Password: content.Password,
		Limit:    content.Limit,
		Lifetime: time.Duration(content.Lifetime) * time.Second,
		OwnerID:  user.Identity.ID,
	}

	var result protocol.ChannelActionResult

	event := &ChannelEvent{ChannelID: channelID, ActorID: user.Identity.ID}
	hookErr := e.hooks.Do(hook.ChannelCreate, event, func() error {
		if result = e.channels.Create(spec); result != protocol.ChannelSuccess {
			return errRejected
		}
		return nil
	})

	if errors.Is(hookErr, hook.ErrCancelled) {
		e.reply(c, protocol.TypeEnterChannelResponse, protocol.EnterChannelResponseContent{Result: protocol.ChannelCancelled})
		return
	}
	if errors.Is(hookErr, errRejected) {
		e.reply(c, protocol.TypeEnterChannelResponse, protocol.EnterChannelResponseContent{Result: result})
		return
	}

	if spec.Lifetime > 0 {
		e.channels.SetExpiry(channelID, time.AfterFunc(spec.Lifetime, func() {
			e.expireChannel(channelID)
		}))
	}

	e.channels.Join(c.ID, channelID, content.Password)

	info := e.channelInfo(channelID)
	e.reply(c, protocol.TypeEnterChannelResponse, protocol.EnterChannelResponseContent{
		Result:  protocol.ChannelSuccess,
		Channel: &info,
	})

	e.logger.Info().
		Str("channel_id", channelID).
		Str("owner_id", user.Identity.ID).
		Msg("Channel created.")
}

// expireChannel removes a channel whose lifetime elapsed, through the
// same hooked removal path as an explicit delete.
func (e *Engine) expireChannel(channelID string) {
	e.logger.Info().Str("channel_id", channelID).Msg("Channel lifetime reached, removing.")
	if err := e.removeChannel(channelID, ""); err != nil {
		e.logger.Info().Str("channel_id", channelID).Msg("Channel expiry removal skipped.")
	}
}

// removeChannel runs the hooked channel removal and notifies the
// members of the removed channel. It returns hook.ErrCancelled on a
// before-hook veto and errRejected when the channel no longer exists.
func (e *Engine) removeChannel(channelID, actorID string) error {
	var members []string

	event := &ChannelEvent{ChannelID: channelID, ActorID: actorID}
	hookErr := e.hooks.Do(hook.ChannelRemove, event, func() error {
		var ok bool
		if members, ok = e.channels.Remove(channelID); !ok {
			return errRejected
		}
		return nil
	})

	if hookErr != nil {
		return hookErr
	}

	notice, err := protocol.New(protocol.TypeDeleteChannelResponse, protocol.DeleteChannelResponseContent{
		Result:    protocol.ChannelSuccess,
		ChannelID: channelID,
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to build channel removal notice.")
		return nil
	}

	for _, memberID := range members {
		if member := e.connections.Get(memberID); member != nil {
			_ = member.Send(notice)
		}
	}

	return nil
}

// handleDeleteChannel removes a channel when the caller is its owner or
// holds the delete permission. Unauthorized deletion is a no-op that
// signals failure to the caller.
func (e *Engine) handleDeleteChannel(c *Client, pkg protocol.Package) {
	user := e.sessions.UserByClient(c.ID)
	if user == nil {
		c.logger.Warn().Msg("DeleteChannel without a bound user, ignoring.")
		return
	}

	content, err := protocol.Decode[protocol.DeleteChannelContent](pkg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid DELETE_CHANNEL content")
		return
	}

	ownerID, found := e.channels.Owner(content.ChannelID)
	if !found {
		e.reply(c, protocol.TypeDeleteChannelResponse, protocol.DeleteChannelResponseContent{
			Result:    protocol.ChannelNotFound,
			ChannelID: content.ChannelID,
		})
		return
	}

	authorized := ownerID != "" && ownerID == user.Identity.ID
	if !authorized {
		authorized = e.groups.HasPermission(c.ID, PermChannelDelete) && content.ChannelID != MainChannelID
	}

	if !authorized {
		e.reply(c, protocol.TypeDeleteChannelResponse, protocol.DeleteChannelResponseContent{
			Result:    protocol.ChannelNotAuthorized,
			ChannelID: content.ChannelID,
		})
		return
	}

	switch err := e.removeChannel(content.ChannelID, user.Identity.ID); {
	case errors.Is(err, hook.ErrCancelled):
		e.reply(c, protocol.TypeDeleteChannelResponse, protocol.DeleteChannelResponseContent{
			Result:    protocol.ChannelCancelled,
			ChannelID: content.ChannelID,
		})
	case err != nil:
		// Lost a race with expiry or another delete.
		e.reply(c, protocol.TypeDeleteChannelResponse, protocol.DeleteChannelResponseContent{
			Result:    protocol.ChannelNotFound,
			ChannelID: content.ChannelID,
		})
	}
}
