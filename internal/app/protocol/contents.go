package protocol

import (
	"encoding/json"

	"neochat/internal/app/identity"
)

// DebugContent carries a free-form diagnostic message.
type DebugContent struct {
	Message string `json:"message"`
}

// GuestLoginContent requests a guest session with the desired display name.
type GuestLoginContent struct {
	Name string `json:"name"`
}

// MemberLoginContent carries member credentials.
type MemberLoginContent struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// RegisterContent requests a new account plus member session.
type RegisterContent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponseContent answers GuestLogin, MemberLogin, and Register.
// Identity and Token are set only on success.
type LoginResponseContent struct {
	Result   AuthResult         `json:"result"`
	Identity *identity.Identity `json:"identity,omitempty"`
	Token    string             `json:"token,omitempty"`
}

// MetaResponseContent answers Meta with the live server settings.
type MetaResponseContent struct {
	ServerName          string `json:"serverName"`
	GuestsAllowed       bool   `json:"guestsAllowed"`
	RegistrationAllowed bool   `json:"registrationAllowed"`
}

// InputContent is a chat message addressed to a channel. The server
// fills Sender, MessageID, and Timestamp before rebroadcasting.
type InputContent struct {
	ChannelID string             `json:"channelId"`
	Message   string             `json:"message"`
	Sender    *identity.Identity `json:"sender,omitempty"`
	MessageID string             `json:"messageId,omitempty"`
	Timestamp int64              `json:"timestamp,omitempty"`
}

// ChannelInfo describes a channel toward clients. The password itself
// never crosses the wire.
type ChannelInfo struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	HasPassword bool                `json:"hasPassword"`
	Limit       int                 `json:"limit"`
	Lifetime    int64               `json:"lifetime,omitempty"`
	Members     []identity.Identity `json:"members,omitempty"`
}

// EnterChannelContent requests joining a channel.
type EnterChannelContent struct {
	ChannelID string `json:"channelId"`
	Password  string `json:"password,omitempty"`
}

// EnterChannelResponseContent answers EnterChannel. Channel is set only
// on success.
type EnterChannelResponseContent struct {
	Result  ChannelActionResult `json:"result"`
	Channel *ChannelInfo        `json:"channel,omitempty"`
}

// CreateChannelContent requests a new channel. A zero Limit means
// unlimited; a zero Lifetime means the channel does not expire.
type CreateChannelContent struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Lifetime int64  `json:"lifetime,omitempty"`
}

// DeleteChannelContent requests channel removal.
type DeleteChannelContent struct {
	ChannelID string `json:"channelId"`
}

// DeleteChannelResponseContent answers DeleteChannel and is also pushed
// to members of a removed channel.
type DeleteChannelResponseContent struct {
	Result    ChannelActionResult `json:"result"`
	ChannelID string              `json:"channelId"`
}

// GroupInfo describes a permission group toward clients.
type GroupInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	SortOrder   int      `json:"sortOrder"`
	Permissions []string `json:"permissions"`
}

// CreateGroupContent requests a new permission group.
type CreateGroupContent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	SortOrder   int      `json:"sortOrder"`
	Permissions []string `json:"permissions"`
}

// CreateGroupResponseContent answers CreateGroup.
type CreateGroupResponseContent struct {
	Result GroupOpResult `json:"result"`
	Group  *GroupInfo    `json:"group,omitempty"`
}

// DeleteGroupContent requests group removal.
type DeleteGroupContent struct {
	GroupID string `json:"groupId"`
}

// DeleteGroupResponseContent answers DeleteGroup.
type DeleteGroupResponseContent struct {
	Result  GroupOpResult `json:"result"`
	GroupID string        `json:"groupId"`
}

// OpenSettingsContent requests the settings model for a scope.
type OpenSettingsContent struct {
	Scope string `json:"scope"`
}

// OpenSettingsResponseContent answers OpenSettings. Model is absent for
// unknown scopes.
type OpenSettingsResponseContent struct {
	Scope string `json:"scope"`
	Found bool   `json:"found"`
	Model any    `json:"model,omitempty"`
}

// EditSettingsContent submits an edited settings model for a scope.
type EditSettingsContent struct {
	Scope string          `json:"scope"`
	Model json.RawMessage `json:"model"`
}

// EditSettingsResponseContent answers EditSettings.
type EditSettingsResponseContent struct {
	Scope   string `json:"scope"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// EditProfileContent requests a profile edit. Key is one of "name",
// "id", "email", "password"; password edits must carry the current
// password hash in CurrentPassword.
type EditProfileContent struct {
	Key             string `json:"key"`
	Value           string `json:"value"`
	CurrentPassword string `json:"currentPassword,omitempty"`
}

// EditProfileResponseContent answers EditProfile, echoing the original
// request so the client can match the failed edit.
type EditProfileResponseContent struct {
	OK      bool               `json:"ok"`
	Request EditProfileContent `json:"request"`
}

// SetAvatarContent records the extension of a freshly uploaded avatar.
type SetAvatarContent struct {
	Extension string `json:"extension"`
}

// PunishmentAction selects the moderation action.
type PunishmentAction string

const (
	PunishmentKick PunishmentAction = "kick"
	PunishmentBan  PunishmentAction = "ban"
)

// CreatePunishmentContent requests a moderation action against a user.
// The server echoes the content back with Result filled in.
type CreatePunishmentContent struct {
	TargetID string           `json:"targetId"`
	Action   PunishmentAction `json:"action"`
	Reason   string           `json:"reason,omitempty"`
	Result   PunishmentResult `json:"result,omitempty"`
}

// DeletePunishmentContent lifts a ban. The server echoes the content
// back with Result filled in.
type DeletePunishmentContent struct {
	TargetID string           `json:"targetId"`
	Result   PunishmentResult `json:"result,omitempty"`
}

// DisconnectReasonContent is pushed to a client right before the server
// closes its connection.
type DisconnectReasonContent struct {
	Reason string `json:"reason"`
}

// KnownPermissionsUpdateContent pushes the group/permission catalog,
// ordered by sort value for client display.
type KnownPermissionsUpdateContent struct {
	Groups []GroupInfo `json:"groups"`
}

// AccountInfo is the moderation view of an account.
type AccountInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarExt string `json:"avatarExt,omitempty"`
	Email     string `json:"email"`
	Banned    bool   `json:"banned"`
}

// AccountListUpdateContent pushes the account list to clients holding
// the moderation view permission.
type AccountListUpdateContent struct {
	Accounts []AccountInfo `json:"accounts"`
}
