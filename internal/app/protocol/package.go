/*
Package protocol defines the typed package protocol spoken between the
server and its clients.

A package is a typed unit with an opaque content payload; the JSON
envelope is {"type": ..., "content": ...}. The content shape is fixed
per type (see contents.go). Outbound addressing is expressed with a
Target (see target.go).
*/
package protocol

import (
	"encoding/json"
	"fmt"
)

// Type tags a package with its protocol meaning. The enumeration is
// closed; unknown types received from clients are ignored by the router.
type Type string

const (
	TypeDebug                  Type = "DEBUG"
	TypeGuestLogin             Type = "GUEST_LOGIN"
	TypeMemberLogin            Type = "MEMBER_LOGIN"
	TypeMeta                   Type = "META"
	TypeMetaResponse           Type = "META_RESPONSE"
	TypeInput                  Type = "INPUT"
	TypeRegister               Type = "REGISTER"
	TypeLoginFinished          Type = "LOGIN_FINISHED"
	TypeEnterChannel           Type = "ENTER_CHANNEL"
	TypeEnterChannelResponse   Type = "ENTER_CHANNEL_RESPONSE"
	TypeOpenSettings           Type = "OPEN_SETTINGS"
	TypeOpenSettingsResponse   Type = "OPEN_SETTINGS_RESPONSE"
	TypeEditSettings           Type = "EDIT_SETTINGS"
	TypeEditSettingsResponse   Type = "EDIT_SETTINGS_RESPONSE"
	TypeEditProfile            Type = "EDIT_PROFILE"
	TypeEditProfileResponse    Type = "EDIT_PROFILE_RESPONSE"
	TypeCreatePunishment       Type = "CREATE_PUNISHMENT"
	TypeCreateChannel          Type = "CREATE_CHANNEL"
	TypeCreateGroup            Type = "CREATE_GROUP"
	TypeCreateGroupResponse    Type = "CREATE_GROUP_RESPONSE"
	TypeDeleteGroup            Type = "DELETE_GROUP"
	TypeDeleteGroupResponse    Type = "DELETE_GROUP_RESPONSE"
	TypeDeleteChannel          Type = "DELETE_CHANNEL"
	TypeDeleteChannelResponse  Type = "DELETE_CHANNEL_RESPONSE"
	TypeDeletePunishment       Type = "DELETE_PUNISHMENT"
	TypeSetAvatar              Type = "SET_AVATAR"
	TypeLoginResponse          Type = "LOGIN_RESPONSE"
	TypeDisconnectReason       Type = "DISCONNECT_REASON"
	TypeKnownPermissionsUpdate Type = "KNOWN_PERMISSIONS_UPDATE"
	TypeAccountListUpdate      Type = "ACCOUNT_LIST_UPDATE"
)

// Package is the unit of the wire protocol: a type tag plus an opaque
// content payload that handlers decode against the declared type.
type Package struct {
	Type    Type            `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// New builds a Package with its content marshaled to JSON.
func New(t Type, content any) (Package, error) {
	if content == nil {
		return Package{Type: t}, nil
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return Package{}, fmt.Errorf("marshal %s content: %w", t, err)
	}

	return Package{Type: t, Content: raw}, nil
}

// Decode unmarshals the package content into the content struct declared
// for its type.
func Decode[T any](pkg Package) (T, error) {
	var content T
	if len(pkg.Content) == 0 {
		return content, nil
	}

	if err := json.Unmarshal(pkg.Content, &content); err != nil {
		return content, fmt.Errorf("decode %s content: %w", pkg.Type, err)
	}

	return content, nil
}

// Encode marshals the full package envelope.
func Encode(pkg Package) ([]byte, error) {
	return json.Marshal(pkg)
}

// Parse unmarshals a raw envelope received from the transport.
func Parse(raw []byte) (Package, error) {
	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return Package{}, fmt.Errorf("parse package envelope: %w", err)
	}

	if pkg.Type == "" {
		return Package{}, fmt.Errorf("package envelope missing type")
	}

	return pkg, nil
}
