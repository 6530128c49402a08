package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"neochat/internal/app/account"
	"neochat/internal/app/hook"
	"neochat/internal/app/protocol"
)

func editProfile(t *testing.T, e *Engine, c *Client, content protocol.EditProfileContent) protocol.EditProfileResponseContent {
	t.Helper()

	route(t, e, c, protocol.TypeEditProfile, content)

	responses := ofType(drain(t, c), protocol.TypeEditProfileResponse)
	require.Len(t, responses, 1)

	resp, err := protocol.Decode[protocol.EditProfileResponseContent](responses[0])
	require.NoError(t, err)
	return resp
}

// connectMember builds a connection with a finished member login.
func connectMember(t *testing.T, e *Engine, id, password string) *Client {
	t.Helper()

	c := e.Connect(&stubConn{})
	require.Equal(t, protocol.AuthSuccess, loginMember(t, e, c, id, password).Result)
	finishLogin(t, e, c)
	return c
}

func TestEditProfile_GuestRenamesName(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "old-name")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "name", Value: "new-name"})

	assert.True(t, resp.OK)
	assert.Equal(t, "new-name", e.sessions.UserByClient(c.ID).Identity.Name)
}

func TestEditProfile_MemberNamePersisted(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "name", Value: "Alice in Chains"})
	require.True(t, resp.OK)

	stored, err := store.ByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice in Chains", stored.Name)
}

func TestEditProfile_EmptyNameRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "guest")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "name", Value: ""})
	assert.False(t, resp.OK)
	assert.Equal(t, "guest", e.sessions.UserByClient(c.ID).Identity.Name)
}

func TestEditProfile_UnknownKeyRejected(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "guest")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "shoe-size", Value: "44"})
	assert.False(t, resp.OK)
	assert.Equal(t, "shoe-size", resp.Request.Key, "the failed request is echoed back")
}

func TestEditProfile_IDRenameRekeysSessionAndStore(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "id", Value: "alicia"})
	require.True(t, resp.OK)

	assert.Equal(t, "alicia", e.sessions.UserByClient(c.ID).Identity.ID)

	clientID, ok := e.sessions.ClientByUser("alicia")
	require.True(t, ok)
	assert.Equal(t, c.ID, clientID)

	_, ok = e.sessions.ClientByUser("alice")
	assert.False(t, ok)

	_, err := store.ByID(context.Background(), "alicia")
	assert.NoError(t, err)
}

func TestEditProfile_IDWithGuestPrefixRejected(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "id", Value: "Guest-abcd1234"})
	assert.False(t, resp.OK)
	assert.Equal(t, "alice", e.sessions.UserByClient(c.ID).Identity.ID)
}

func TestEditProfile_IDRejectedForGuests(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "guest")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "id", Value: "brand-new"})
	assert.False(t, resp.OK)
}

func TestEditProfile_IDConflictRejected(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")
	createMemberAccount(t, store, "bob", "bob@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "id", Value: "bob"})
	assert.False(t, resp.OK)
	assert.Equal(t, "alice", e.sessions.UserByClient(c.ID).Identity.ID)
}

func TestEditProfile_EmailUpdated(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "email", Value: "fresh@example.com"})
	require.True(t, resp.OK)

	stored, err := store.ByEmail(context.Background(), "fresh@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.ID)
}

func TestEditProfile_EmailConflictRejected(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")
	createMemberAccount(t, store, "bob", "bob@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{Key: "email", Value: "bob@example.com"})
	assert.False(t, resp.OK)

	stored, err := store.ByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestEditProfile_PasswordRequiresCurrent(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{
		Key:             "password",
		Value:           "fresh-password",
		CurrentPassword: "wrong-horse",
	})
	assert.False(t, resp.OK)
	assert.Empty(t, resp.Request.Value, "secrets never travel back in the echo")
	assert.Empty(t, resp.Request.CurrentPassword)
}

func TestEditProfile_PasswordChanged(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	resp := editProfile(t, e, c, protocol.EditProfileContent{
		Key:             "password",
		Value:           "fresh-password",
		CurrentPassword: "correct-horse",
	})
	require.True(t, resp.OK)

	stored, err := store.ByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("fresh-password")))
}

func TestEditProfile_VetoIsSilent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	e.hooks.Before(hook.IdentityEdit, func(ctx *hook.Context) { ctx.Cancel() })

	c := connectGuest(t, e, "guest")

	route(t, e, c, protocol.TypeEditProfile, protocol.EditProfileContent{Key: "name", Value: "sneaky"})
	assert.Empty(t, drain(t, c))
	assert.Equal(t, "guest", e.sessions.UserByClient(c.ID).Identity.Name)
}

func TestSetAvatar_UpdatesIdentityAndAccount(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)
	c := connectMember(t, e, "alice", "correct-horse")

	route(t, e, c, protocol.TypeSetAvatar, protocol.SetAvatarContent{Extension: "png"})

	assert.Equal(t, "png", e.sessions.UserByClient(c.ID).Identity.AvatarExt)

	stored, err := store.ByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "png", stored.AvatarExt)
}

func TestEditProfile_EmailEditRefreshesModeratorList(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)

	moderator := connectGuest(t, e, "moderator")
	e.groups.AddMember(GroupAdmins, moderator.ID)

	c := connectMember(t, e, "alice", "correct-horse")
	require.True(t, editProfile(t, e, c, protocol.EditProfileContent{Key: "email", Value: "alicia@example.com"}).OK)

	updates := ofType(drain(t, moderator), protocol.TypeAccountListUpdate)
	require.NotEmpty(t, updates)

	list, err := protocol.Decode[protocol.AccountListUpdateContent](updates[len(updates)-1])
	require.NoError(t, err)
	require.Len(t, list.Accounts, 1)
	assert.Equal(t, "alicia@example.com", list.Accounts[0].Email)
}

func TestSetAvatar_RefreshesModeratorList(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	createMemberAccount(t, store, "alice", "alice@example.com", "correct-horse")

	e := newTestEngine(t, store)

	moderator := connectGuest(t, e, "moderator")
	e.groups.AddMember(GroupAdmins, moderator.ID)

	c := connectMember(t, e, "alice", "correct-horse")
	route(t, e, c, protocol.TypeSetAvatar, protocol.SetAvatarContent{Extension: "png"})

	updates := ofType(drain(t, moderator), protocol.TypeAccountListUpdate)
	require.NotEmpty(t, updates)

	list, err := protocol.Decode[protocol.AccountListUpdateContent](updates[len(updates)-1])
	require.NoError(t, err)
	require.Len(t, list.Accounts, 1)
	assert.Equal(t, "png", list.Accounts[0].AvatarExt)
}
