package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neochat/internal/app/account"
	"neochat/internal/app/hook"
	"neochat/internal/app/protocol"
)

// connectGuest builds a connection with a finished guest login.
func connectGuest(t *testing.T, e *Engine, name string) *Client {
	t.Helper()

	c := e.Connect(&stubConn{})
	require.Equal(t, protocol.AuthSuccess, loginGuest(t, e, c, name).Result)
	finishLogin(t, e, c)
	return c
}

func enterChannel(t *testing.T, e *Engine, c *Client, channelID, password string) protocol.EnterChannelResponseContent {
	t.Helper()

	route(t, e, c, protocol.TypeEnterChannel, protocol.EnterChannelContent{ChannelID: channelID, Password: password})

	responses := ofType(drain(t, c), protocol.TypeEnterChannelResponse)
	require.Len(t, responses, 1)

	content, err := protocol.Decode[protocol.EnterChannelResponseContent](responses[0])
	require.NoError(t, err)
	return content
}

func createChannel(t *testing.T, e *Engine, c *Client, content protocol.CreateChannelContent) protocol.EnterChannelResponseContent {
	t.Helper()

	route(t, e, c, protocol.TypeCreateChannel, content)

	responses := ofType(drain(t, c), protocol.TypeEnterChannelResponse)
	require.Len(t, responses, 1)

	resp, err := protocol.Decode[protocol.EnterChannelResponseContent](responses[0])
	require.NoError(t, err)
	return resp
}

func TestCreateChannel_CreatorJoinsImmediately(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "owner")

	resp := createChannel(t, e, c, protocol.CreateChannelContent{ID: "den", Name: "The Den"})

	require.Equal(t, protocol.ChannelSuccess, resp.Result)
	require.NotNil(t, resp.Channel)
	assert.Equal(t, "den", resp.Channel.ID)
	assert.True(t, e.channels.IsMember(c.ID, "den"))

	ownerID, found := e.channels.Owner("den")
	require.True(t, found)
	assert.Equal(t, e.sessions.UserByClient(c.ID).Identity.ID, ownerID)
}

func TestCreateChannel_IDInUse(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "owner")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, c, protocol.CreateChannelContent{ID: "den"}).Result)

	resp := createChannel(t, e, c, protocol.CreateChannelContent{ID: "den"})
	assert.Equal(t, protocol.ChannelIDInUse, resp.Result)
	assert.Nil(t, resp.Channel)
}

func TestCreateChannel_VetoReportsCancelled(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	e.hooks.Before(hook.ChannelCreate, func(ctx *hook.Context) { ctx.Cancel() })

	c := connectGuest(t, e, "owner")

	resp := createChannel(t, e, c, protocol.CreateChannelContent{ID: "den"})
	assert.Equal(t, protocol.ChannelCancelled, resp.Result)
	assert.Empty(t, e.channels.Members("den"))
}

func TestCreateChannel_GeneratedIDWhenOmitted(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "owner")

	resp := createChannel(t, e, c, protocol.CreateChannelContent{Name: "Unnamed"})
	require.Equal(t, protocol.ChannelSuccess, resp.Result)
	require.NotNil(t, resp.Channel)
	assert.NotEmpty(t, resp.Channel.ID)
}

func TestEnterChannel_NotFound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "visitor")

	resp := enterChannel(t, e, c, "nowhere", "")
	assert.Equal(t, protocol.ChannelNotFound, resp.Result)
}

func TestEnterChannel_AlreadyMemberIsIdempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := connectGuest(t, e, "visitor")

	// LoginFinished already joined the main channel.
	resp := enterChannel(t, e, c, MainChannelID, "")
	assert.Equal(t, protocol.ChannelAlreadyMember, resp.Result)
	assert.Len(t, e.channels.Members(MainChannelID), 1)
}

func TestEnterChannel_WrongPassword(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	visitor := connectGuest(t, e, "visitor")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "vault", Password: "sesame"}).Result)

	resp := enterChannel(t, e, visitor, "vault", "wrong")
	assert.Equal(t, protocol.ChannelWrongPassword, resp.Result)

	resp = enterChannel(t, e, visitor, "vault", "sesame")
	assert.Equal(t, protocol.ChannelSuccess, resp.Result)
}

func TestEnterChannel_Full(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	visitor := connectGuest(t, e, "visitor")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "tiny", Limit: 1}).Result)

	resp := enterChannel(t, e, visitor, "tiny", "")
	assert.Equal(t, protocol.ChannelFull, resp.Result)
}

func TestEnterChannel_ResponseListsMembers(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	visitor := connectGuest(t, e, "visitor")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "den"}).Result)

	resp := enterChannel(t, e, visitor, "den", "")
	require.Equal(t, protocol.ChannelSuccess, resp.Result)
	require.NotNil(t, resp.Channel)

	names := make([]string, 0, len(resp.Channel.Members))
	for _, m := range resp.Channel.Members {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"owner", "visitor"}, names)
}

func TestInput_BroadcastToChannelMembersExceptSender(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	alice := connectGuest(t, e, "alice")
	bob := connectGuest(t, e, "bob")
	outsider := connectGuest(t, e, "outsider")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, alice, protocol.CreateChannelContent{ID: "den"}).Result)
	require.Equal(t, protocol.ChannelSuccess, enterChannel(t, e, bob, "den", "").Result)
	drain(t, outsider)

	route(t, e, alice, protocol.TypeInput, protocol.InputContent{ChannelID: "den", Message: "hello"})

	bobInputs := ofType(drain(t, bob), protocol.TypeInput)
	require.Len(t, bobInputs, 1)

	msg, err := protocol.Decode[protocol.InputContent](bobInputs[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Message)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "alice", msg.Sender.Name)
	assert.NotEmpty(t, msg.MessageID)
	assert.NotZero(t, msg.Timestamp)

	assert.Empty(t, ofType(drain(t, alice), protocol.TypeInput), "the sender does not receive its own message")
	assert.Empty(t, ofType(drain(t, outsider), protocol.TypeInput), "non-members receive nothing")
}

func TestInput_ToUnjoinedChannelIgnored(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	alice := connectGuest(t, e, "alice")
	bob := connectGuest(t, e, "bob")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, alice, protocol.CreateChannelContent{ID: "den"}).Result)

	route(t, e, bob, protocol.TypeInput, protocol.InputContent{ChannelID: "den", Message: "sneaky"})

	assert.Empty(t, ofType(drain(t, alice), protocol.TypeInput))
	assert.Empty(t, drain(t, bob))
}

func TestDeleteChannel_OwnerRemovesAndMembersNotified(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	member := connectGuest(t, e, "member")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "den"}).Result)
	require.Equal(t, protocol.ChannelSuccess, enterChannel(t, e, member, "den", "").Result)

	route(t, e, owner, protocol.TypeDeleteChannel, protocol.DeleteChannelContent{ChannelID: "den"})

	for _, c := range []*Client{owner, member} {
		notices := ofType(drain(t, c), protocol.TypeDeleteChannelResponse)
		require.Len(t, notices, 1)

		notice, err := protocol.Decode[protocol.DeleteChannelResponseContent](notices[0])
		require.NoError(t, err)
		assert.Equal(t, protocol.ChannelSuccess, notice.Result)
		assert.Equal(t, "den", notice.ChannelID)
	}

	assert.False(t, e.channels.IsMember(member.ID, "den"))
	assert.NotContains(t, e.channels.ChannelsOf(member.ID), "den")
}

func TestDeleteChannel_NonOwnerWithoutPermission(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	other := connectGuest(t, e, "other")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "den"}).Result)

	route(t, e, other, protocol.TypeDeleteChannel, protocol.DeleteChannelContent{ChannelID: "den"})

	responses := ofType(drain(t, other), protocol.TypeDeleteChannelResponse)
	require.Len(t, responses, 1)

	resp, err := protocol.Decode[protocol.DeleteChannelResponseContent](responses[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.ChannelNotAuthorized, resp.Result)

	_, found := e.channels.Owner("den")
	assert.True(t, found, "the channel survives an unauthorized delete")
}

func TestDeleteChannel_PermissionHolderMayRemove(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	mod := connectGuest(t, e, "mod")
	e.groups.AddMember(GroupAdmins, mod.ID)

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "den"}).Result)

	route(t, e, mod, protocol.TypeDeleteChannel, protocol.DeleteChannelContent{ChannelID: "den"})
	drain(t, mod)

	_, found := e.channels.Owner("den")
	assert.False(t, found)
}

func TestDeleteChannel_MainChannelProtected(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	admin := connectGuest(t, e, "admin")
	e.groups.AddMember(GroupAdmins, admin.ID)

	route(t, e, admin, protocol.TypeDeleteChannel, protocol.DeleteChannelContent{ChannelID: MainChannelID})

	responses := ofType(drain(t, admin), protocol.TypeDeleteChannelResponse)
	require.Len(t, responses, 1)

	resp, err := protocol.Decode[protocol.DeleteChannelResponseContent](responses[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.ChannelNotAuthorized, resp.Result)
	assert.True(t, e.channels.IsMember(admin.ID, MainChannelID))
}

func TestDeleteChannel_RemoveHookVetoKeepsChannel(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")

	require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: "den"}).Result)

	e.hooks.Before(hook.ChannelRemove, func(ctx *hook.Context) { ctx.Cancel() })

	route(t, e, owner, protocol.TypeDeleteChannel, protocol.DeleteChannelContent{ChannelID: "den"})

	responses := ofType(drain(t, owner), protocol.TypeDeleteChannelResponse)
	require.Len(t, responses, 1)

	resp, err := protocol.Decode[protocol.DeleteChannelResponseContent](responses[0])
	require.NoError(t, err)
	assert.Equal(t, protocol.ChannelCancelled, resp.Result)

	_, found := e.channels.Owner("den")
	assert.True(t, found)
}

func TestChannelLifetime_ExpiresThroughHookedRemoval(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")

	removed := make(chan struct{})
	e.hooks.After(hook.ChannelRemove, func(event hook.Event, data any) { close(removed) })

	resp := createChannel(t, e, owner, protocol.CreateChannelContent{ID: "ephemeral", Lifetime: 1})
	require.Equal(t, protocol.ChannelSuccess, resp.Result)

	select {
	case <-removed:
	case <-time.After(3 * time.Second):
		t.Fatal("channel lifetime removal never fired")
	}

	_, found := e.channels.Owner("ephemeral")
	assert.False(t, found)
}

func TestChannelMembership_ConcurrentJoinAndRemoval(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	owner := connectGuest(t, e, "owner")
	joiner := connectGuest(t, e, "joiner")

	const rounds = 128

	ids := make([]string, rounds)
	joins := make([]protocol.Package, rounds)
	for i := range ids {
		ids[i] = fmt.Sprintf("room-%03d", i)
		require.Equal(t, protocol.ChannelSuccess, createChannel(t, e, owner, protocol.CreateChannelContent{ID: ids[i]}).Result)

		pkg, err := protocol.New(protocol.TypeEnterChannel, protocol.EnterChannelContent{ChannelID: ids[i]})
		require.NoError(t, err)
		joins[i] = pkg
	}

	// One goroutine joins channels from the joiner's read pump while
	// another removes them, the way a delete or lifetime expiry lands
	// relative to other sessions.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, pkg := range joins {
			e.Route(joiner, pkg)
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range ids {
			_ = e.removeChannel(id, "")
		}
	}()
	wg.Wait()

	for _, id := range ids {
		_, found := e.channels.Owner(id)
		assert.False(t, found, "channel %s survived removal", id)
		assert.NotContains(t, e.channels.ChannelsOf(joiner.ID), id)
	}
	assert.Contains(t, e.channels.ChannelsOf(joiner.ID), MainChannelID)
}
