/*
Package engine implements the package-dispatch protocol engine.

This file wires the registries, the authenticator, the account store,
the settings provider, and the hook pipeline into the Engine, and
implements connection lifecycle and outbound targeting.
*/
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"neochat/internal/app/account"
	"neochat/internal/app/auth"
	"neochat/internal/app/hook"
	"neochat/internal/app/identity"
	"neochat/internal/app/protocol"
	"neochat/internal/app/settings"
	"neochat/internal/pkg/logx"
)

// storeTimeout bounds account-store calls made from package handlers.
const storeTimeout = 5 * time.Second

var (
	errSendQueueFull = errors.New("client send queue full")
	errClientClosed  = errors.New("client connection closed")

	// errRejected marks a hooked action that completed with a rejection
	// outcome; it suppresses the after hooks without being surfaced.
	errRejected = errors.New("action rejected")
)

// Hook event payloads. Collaborators registered on the pipeline
// type-assert Context.Data against these.
type (
	// PackageEvent accompanies hook.PackageReceive.
	PackageEvent struct {
		ClientID string
		Package  protocol.Package
	}

	// LoginEvent accompanies hook.Login.
	LoginEvent struct {
		ClientID string
		User     *identity.User
	}

	// AccountEvent accompanies hook.AccountCreate and hook.AccountEdit.
	AccountEvent struct {
		AccountID string
		Key       string
	}

	// ChannelEvent accompanies hook.ChannelCreate and hook.ChannelRemove.
	ChannelEvent struct {
		ChannelID string
		ActorID   string
	}

	// GroupEvent accompanies hook.GroupCreate and hook.GroupRemove.
	GroupEvent struct {
		GroupID string
		ActorID string
	}

	// IdentityEvent accompanies hook.IdentityEdit.
	IdentityEvent struct {
		UserID string
		Key    string
	}
)

// Engine is the session and routing core. It owns the shared registries
// and the dispatch table, and is constructed once at startup; handlers
// receive it explicitly instead of reaching for globals.
type Engine struct {
	settings *settings.Provider
	store    account.Store
	auth     auth.Authenticator
	hooks    *hook.Pipeline

	connections *ConnectionRegistry
	sessions    *SessionRegistry
	channels    *ChannelRegistry
	groups      *GroupRegistry

	handlers map[protocol.Type]handlerFunc

	jwtSecret string
	logger    zerolog.Logger
}

// Options carries the collaborators the Engine consumes.
type Options struct {
	Settings      *settings.Provider
	Store         account.Store
	Authenticator auth.Authenticator
	Hooks         *hook.Pipeline
	JWTSecret     string
}

// New constructs the Engine with seeded registries (main channel,
// default groups) and the full dispatch table.
func New(opts Options) *Engine {
	e := &Engine{
		settings:    opts.Settings,
		store:       opts.Store,
		auth:        opts.Authenticator,
		hooks:       opts.Hooks,
		connections: NewConnectionRegistry(),
		sessions:    NewSessionRegistry(),
		channels:    NewChannelRegistry(),
		groups:      NewGroupRegistry(),
		jwtSecret:   opts.JWTSecret,
		logger:      logx.Logger().With().Str("component", "engine").Logger(),
	}

	e.handlers = map[protocol.Type]handlerFunc{
		protocol.TypeDebug:            e.handleDebug,
		protocol.TypeMeta:             e.handleMeta,
		protocol.TypeGuestLogin:       e.handleGuestLogin,
		protocol.TypeMemberLogin:      e.handleMemberLogin,
		protocol.TypeRegister:         e.handleRegister,
		protocol.TypeLoginFinished:    e.handleLoginFinished,
		protocol.TypeInput:            e.handleInput,
		protocol.TypeEnterChannel:     e.handleEnterChannel,
		protocol.TypeCreateChannel:    e.handleCreateChannel,
		protocol.TypeDeleteChannel:    e.handleDeleteChannel,
		protocol.TypeCreateGroup:      e.handleCreateGroup,
		protocol.TypeDeleteGroup:      e.handleDeleteGroup,
		protocol.TypeCreatePunishment: e.handleCreatePunishment,
		protocol.TypeDeletePunishment: e.handleDeletePunishment,
		protocol.TypeEditProfile:      e.handleEditProfile,
		protocol.TypeSetAvatar:        e.handleSetAvatar,
		protocol.TypeOpenSettings:     e.handleOpenSettings,
		protocol.TypeEditSettings:     e.handleEditSettings,
	}

	return e
}

// Connect registers a fresh transport connection and returns its Client.
// The caller starts the pumps.
func (e *Engine) Connect(conn Conn) *Client {
	c := newClient(e, conn)
	e.connections.Add(c)

	e.logger.Info().Str("client_id", c.ID).Int("total_connections", e.connections.Len()).Msg("Client connected.")
	return c
}

// Disconnect tears down a client: the bound user, if any, leaves all
// joined channels and groups and is removed from the session registry,
// then the connection itself is deregistered. A client that never
// completed login tears down nothing but the connection entry.
func (e *Engine) Disconnect(c *Client) {
	user := e.sessions.Unbind(c.ID)
	if user != nil {
		e.channels.LeaveAll(c.ID)
		e.groups.RemoveClient(c.ID)

		e.logger.Info().
			Str("client_id", c.ID).
			Str("user_id", user.Identity.ID).
			Msg("Session removed on disconnect.")
	}

	e.connections.Remove(c.ID)
	c.closeQueue()
}

// Send routes a package to its target: one client, or every connection
// except the excluded set. A client disconnecting mid-broadcast is
// skipped, never a failure.
func (e *Engine) Send(target protocol.Target, pkg protocol.Package) {
	if !target.Broadcast {
		if c := e.connections.Get(target.ClientID); c != nil {
			_ = c.Send(pkg)
		}
		return
	}

	for _, c := range e.connections.All() {
		if target.Excludes(c.ID) {
			continue
		}
		_ = c.Send(pkg)
	}
}

// Hooks exposes the pipeline so collaborators can register observers.
func (e *Engine) Hooks() *hook.Pipeline {
	return e.hooks
}

// storeCtx returns a bounded context for an account-store call.
func storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// forceDisconnect pushes a DisconnectReason to the client, signals its
// write pump to close the connection, and releases its registry entries
// immediately rather than waiting for the read pump to notice.
func (e *Engine) forceDisconnect(c *Client, reason string) {
	if pkg, err := protocol.New(protocol.TypeDisconnectReason, protocol.DisconnectReasonContent{Reason: reason}); err == nil {
		_ = c.Send(pkg)
	}

	c.Kick(reason)
	e.Disconnect(c)
}

// reply sends a response package to a single client, logging encode
// failures instead of surfacing them; responses are best-effort.
func (e *Engine) reply(c *Client, t protocol.Type, content any) {
	pkg, err := protocol.New(t, content)
	if err != nil {
		e.logger.Error().Err(err).Str("type", string(t)).Msg("Failed to build response package.")
		return
	}
	_ = c.Send(pkg)
}
