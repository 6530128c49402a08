package engine

import (
	"errors"
	"sync"

	"neochat/internal/app/identity"
)

// SessionState tracks where a connection stands in the login state machine.
type SessionState int

const (
	// StateConnected means the transport is up but no user is bound.
	StateConnected SessionState = iota

	// StateAuthenticated means a user is bound but login is not finished.
	StateAuthenticated

	// StateChannelJoined means login finished and the main channel was joined.
	StateChannelJoined
)

var (
	// ErrSessionExists rejects a second user binding on one connection;
	// a session transitions Guest/Member only once per connection.
	ErrSessionExists = errors.New("client already has a bound user")

	// ErrUserConnected rejects binding a user who already has a live session.
	ErrUserConnected = errors.New("user already bound to another client")
)

// SessionRegistry maps authenticated users to their owning clients. At
// most one user per client, and one live client per user id.
type SessionRegistry struct {
	mu       sync.RWMutex
	byClient map[string]*identity.User
	byUser   map[string]string
	state    map[string]SessionState
}

// NewSessionRegistry returns an empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byClient: make(map[string]*identity.User),
		byUser:   make(map[string]string),
		state:    make(map[string]SessionState),
	}
}

// Bind attaches an authenticated user to its client and moves the
// session to StateAuthenticated.
func (r *SessionRegistry) Bind(clientID string, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byClient[clientID]; ok {
		return ErrSessionExists
	}
	if _, ok := r.byUser[user.Identity.ID]; ok {
		return ErrUserConnected
	}

	r.byClient[clientID] = user
	r.byUser[user.Identity.ID] = clientID
	r.state[clientID] = StateAuthenticated

	return nil
}

// Unbind detaches and returns the client's user, or nil when the client
// never completed a login. The no-user case is a clean no-op.
func (r *SessionRegistry) Unbind(clientID string) *identity.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byClient[clientID]
	if !ok {
		delete(r.state, clientID)
		return nil
	}

	delete(r.byClient, clientID)
	delete(r.byUser, user.Identity.ID)
	delete(r.state, clientID)

	return user
}

// UserByClient returns the user bound to the client, or nil.
func (r *SessionRegistry) UserByClient(clientID string) *identity.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byClient[clientID]
}

// ClientByUser returns the client id owning the user's session.
func (r *SessionRegistry) ClientByUser(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clientID, ok := r.byUser[userID]
	return clientID, ok
}

// RenameUser rekeys a bound user after an identity id edit.
func (r *SessionRegistry) RenameUser(oldID, newID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientID, ok := r.byUser[oldID]
	if !ok {
		return
	}

	delete(r.byUser, oldID)
	r.byUser[newID] = clientID
}

// State returns the session state of the client.
func (r *SessionRegistry) State(clientID string) SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[clientID]
}

// MarkChannelJoined transitions an authenticated session to
// StateChannelJoined. It reports whether the transition was legal.
func (r *SessionRegistry) MarkChannelJoined(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state[clientID] != StateAuthenticated {
		return false
	}

	r.state[clientID] = StateChannelJoined
	return true
}

// Users returns a snapshot of all bound users.
func (r *SessionRegistry) Users() []*identity.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*identity.User, 0, len(r.byClient))
	for _, u := range r.byClient {
		users = append(users, u)
	}
	return users
}
