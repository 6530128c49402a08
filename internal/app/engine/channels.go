package engine

import (
	"sync"
	"time"

	"neochat/internal/app/protocol"
)

const (
	// MainChannelID is the distinguished channel every authenticated
	// user joins when finishing login.
	MainChannelID = "main"

	// maxChannelHistory bounds the per-channel message ring.
	maxChannelHistory = 100
)

// StoredMessage is one entry of a channel's bounded message history.
type StoredMessage struct {
	MessageID string
	SenderID  string
	Message   string
	Timestamp int64
}

// Channel is a named room with membership, optional password gating,
// capacity, and lifetime.
type Channel struct {
	ID       string
	Name     string
	Password string
	Limit    int
	Lifetime time.Duration

	// OwnerID is the identity id of the creator; empty for the main channel.
	OwnerID string

	// members holds the client ids of joined sessions.
	members map[string]struct{}

	// messages is the bounded history ring.
	messages []StoredMessage

	// expiry fires channel removal once the lifetime elapses.
	expiry *time.Timer
}

// ChannelSpec carries the parameters of a channel creation.
type ChannelSpec struct {
	ID       string
	Name     string
	Password string
	Limit    int
	Lifetime time.Duration
	OwnerID  string
}

// ChannelRegistry holds all channels, keyed by id for O(1) dispatch.
// It also maintains the reverse index client id -> joined channel ids,
// so both directions of a membership change flip under one lock.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	joined   map[string]map[string]struct{}
}

// NewChannelRegistry returns a registry seeded with the main channel.
func NewChannelRegistry() *ChannelRegistry {
	r := &ChannelRegistry{
		channels: make(map[string]*Channel),
		joined:   make(map[string]map[string]struct{}),
	}
	r.channels[MainChannelID] = &Channel{
		ID:      MainChannelID,
		Name:    "Main",
		members: make(map[string]struct{}),
	}
	return r
}

// Create registers a new channel. The caller wraps this in the
// channel-create hook pair.
func (r *ChannelRegistry) Create(spec ChannelSpec) protocol.ChannelActionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[spec.ID]; ok {
		return protocol.ChannelIDInUse
	}

	r.channels[spec.ID] = &Channel{
		ID:       spec.ID,
		Name:     spec.Name,
		Password: spec.Password,
		Limit:    spec.Limit,
		Lifetime: spec.Lifetime,
		OwnerID:  spec.OwnerID,
		members:  make(map[string]struct{}),
	}

	return protocol.ChannelSuccess
}

// SetExpiry attaches the lifetime timer to a channel so Remove can stop it.
func (r *ChannelRegistry) SetExpiry(channelID string, timer *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[channelID]; ok {
		ch.expiry = timer
	}
}

// Join adds a session to a channel. Re-joining reports AlreadyMember
// and does not duplicate the membership entry. The password check only
// applies when the channel has one configured.
func (r *ChannelRegistry) Join(clientID, channelID, password string) protocol.ChannelActionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return protocol.ChannelNotFound
	}

	if _, joined := ch.members[clientID]; joined {
		return protocol.ChannelAlreadyMember
	}

	if ch.Password != "" && ch.Password != password {
		return protocol.ChannelWrongPassword
	}

	if ch.Limit > 0 && len(ch.members) >= ch.Limit {
		return protocol.ChannelFull
	}

	ch.members[clientID] = struct{}{}
	if r.joined[clientID] == nil {
		r.joined[clientID] = make(map[string]struct{})
	}
	r.joined[clientID][channelID] = struct{}{}
	return protocol.ChannelSuccess
}

// Leave removes a session from a channel. Unknown channels or
// non-members are a no-op.
func (r *ChannelRegistry) Leave(clientID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[channelID]; ok {
		delete(ch.members, clientID)
	}
	delete(r.joined[clientID], channelID)
}

// LeaveAll removes a session from every channel and returns the ids of
// the channels it had joined.
func (r *ChannelRegistry) LeaveAll(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for id := range r.joined[clientID] {
		if ch, ok := r.channels[id]; ok {
			delete(ch.members, clientID)
		}
		left = append(left, id)
	}
	delete(r.joined, clientID)
	return left
}

// ChannelsOf returns the ids of the channels the session has joined.
func (r *ChannelRegistry) ChannelsOf(clientID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.joined[clientID]))
	for id := range r.joined[clientID] {
		ids = append(ids, id)
	}
	return ids
}

// IsMember reports whether the session has joined the channel.
func (r *ChannelRegistry) IsMember(clientID, channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return false
	}
	_, joined := ch.members[clientID]
	return joined
}

// Members returns the client ids of the channel's sessions.
func (r *ChannelRegistry) Members(channelID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return nil
	}

	members := make([]string, 0, len(ch.members))
	for clientID := range ch.members {
		members = append(members, clientID)
	}
	return members
}

// Owner returns the owner identity id of the channel.
func (r *ChannelRegistry) Owner(channelID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return "", false
	}
	return ch.OwnerID, true
}

// Remove deletes a channel, stops its expiry timer, and returns the
// client ids of its members so the caller can notify them. The main
// channel cannot be removed.
func (r *ChannelRegistry) Remove(channelID string) ([]string, bool) {
	if channelID == MainChannelID {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return nil, false
	}

	if ch.expiry != nil {
		ch.expiry.Stop()
	}

	members := make([]string, 0, len(ch.members))
	for clientID := range ch.members {
		members = append(members, clientID)
		delete(r.joined[clientID], channelID)
	}

	delete(r.channels, channelID)
	return members, true
}

// AppendMessage stores a message in the channel's bounded history ring.
func (r *ChannelRegistry) AppendMessage(channelID string, msg StoredMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return
	}

	ch.messages = append(ch.messages, msg)
	if len(ch.messages) > maxChannelHistory {
		ch.messages = ch.messages[len(ch.messages)-maxChannelHistory:]
	}
}

// Snapshot returns the wire description of a channel without members.
func (r *ChannelRegistry) Snapshot(channelID string) (protocol.ChannelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[channelID]
	if !ok {
		return protocol.ChannelInfo{}, false
	}

	return protocol.ChannelInfo{
		ID:          ch.ID,
		Name:        ch.Name,
		HasPassword: ch.Password != "",
		Limit:       ch.Limit,
		Lifetime:    int64(ch.Lifetime / time.Second),
	}, true
}
