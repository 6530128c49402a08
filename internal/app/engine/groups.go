package engine

import (
	"sort"
	"sync"

	"neochat/internal/app/protocol"
)

// Well-known group ids. The guest and member defaults are assigned on
// LoginFinished; admins is seeded for operators.
const (
	GroupGuests  = "guests"
	GroupMembers = "members"
	GroupAdmins  = "admins"
)

// Permissions checked by the engine.
const (
	PermModeratePrefix      = "moderate."
	PermModerateKick        = "moderate.kick"
	PermModerateBan         = "moderate.ban"
	PermModerateUnban       = "moderate.unban"
	PermModerateViewAccount = "moderate.viewaccounts"
	PermChannelDelete       = "channel.delete"
	PermGroupCreate         = "group.create"
	PermGroupDelete         = "group.delete"
	PermSettingsEdit        = "settings.edit"
)

// Group is a named permission group. Groups are ordered by sort value
// for client display.
type Group struct {
	ID          string
	Name        string
	SortOrder   int
	Permissions map[string]struct{}

	// members holds the client ids of sessions in the group.
	members map[string]struct{}
}

// GroupSpec carries the parameters of a group creation.
type GroupSpec struct {
	ID          string
	Name        string
	SortOrder   int
	Permissions []string
}

// GroupRegistry holds the permission groups, keyed by id.
type GroupRegistry struct {
	mu     sync.RWMutex
	groups map[string]*Group
}

// NewGroupRegistry returns a registry seeded with the default guest,
// member, and admin groups.
func NewGroupRegistry() *GroupRegistry {
	r := &GroupRegistry{groups: make(map[string]*Group)}

	r.create(GroupSpec{ID: GroupAdmins, Name: "Admins", SortOrder: 0, Permissions: []string{
		PermModerateKick,
		PermModerateBan,
		PermModerateUnban,
		PermModerateViewAccount,
		PermChannelDelete,
		PermGroupCreate,
		PermGroupDelete,
		PermSettingsEdit,
	}})
	r.create(GroupSpec{ID: GroupMembers, Name: "Members", SortOrder: 50})
	r.create(GroupSpec{ID: GroupGuests, Name: "Guests", SortOrder: 100})

	return r
}

func (r *GroupRegistry) create(spec GroupSpec) protocol.GroupOpResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[spec.ID]; ok {
		return protocol.GroupIDInUse
	}

	perms := make(map[string]struct{}, len(spec.Permissions))
	for _, p := range spec.Permissions {
		perms[p] = struct{}{}
	}

	r.groups[spec.ID] = &Group{
		ID:          spec.ID,
		Name:        spec.Name,
		SortOrder:   spec.SortOrder,
		Permissions: perms,
		members:     make(map[string]struct{}),
	}

	return protocol.GroupSuccess
}

// Create registers a new group. The caller wraps this in the
// group-create hook pair.
func (r *GroupRegistry) Create(spec GroupSpec) protocol.GroupOpResult {
	return r.create(spec)
}

// Remove deletes a group. Absence is reported to the caller, never
// swallowed.
func (r *GroupRegistry) Remove(groupID string) protocol.GroupOpResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[groupID]; !ok {
		return protocol.GroupNotFound
	}

	delete(r.groups, groupID)
	return protocol.GroupSuccess
}

// AddMember puts a session into a group.
func (r *GroupRegistry) AddMember(groupID, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		return false
	}

	g.members[clientID] = struct{}{}
	return true
}

// RemoveClient drops a session from every group on disconnect.
func (r *GroupRegistry) RemoveClient(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.groups {
		delete(g.members, clientID)
	}
}

// MemberOfAny reports whether the session belongs to at least one group.
func (r *GroupRegistry) MemberOfAny(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.groups {
		if _, ok := g.members[clientID]; ok {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the session's groups grants the
// permission.
func (r *GroupRegistry) HasPermission(clientID, permission string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.groups {
		if _, member := g.members[clientID]; !member {
			continue
		}
		if _, ok := g.Permissions[permission]; ok {
			return true
		}
	}
	return false
}

// Catalog returns the wire description of all groups, ordered by sort
// value for client display.
func (r *GroupRegistry) Catalog() []protocol.GroupInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]protocol.GroupInfo, 0, len(r.groups))
	for _, g := range r.groups {
		perms := make([]string, 0, len(g.Permissions))
		for p := range g.Permissions {
			perms = append(perms, p)
		}
		sort.Strings(perms)

		infos = append(infos, protocol.GroupInfo{
			ID:          g.ID,
			Name:        g.Name,
			SortOrder:   g.SortOrder,
			Permissions: perms,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].SortOrder != infos[j].SortOrder {
			return infos[i].SortOrder < infos[j].SortOrder
		}
		return infos[i].ID < infos[j].ID
	})

	return infos
}
