package protocol

// Target is an addressing expression for outbound packages: either
// exactly one client, or every connected client except a given set.
type Target struct {
	// ClientID addresses a single connection when Broadcast is false.
	ClientID string

	// Broadcast addresses all connections minus Exclude.
	Broadcast bool

	// Exclude lists client ids skipped by a broadcast.
	Exclude []string
}

// To addresses a single client.
func To(clientID string) Target {
	return Target{ClientID: clientID}
}

// AllExcept addresses every connected client except the given ones.
func AllExcept(clientIDs ...string) Target {
	return Target{Broadcast: true, Exclude: clientIDs}
}

// Excludes reports whether the broadcast target skips the given client.
func (t Target) Excludes(clientID string) bool {
	for _, id := range t.Exclude {
		if id == clientID {
			return true
		}
	}
	return false
}
