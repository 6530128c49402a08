package engine

import "sync"

// ConnectionRegistry tracks live transport connections by client id.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewConnectionRegistry returns an empty ConnectionRegistry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{clients: make(map[string]*Client)}
}

// Add registers a connected client.
func (r *ConnectionRegistry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// Remove deregisters a client. Removing an unknown id is a no-op.
func (r *ConnectionRegistry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// Get returns the client with the given id, or nil.
func (r *ConnectionRegistry) Get(clientID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[clientID]
}

// All returns a snapshot of the connected clients.
func (r *ConnectionRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Len returns the number of live connections.
func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
