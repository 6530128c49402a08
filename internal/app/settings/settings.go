/*
Package settings provides the live server settings consumed by the
session core.

Settings are read fresh on every request (Meta, login gating) rather
than cached at startup, so edits through the EditSettings package take
effect immediately.
*/
package settings

import (
	"encoding/json"
	"sync"
)

// ScopeServer is the scope of the server-wide settings model.
const ScopeServer = "server"

// ServerSettings is the editable server-wide settings model.
type ServerSettings struct {
	ServerName          string `json:"serverName"`
	GuestsAllowed       bool   `json:"guestsAllowed"`
	RegistrationAllowed bool   `json:"registrationAllowed"`
}

// Provider holds the mutable settings models behind a lock.
type Provider struct {
	mu     sync.RWMutex
	server ServerSettings
}

// NewProvider seeds the provider with the initial server settings.
func NewProvider(initial ServerSettings) *Provider {
	return &Provider{server: initial}
}

// Server returns a snapshot of the current server settings.
func (p *Provider) Server() ServerSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.server
}

// Open returns the settings model for the given scope. The second
// return is false for unknown scopes.
func (p *Provider) Open(scope string) (any, bool) {
	if scope != ScopeServer {
		return nil, false
	}
	return p.Server(), true
}

// Edit applies an edited model to the given scope. It returns false
// with a reason when the scope is unknown or the model malformed.
func (p *Provider) Edit(scope string, model json.RawMessage) (bool, string) {
	if scope != ScopeServer {
		return false, "unknown scope"
	}

	var edited ServerSettings
	if err := json.Unmarshal(model, &edited); err != nil {
		return false, "malformed settings model"
	}

	if edited.ServerName == "" {
		return false, "server name must not be empty"
	}

	p.mu.Lock()
	p.server = edited
	p.mu.Unlock()

	return true, ""
}
