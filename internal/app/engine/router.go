package engine

import (
	"errors"

	"neochat/internal/app/hook"
	"neochat/internal/app/protocol"
)

// handlerFunc processes one inbound package for one client.
type handlerFunc func(c *Client, pkg protocol.Package)

// Route dispatches one inbound package. It is invoked once per package
// from the client's read pump, which serializes packages per connection;
// packages from different connections run concurrently.
//
// The before-receive hook runs ahead of the handler; a veto consumes the
// package silently (logged, no response to the sender). The after hook
// fires only when the handler ran. Unknown package types are ignored for
// forward compatibility, but always logged.
func (e *Engine) Route(c *Client, pkg protocol.Package) {
	handler, ok := e.handlers[pkg.Type]
	if !ok {
		e.logger.Warn().
			Str("client_id", c.ID).
			Str("type", string(pkg.Type)).
			Msg("Ignoring package of unknown type.")
		return
	}

	event := &PackageEvent{ClientID: c.ID, Package: pkg}
	err := e.hooks.Do(hook.PackageReceive, event, func() error {
		handler(c, pkg)
		return nil
	})

	if errors.Is(err, hook.ErrCancelled) {
		e.logger.Debug().
			Str("client_id", c.ID).
			Str("type", string(pkg.Type)).
			Msg("Package vetoed by before-receive hook.")
	}
}
