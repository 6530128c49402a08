/*
Package hook implements the event pipeline wrapped around every
meaningful state transition of the session core.

Each named event exposes a cancellable "before" notification and a
notify-only "after" notification. Before hooks run to completion in
registration order ahead of the guarded action; if any of them cancels,
the action is skipped entirely and no after hook fires. After hooks run
only on successful completion, in registration order, and cannot cancel
anything. External collaborators (moderation plugins, audit logging,
quota enforcement) observe and veto core behavior through this pipeline
without the core depending on them.
*/
package hook

import (
	"errors"
	"sync"
)

// Event names a lifecycle moment guarded by the pipeline.
type Event string

const (
	// PackageReceive fires around every inbound package dispatch.
	PackageReceive Event = "package.receive"

	// Login fires around binding an authenticated user to its client.
	Login Event = "login"

	// AccountCreate fires around registration of a new account.
	AccountCreate Event = "account.create"

	// ChannelCreate and ChannelRemove fire around channel registry mutation.
	ChannelCreate Event = "channel.create"
	ChannelRemove Event = "channel.remove"

	// GroupCreate and GroupRemove fire around group registry mutation.
	GroupCreate Event = "group.create"
	GroupRemove Event = "group.remove"

	// AccountEdit fires around persisted account edits (email, password, ban).
	AccountEdit Event = "account.edit"

	// IdentityEdit fires around identity edits (id, name, avatar).
	IdentityEdit Event = "identity.edit"
)

// ErrCancelled is returned by Do when a before hook vetoed the action.
var ErrCancelled = errors.New("action cancelled by before hook")

// Context is passed to before hooks. It carries the event payload and a
// mutable cancellation flag shared across the hook chain.
type Context struct {
	// Event is the lifecycle moment being guarded.
	Event Event

	// Data is the event payload; its concrete type is fixed per event.
	Data any

	cancelled bool
}

// Cancel vetoes the guarded action. Later before hooks still run, but
// the action is skipped and no after hook fires.
func (c *Context) Cancel() {
	c.cancelled = true
}

// Cancelled reports whether any hook has vetoed the action.
func (c *Context) Cancelled() bool {
	return c.cancelled
}

// BeforeFunc observes an imminent action and may veto it.
type BeforeFunc func(ctx *Context)

// AfterFunc observes a completed action. It receives the finalized
// payload and cannot cancel anything.
type AfterFunc func(event Event, data any)

// Pipeline holds the registered hooks per event. Registration order is
// invocation order. Safe for concurrent use.
type Pipeline struct {
	mu     sync.RWMutex
	before map[Event][]BeforeFunc
	after  map[Event][]AfterFunc
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		before: make(map[Event][]BeforeFunc),
		after:  make(map[Event][]AfterFunc),
	}
}

// Before registers a cancellable before hook for the event.
func (p *Pipeline) Before(event Event, fn BeforeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.before[event] = append(p.before[event], fn)
}

// After registers a notify-only after hook for the event.
func (p *Pipeline) After(event Event, fn AfterFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.after[event] = append(p.after[event], fn)
}

// Do runs the before hooks for the event, then the guarded action, then
// the after hooks. A veto skips the action and returns ErrCancelled; an
// action error suppresses the after hooks and is returned unchanged.
func (p *Pipeline) Do(event Event, data any, action func() error) error {
	p.mu.RLock()
	befores := p.before[event]
	p.mu.RUnlock()

	ctx := &Context{Event: event, Data: data}
	for _, fn := range befores {
		fn(ctx)
	}

	if ctx.Cancelled() {
		return ErrCancelled
	}

	if err := action(); err != nil {
		return err
	}

	p.notify(event, data)
	return nil
}

// notify runs the after hooks for the event in registration order.
func (p *Pipeline) notify(event Event, data any) {
	p.mu.RLock()
	afters := p.after[event]
	p.mu.RUnlock()

	for _, fn := range afters {
		fn(event, data)
	}
}
