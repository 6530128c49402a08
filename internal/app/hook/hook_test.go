package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_NoHooks_RunsAction(t *testing.T) {
	t.Parallel()

	p := NewPipeline()

	ran := false
	err := p.Do(Login, nil, func() error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDo_BeforeHooksRunInRegistrationOrder(t *testing.T) {
	t.Parallel()

	p := NewPipeline()

	var order []string
	p.Before(ChannelCreate, func(ctx *Context) { order = append(order, "first") })
	p.Before(ChannelCreate, func(ctx *Context) { order = append(order, "second") })
	p.After(ChannelCreate, func(event Event, data any) { order = append(order, "after") })

	err := p.Do(ChannelCreate, nil, func() error {
		order = append(order, "action")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "action", "after"}, order)
}

func TestDo_CancelSkipsActionAndAfterHooks(t *testing.T) {
	t.Parallel()

	p := NewPipeline()

	var laterRan, actionRan, afterRan bool
	p.Before(Login, func(ctx *Context) { ctx.Cancel() })
	p.Before(Login, func(ctx *Context) { laterRan = true })
	p.After(Login, func(event Event, data any) { afterRan = true })

	err := p.Do(Login, nil, func() error {
		actionRan = true
		return nil
	})

	require.ErrorIs(t, err, ErrCancelled)
	assert.True(t, laterRan, "before hooks after the cancelling one still run")
	assert.False(t, actionRan)
	assert.False(t, afterRan)
}

func TestDo_ActionErrorSuppressesAfterHooks(t *testing.T) {
	t.Parallel()

	p := NewPipeline()

	afterRan := false
	p.After(AccountCreate, func(event Event, data any) { afterRan = true })

	sentinel := errors.New("store down")
	err := p.Do(AccountCreate, nil, func() error { return sentinel })

	require.ErrorIs(t, err, sentinel)
	assert.False(t, afterRan)
}

func TestDo_AfterHookSeesPayload(t *testing.T) {
	t.Parallel()

	p := NewPipeline()

	type payload struct{ ID string }

	var seen *payload
	p.After(GroupCreate, func(event Event, data any) {
		seen = data.(*payload)
	})

	data := &payload{ID: "mods"}
	require.NoError(t, p.Do(GroupCreate, data, func() error { return nil }))
	assert.Same(t, data, seen)
}

func TestDo_HooksAreScopedPerEvent(t *testing.T) {
	t.Parallel()

	p := NewPipeline()

	p.Before(ChannelRemove, func(ctx *Context) { ctx.Cancel() })

	err := p.Do(ChannelCreate, nil, func() error { return nil })
	assert.NoError(t, err)
}
