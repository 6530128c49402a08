package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neochat/internal/app/account"
	"neochat/internal/app/protocol"
)

// recordingConn captures every frame the write pump emits.
type recordingConn struct {
	stubConn

	mu     sync.Mutex
	frames []recordedFrame
}

type recordedFrame struct {
	messageType int
	data        []byte
}

func (r *recordingConn) WriteMessage(messageType int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, recordedFrame{messageType: messageType, data: data})
	return nil
}

func (r *recordingConn) recorded() []recordedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedFrame(nil), r.frames...)
}

func TestKick_CloseFrameFlushedByWritePump(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	conn := &recordingConn{}
	c := newClient(e, conn)

	pkg, err := protocol.New(protocol.TypeDisconnectReason, protocol.DisconnectReasonContent{Reason: "spamming"})
	require.NoError(t, err)
	require.NoError(t, c.Send(pkg))

	c.Kick("spamming")

	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("write pump never drained after the kick")
	}

	frames := conn.recorded()
	require.Len(t, frames, 2)

	assert.Equal(t, websocket.TextMessage, frames[0].messageType, "the queued reason flushes first")
	assert.Equal(t, websocket.CloseMessage, frames[1].messageType)
	assert.Equal(t, websocket.FormatCloseMessage(WsCloseCodePunished, "spamming"), frames[1].data)
}

func TestKick_SecondKickIsNoOp(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, account.NewMemoryStore())
	c := newClient(e, &recordingConn{})

	c.Kick("first")
	c.Kick("second")

	assert.Equal(t, websocket.FormatCloseMessage(WsCloseCodePunished, "first"), c.closeFrame())
}
