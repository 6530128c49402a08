/*
Package engine implements the package-dispatch protocol engine: the
session core that receives typed packages from connected clients,
advances per-connection session state, enforces authorization and
uniqueness invariants, mutates the shared registries, and emits
responses and broadcasts under the hook pipeline.

This file defines the Client, an active transport connection. It owns
the read and write pumps; every package a client sends is processed in
arrival order on its read pump, which gives the per-connection
serialization the router relies on.
*/
package engine

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"neochat/internal/app/protocol"
	"neochat/internal/pkg/logx"
	"neochat/internal/pkg/randx"
)

const (
	// timeout for writing to the connection.
	writeWait = 10 * time.Second

	// maximum time to wait for a Pong from the client.
	pongWait = 60 * time.Second

	// frequency of server Ping messages.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size in bytes of an inbound package envelope.
	maxPackageSize = 8192

	// sendQueueSize is the buffered outbound queue per client.
	sendQueueSize = 256

	// WsCloseCodePunished is the close code sent when a connection is
	// force-closed by moderation or session takeover.
	WsCloseCodePunished = 4001
)

// Conn is the transport handle the engine needs from a connection.
// *websocket.Conn satisfies it; tests substitute a stub.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client represents a live transport connection: an opaque id plus the
// capability to send packages. Session identity lives in the session
// registry, not here.
type Client struct {
	// ID is the opaque connection id.
	ID string

	engine *Engine
	conn   Conn

	// send queues outbound envelopes for the write pump. closed guards
	// against queueing into a closed channel after a kick. closeMsg,
	// when set, is the close frame the write pump emits on shutdown;
	// only the write pump touches the conn, gorilla allows one writer.
	sendMu   sync.Mutex
	send     chan []byte
	closed   bool
	closeMsg []byte

	logger zerolog.Logger
}

// newClient constructs a Client for an accepted connection.
func newClient(e *Engine, conn Conn) *Client {
	id := randx.ClientID()

	return &Client{
		ID:     id,
		engine: e,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().Str("client_id", id).Logger(),
	}
}

// ReadPump reads envelopes from the connection and routes them, strictly
// in arrival order. It handles heartbeats and performs cleanup when the
// connection closes.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxPackageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading package (client close/going away)")
			}
			break
		}

		pkg, err := protocol.Parse(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Client sent a malformed package envelope")
			continue
		}

		c.engine.Route(c, pkg)
	}
}

// cleanupOnDisconnect tears down the session and connection registries
// for this client once its read pump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.engine.Disconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump drains the send queue onto the connection and keeps the
// heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame()); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error().Err(err).Msg("Error writing package")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// Send queues a package for delivery. A full queue drops the package
// rather than blocking the caller; broadcasts must tolerate slow or
// disconnecting clients.
func (c *Client) Send(pkg protocol.Package) error {
	raw, err := protocol.Encode(pkg)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(pkg.Type)).Msg("Error encoding package")
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return errClientClosed
	}

	select {
	case c.send <- raw:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Str("type", string(pkg.Type)).Msg("Client send queue full, dropping package")
		return errSendQueueFull
	}
}

// Kick shuts the connection down with a moderation close frame. It
// closes the send queue; the write pump flushes what was already
// queued, emits the close frame, and closes the conn, which in turn
// terminates the read pump.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodePunished).
		Str("reason", reason).
		Msg("Force-closing client connection.")

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.closeMsg = websocket.FormatCloseMessage(WsCloseCodePunished, reason)
	close(c.send)
}

// closeFrame returns the close payload the write pump should emit: the
// moderation frame after a kick, an empty close otherwise.
func (c *Client) closeFrame() []byte {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closeMsg != nil {
		return c.closeMsg
	}
	return []byte{}
}

// closeQueue closes the send channel exactly once.
func (c *Client) closeQueue() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
