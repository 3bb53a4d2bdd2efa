package ws

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"syncroom-service/internal/auth"
)

const (
	sendQueueSize = 64
	writeWait     = 5 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second // must stay below pongWait
)

var errClientClosed = errors.New("client closed")

// Client is one websocket connection with its authenticated identity and
// at most one room binding at a time. Outbound frames go through a bounded
// send queue drained by a single writer goroutine, so broadcast order is
// preserved per connection and a slow consumer never blocks a room.
type Client struct {
	Info     ConnInfo
	Identity auth.Identity

	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	closed   bool
	room     int
	callRoom string
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, identity auth.Identity, info ConnInfo) *Client {
	return &Client{
		Info:     info,
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// TrySend enqueues a frame. A full queue counts as a write failure: the
// connection is closed rather than letting it stall the room.
func (c *Client) TrySend(payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errors.New("send queue full")
	}
}

// Close shuts the send queue and the underlying connection. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Room returns the current room binding, 0 when unbound.
func (c *Client) Room() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

func (c *Client) setRoom(roomID int) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
}

// CallRoom returns the current call binding, empty when not in a call.
func (c *Client) CallRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.callRoom
}

func (c *Client) setCallRoom(room string) {
	c.mu.Lock()
	c.callRoom = room
	c.mu.Unlock()
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings. Runs as a single goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug().Err(err).Str("conn_id", c.Info.ConnID).Msg("websocket write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
