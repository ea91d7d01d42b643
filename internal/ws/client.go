package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size.
	maxMessageSize = 8192

	// Outbound buffer per connection.
	sendBuffer = 64
)

// Client is one live connection handle. A user may hold several at once
// (multiple devices or tabs); each gets its own Client.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewClient wraps an upgraded websocket connection in a handle with a fresh
// opaque id.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   ulid.Make().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Enqueue hands a payload to the write pump without blocking the broadcaster.
// Returns false when the buffer is full or the client is shutting down.
func (c *Client) Enqueue(payload []byte) bool {
	defer func() {
		// the send channel closes when the read side tears the client down;
		// a broadcast racing that close is dropped, not propagated
		recover()
	}()
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// writePump pumps queued payloads to the websocket connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
