package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client wraps one websocket connection with a buffered outbound queue.
// It implements coordinator.Sender: Send never blocks, and a client whose
// queue overflows is closed rather than allowed to stall the router.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	writeTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// NewClient wraps an accepted websocket connection.
//
// Precondition: conn must be an open connection; sendBuffer must be >= 1.
func NewClient(conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration) *Client {
	return &Client{
		id:           uuid.NewString(),
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
	}
}

// ID returns the connection handle used by the presence registry and router.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for delivery.
//
// Postcondition: Returns false when the client's queue is full or the
// connection is closed; the caller treats that as a dead client.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.Close()
		return false
	}
}

// Close tears down the connection. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// writePump drains the outbound queue onto the socket until the client
// closes. Runs as one goroutine per connection.
func (c *Client) writePump() {
	for {
		select {
		case frame := <-c.send:
			if c.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readFrame blocks for the next client frame.
func (c *Client) readFrame(readTimeout time.Duration) ([]byte, error) {
	if readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}
