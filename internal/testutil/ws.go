package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cmdmmo/server/internal/protocol"
)

// WSClient is a websocket test client for integration testing the realtime
// frontend.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// NewWSClient dials ws://addr/ws and returns a connected test client.
//
// Precondition: addr must be a "host:port" string with a listening acceptor.
// Postcondition: Returns a connected WSClient or fails the test.
func NewWSClient(t *testing.T, addr string) *WSClient {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &WSClient{conn: conn, t: t}
}

// SendEvent marshals and sends one typed event.
func (c *WSClient) SendEvent(ev protocol.Event) {
	c.t.Helper()

	frame, err := protocol.Encode(ev)
	if err != nil {
		c.t.Fatalf("encoding %s event: %v", ev.EventType(), err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.t.Fatalf("sending %s event: %v", ev.EventType(), err)
	}
}

// SendRaw sends a raw text frame, for exercising malformed input handling.
func (c *WSClient) SendRaw(frame []byte) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.t.Fatalf("sending raw frame: %v", err)
	}
}

// ReadEnvelope blocks for the next server frame and returns its envelope.
func (c *WSClient) ReadEnvelope(timeout time.Duration) protocol.Envelope {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.t.Fatalf("unmarshalling envelope: %v (frame %q)", err, frame)
	}
	return env
}

// ExpectEvent reads frames until one of the given type arrives, failing the
// test on timeout. Interleaved frames of other types are discarded.
func (c *WSClient) ExpectEvent(eventType string, timeout time.Duration, into any) {
	c.t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("timed out waiting for %s event", eventType)
		}
		env := c.ReadEnvelope(remaining)
		if env.Type != eventType {
			continue
		}
		if into != nil {
			if err := json.Unmarshal(env.Data, into); err != nil {
				c.t.Fatalf("unmarshalling %s payload: %v", eventType, err)
			}
		}
		return
	}
}

// Close closes the underlying connection.
func (c *WSClient) Close() {
	_ = c.conn.Close()
}
