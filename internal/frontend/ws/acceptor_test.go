package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cmdmmo/server/internal/config"
	"github.com/cmdmmo/server/internal/coordinator"
)

// echoHandler records the session lifecycle and echoes every frame back.
type echoHandler struct {
	mu          sync.Mutex
	senders     map[string]coordinator.Sender
	messages    [][]byte
	disconnects []string
}

func newEchoHandler() *echoHandler {
	return &echoHandler{senders: make(map[string]coordinator.Sender)}
}

func (h *echoHandler) HandleConnect(s coordinator.Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.senders[s.ID()] = s
}

func (h *echoHandler) HandleMessage(connID string, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, raw)
	if s, ok := h.senders[connID]; ok {
		s.Send(raw)
	}
}

func (h *echoHandler) HandleDisconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.senders, connID)
	h.disconnects = append(h.disconnects, connID)
}

func (h *echoHandler) connCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.senders)
}

func (h *echoHandler) disconnectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.disconnects)
}

func startAcceptor(t *testing.T, handler Handler) *Acceptor {
	t.Helper()

	cfg := config.WebSocketConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Second,
		SendBuffer:   8,
	}
	a := NewAcceptor(cfg, handler, zaptest.NewLogger(t))

	go func() {
		if err := a.ListenAndServe(); err != nil {
			t.Errorf("acceptor: %v", err)
		}
	}()
	t.Cleanup(a.Stop)

	deadline := time.After(2 * time.Second)
	for a.Addr() == "" {
		select {
		case <-deadline:
			t.Fatal("acceptor did not start listening")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	return a
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAcceptor_EchoRoundTrip(t *testing.T) {
	handler := newEchoHandler()
	a := startAcceptor(t, handler)

	conn := dial(t, a.Addr())
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"type":"ping"}`), msg)
}

func TestAcceptor_DisconnectNotifiesHandler(t *testing.T) {
	handler := newEchoHandler()
	a := startAcceptor(t, handler)

	conn := dial(t, a.Addr())

	deadline := time.After(2 * time.Second)
	for handler.connCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("handler never saw the connection")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	require.NoError(t, conn.Close())

	deadline = time.After(2 * time.Second)
	for handler.disconnectCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("handler never saw the disconnect")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	assert.Equal(t, 0, handler.connCount())
}

func TestAcceptor_MultipleConnectionsGetDistinctIDs(t *testing.T) {
	handler := newEchoHandler()
	a := startAcceptor(t, handler)

	dial(t, a.Addr())
	dial(t, a.Addr())

	deadline := time.After(2 * time.Second)
	for handler.connCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("handler never saw both connections")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestAcceptor_StopClosesLiveConnections(t *testing.T) {
	handler := newEchoHandler()
	a := startAcceptor(t, handler)

	conn := dial(t, a.Addr())
	a.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
