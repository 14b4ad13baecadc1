package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConnPair upgrades a loopback websocket and returns both ends.
func newConnPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-serverCh
	t.Cleanup(func() { serverConn.Close() })
	return serverConn, clientConn
}

func TestClient_SendQueuesWithoutBlocking(t *testing.T) {
	serverConn, _ := newConnPair(t)
	c := NewClient(serverConn, 2, 0)

	// No writePump draining; Send fills the queue without blocking.
	assert.True(t, c.Send([]byte("one")))
	assert.True(t, c.Send([]byte("two")))
}

func TestClient_SendOverflowClosesClient(t *testing.T) {
	serverConn, _ := newConnPair(t)
	c := NewClient(serverConn, 1, 0)

	require.True(t, c.Send([]byte("one")))
	assert.False(t, c.Send([]byte("overflow")))

	// Once closed, every further Send reports failure.
	assert.False(t, c.Send([]byte("after close")))
}

func TestClient_WritePumpDelivers(t *testing.T) {
	serverConn, clientConn := newConnPair(t)
	c := NewClient(serverConn, 4, time.Second)
	go c.writePump()
	defer c.Close()

	require.True(t, c.Send([]byte("hello")))

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, msg, err := clientConn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Equal(t, []byte("hello"), msg)
}

func TestClient_ReadFrame(t *testing.T) {
	serverConn, clientConn := newConnPair(t)
	c := NewClient(serverConn, 4, 0)

	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte("inbound")))

	msg, err := c.readFrame(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("inbound"), msg)
}

func TestClient_CloseIdempotent(t *testing.T) {
	serverConn, _ := newConnPair(t)
	c := NewClient(serverConn, 1, 0)

	c.Close()
	c.Close()
	assert.False(t, c.Send([]byte("closed")))
}

func TestClient_UniqueIDs(t *testing.T) {
	serverConn, _ := newConnPair(t)
	a := NewClient(serverConn, 1, 0)
	b := NewClient(serverConn, 1, 0)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
