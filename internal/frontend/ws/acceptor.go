// Package ws provides the realtime websocket frontend: it accepts client
// connections, feeds inbound frames to the session coordinator, and carries
// outbound frames back. All game semantics live behind the Handler; this
// package only moves bytes.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cmdmmo/server/internal/config"
	"github.com/cmdmmo/server/internal/coordinator"
)

// Handler is the coordinator-facing side of the frontend.
type Handler interface {
	// HandleConnect registers a new connection for outbound delivery.
	HandleConnect(s coordinator.Sender)
	// HandleMessage processes one raw inbound frame.
	HandleMessage(connID string, raw []byte)
	// HandleDisconnect tears down a connection's server-side state.
	HandleDisconnect(connID string)
}

// Acceptor listens for websocket upgrades on /ws and runs the read/write
// pumps for each connection.
type Acceptor struct {
	cfg     config.WebSocketConfig
	handler Handler
	logger  *zap.Logger

	upgrader websocket.Upgrader
	server   *http.Server

	mu       sync.Mutex
	listener net.Listener
	clients  map[*Client]struct{}
	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewAcceptor creates a websocket acceptor with the given configuration.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.WebSocketConfig, handler Handler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The game clients are served from arbitrary origins, as
			// the original deployment allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
		quit:    make(chan struct{}),
	}
}

// ListenAndServe starts the HTTP listener and blocks until Stop is called.
func (a *Acceptor) ListenAndServe() error {
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.serveWS)

	a.mu.Lock()
	a.listener = listener
	a.server = &http.Server{Handler: mux}
	a.mu.Unlock()

	a.logger.Info("websocket acceptor listening",
		zap.String("addr", listener.Addr().String()),
	)

	if err := a.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Acceptor) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("upgrading connection",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	a.wg.Add(1)
	go a.handleConn(conn, r.RemoteAddr)
}

// handleConn owns one connection's lifetime: register, pump, clean up.
func (a *Acceptor) handleConn(conn *websocket.Conn, remoteAddr string) {
	defer a.wg.Done()
	start := time.Now()

	client := NewClient(conn, a.cfg.SendBuffer, a.cfg.WriteTimeout)

	a.mu.Lock()
	a.clients[client] = struct{}{}
	a.mu.Unlock()

	defer func() {
		client.Close()
		a.mu.Lock()
		delete(a.clients, client)
		a.mu.Unlock()
	}()

	logger := a.logger.With(
		zap.String("conn_id", client.ID()),
		zap.String("remote_addr", remoteAddr),
	)
	logger.Info("client connected")

	a.handler.HandleConnect(client)
	defer a.handler.HandleDisconnect(client.ID())

	go client.writePump()

	for {
		select {
		case <-a.quit:
			return
		default:
		}

		msg, err := client.readFrame(a.cfg.ReadTimeout)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				logger.Debug("read error", zap.Error(err))
			}
			logger.Info("client disconnected",
				zap.Duration("duration", time.Since(start)),
			)
			return
		}

		a.handler.HandleMessage(client.ID(), msg)
	}
}

// Stop closes the listener and all live connections, then waits for the
// per-connection goroutines to finish. Idempotent.
func (a *Acceptor) Stop() {
	a.stopOnce.Do(a.stop)
}

func (a *Acceptor) stop() {
	close(a.quit)

	a.mu.Lock()
	server := a.server
	a.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}

	// Hijacked websocket connections are not tracked by the http.Server;
	// close them directly so blocked reads return.
	a.mu.Lock()
	for client := range a.clients {
		client.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()

	a.logger.Info("websocket acceptor stopped")
}

// Addr returns the actual listening address, or "" before ListenAndServe.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}
