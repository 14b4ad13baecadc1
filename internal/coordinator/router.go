package coordinator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cmdmmo/server/internal/game/party"
	"github.com/cmdmmo/server/internal/game/presence"
	"github.com/cmdmmo/server/internal/observability"
	"github.com/cmdmmo/server/internal/protocol"
)

// Sender is the outbound side of one live client connection. Send must not
// block: implementations queue the frame and report false when the client
// cannot keep up, at which point the transport is expected to drop it.
type Sender interface {
	ID() string
	Send(frame []byte) bool
}

// Router fans outbound events out to connections. Delivery is
// fire-and-forget: no acknowledgement, no retry, no queueing for targets
// without a live connection.
type Router struct {
	mu       sync.RWMutex
	conns    map[string]Sender
	presence *presence.Registry
	parties  *party.Manager
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRouter creates a Router over the given presence registry and party
// manager.
//
// Precondition: all arguments must be non-nil.
func NewRouter(reg *presence.Registry, parties *party.Manager, logger *zap.Logger, metrics *observability.Metrics) *Router {
	return &Router{
		conns:    make(map[string]Sender),
		presence: reg,
		parties:  parties,
		logger:   logger,
		metrics:  metrics,
	}
}

// AddConn registers a live connection for delivery.
func (r *Router) AddConn(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[s.ID()] = s
}

// RemoveConn deregisters a connection. Safe to call for unknown ids.
func (r *Router) RemoveConn(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

// Unicast delivers an event to one player's connection. A player with no
// live connection silently drops the message.
func (r *Router) Unicast(playerID string, ev protocol.Event) {
	connID, ok := r.presence.ConnID(playerID)
	if !ok {
		r.logger.Debug("unicast target offline",
			zap.String("player_id", playerID),
			zap.String("event", ev.EventType()),
		)
		return
	}
	r.UnicastConn(connID, ev)
}

// UnicastConn delivers an event to one connection by its handle.
func (r *Router) UnicastConn(connID string, ev protocol.Event) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		r.logger.Error("encoding event", zap.String("event", ev.EventType()), zap.Error(err))
		return
	}

	r.mu.RLock()
	s, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.deliver(s, frame, ev.EventType())
	r.metrics.Broadcasts.WithLabelValues("unicast").Inc()
}

// PartyFanout delivers an event to every member of a party, optionally
// excluding one player (typically the sender of the triggering event).
// Members without a live connection are skipped.
func (r *Router) PartyFanout(partyID, excludePlayerID string, ev protocol.Event) {
	members, ok := r.parties.Members(partyID)
	if !ok {
		return
	}

	frame, err := protocol.Encode(ev)
	if err != nil {
		r.logger.Error("encoding event", zap.String("event", ev.EventType()), zap.Error(err))
		return
	}

	for _, member := range members {
		if member == excludePlayerID {
			continue
		}
		connID, online := r.presence.ConnID(member)
		if !online {
			continue
		}
		r.mu.RLock()
		s, live := r.conns[connID]
		r.mu.RUnlock()
		if !live {
			continue
		}
		r.deliver(s, frame, ev.EventType())
	}
	r.metrics.Broadcasts.WithLabelValues("party").Inc()
}

// Global delivers an event to every live connection.
func (r *Router) Global(ev protocol.Event) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		r.logger.Error("encoding event", zap.String("event", ev.EventType()), zap.Error(err))
		return
	}

	r.mu.RLock()
	targets := make([]Sender, 0, len(r.conns))
	for _, s := range r.conns {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		r.deliver(s, frame, ev.EventType())
	}
	r.metrics.Broadcasts.WithLabelValues("global").Inc()
}

func (r *Router) deliver(s Sender, frame []byte, eventType string) {
	if !s.Send(frame) {
		r.logger.Warn("dropping slow connection",
			zap.String("conn_id", s.ID()),
			zap.String("event", eventType),
		)
	}
}
