// Package presence tracks which players are currently connected and through
// which connection. State lives only in memory; a presence record exists
// exactly as long as the player's live connection does.
package presence

import (
	"sync"

	"github.com/cmdmmo/server/internal/protocol"
)

// Player is one connected player's presence record.
type Player struct {
	// PlayerID is the identity the client joined with.
	PlayerID string
	// Position is the last position the client reported.
	Position protocol.Position
	// ConnID is the connection handle the player joined through.
	ConnID string
}

// Registry tracks connected players in registration order.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player // playerID → record
	byConn  map[string]string  // connID → playerID
	order   []string           // playerIDs in registration order
}

// NewRegistry creates an empty presence Registry.
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
		byConn:  make(map[string]string),
	}
}

// Register records a player as online.
//
// Precondition: playerID and connID must be non-empty.
// Postcondition: Returns true if the player was added, false if the playerID
// was already registered (in which case nothing changes).
func (r *Registry) Register(playerID string, pos protocol.Position, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[playerID]; exists {
		return false
	}

	r.players[playerID] = &Player{PlayerID: playerID, Position: pos, ConnID: connID}
	r.byConn[connID] = playerID
	r.order = append(r.order, playerID)
	return true
}

// UpdatePosition overwrites a registered player's position.
//
// Postcondition: Returns false if the player is not registered (no-op).
func (r *Registry) UpdatePosition(playerID string, pos protocol.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return false
	}
	p.Position = pos
	return true
}

// Unregister removes the presence record owned by the given connection.
//
// Postcondition: Returns the freed playerID and true, or ("", false) when the
// connection never joined. Disconnect of an unjoined connection is not an
// error.
func (r *Registry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}

	delete(r.byConn, connID)
	delete(r.players, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return playerID, true
}

// ConnID returns the connection handle a player joined through.
//
// Postcondition: Returns (connID, true) if the player is online, or
// ("", false) otherwise.
func (r *Registry) ConnID(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[playerID]
	if !ok {
		return "", false
	}
	return p.ConnID, true
}

// ListOnline returns the online set in registration order, minus the
// excluded playerID. Pass "" to exclude nobody.
func (r *Registry) ListOnline(excluding string) []protocol.PlayerState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.PlayerState, 0, len(r.order))
	for _, id := range r.order {
		if id == excluding {
			continue
		}
		p := r.players[id]
		out = append(out, protocol.PlayerState{PlayerID: p.PlayerID, Position: p.Position})
	}
	return out
}

// Count returns the number of connected players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
