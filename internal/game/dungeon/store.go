// Package dungeon owns the ephemeral per-party dungeon instance: the run's
// seed, current stage level, live enemies, opened chests, and portal flag.
// An instance lives exactly as long as its owning party.
package dungeon

import (
	"sync"

	"github.com/cmdmmo/server/internal/protocol"
)

// Enemy is one live enemy tracked for late-join synchronization. HP stays
// unset on the server; authoritative HP lives client-side.
type Enemy struct {
	EnemyID  string
	Position protocol.Position
	Level    int
	IsBoss   bool
	Name     string
	HP       *int
}

// Instance is the dungeon state for one party's current run.
type Instance struct {
	PartyID      string
	Seed         int64
	Level        int
	Enemies      []Enemy
	Chests       []string
	PortalActive bool
}

// Store keeps at most one dungeon instance per party.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	instances map[string]*Instance // partyID → instance
}

// NewStore creates an empty dungeon Store.
func NewStore() *Store {
	return &Store{instances: make(map[string]*Instance)}
}

// Ensure creates the party's instance with the given seed and level if none
// exists. The first generator to report wins: when an instance already
// exists its stored seed and level are retained and returned.
//
// Postcondition: Returns the canonical (stored) seed and level, and whether
// this call created the instance.
func (s *Store) Ensure(partyID string, seed int64, level int) (int64, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst, ok := s.instances[partyID]; ok {
		return inst.Seed, inst.Level, false
	}

	s.instances[partyID] = &Instance{PartyID: partyID, Seed: seed, Level: level}
	return seed, level, true
}

// SpawnEnemy appends an enemy to the party's instance.
//
// Postcondition: Returns false when the party has no instance (no-op).
func (s *Store) SpawnEnemy(partyID string, e Enemy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[partyID]
	if !ok {
		return false
	}
	inst.Enemies = append(inst.Enemies, e)
	return true
}

// RemoveEnemy drops the matching enemy from the party's instance.
//
// Postcondition: Returns false when the party has no instance or no such
// enemy exists (no-op either way).
func (s *Store) RemoveEnemy(partyID, enemyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[partyID]
	if !ok {
		return false
	}
	for i, e := range inst.Enemies {
		if e.EnemyID == enemyID {
			inst.Enemies = append(inst.Enemies[:i], inst.Enemies[i+1:]...)
			return true
		}
	}
	return false
}

// OpenChest records an opened chest on the party's instance.
//
// Postcondition: Returns false when the party has no instance (no-op).
func (s *Store) OpenChest(partyID, chestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[partyID]
	if !ok {
		return false
	}
	inst.Chests = append(inst.Chests, chestID)
	return true
}

// MarkPortalActive flags the exit portal as spawned. Idempotent.
//
// Postcondition: Returns false when the party has no instance (no-op).
func (s *Store) MarkPortalActive(partyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[partyID]
	if !ok {
		return false
	}
	inst.PortalActive = true
	return true
}

// AdvanceStage moves the instance to a new stage level, clearing enemies and
// chests and resetting the portal flag. The instance models one stage at a
// time, not cumulative run history.
//
// Postcondition: Returns false when the party has no instance (no-op).
func (s *Store) AdvanceStage(partyID string, newLevel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[partyID]
	if !ok {
		return false
	}
	inst.Level = newLevel
	inst.Enemies = nil
	inst.Chests = nil
	inst.PortalActive = false
	return true
}

// Destroy frees the party's instance. Called when the owning party
// dissolves; destroying a party with no instance is a no-op.
func (s *Store) Destroy(partyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, partyID)
}

// Get returns a copy of the party's instance.
//
// Postcondition: Returns (copy, true) or (zero, false) when none exists.
func (s *Store) Get(partyID string) (Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[partyID]
	if !ok {
		return Instance{}, false
	}
	out := *inst
	out.Enemies = make([]Enemy, len(inst.Enemies))
	copy(out.Enemies, inst.Enemies)
	out.Chests = make([]string, len(inst.Chests))
	copy(out.Chests, inst.Chests)
	return out, true
}
