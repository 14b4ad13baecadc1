// Package party owns party formation, membership, invitations, and leader
// succession. A party exists from the first successful invite until its last
// member leaves; there is no other terminal state.
package party

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cmdmmo/server/internal/protocol"
)

// Party is one transient player group.
//
// Invariants: Leader is always an element of Members; Members is non-empty
// while the party exists; Invites never overlaps Members.
type Party struct {
	ID      string
	Leader  string
	Members []string // insertion order = join order
	Invites map[string]bool
}

func (p *Party) snapshot() protocol.PartySnapshot {
	members := make([]string, len(p.Members))
	copy(members, p.Members)
	return protocol.PartySnapshot{PartyID: p.ID, Leader: p.Leader, Members: members}
}

func (p *Party) isMember(playerID string) bool {
	for _, m := range p.Members {
		if m == playerID {
			return true
		}
	}
	return false
}

// removeMember drops playerID from Members, promoting the earliest-joined
// remaining member when the leader departs. Returns false if playerID was
// not a member.
func (p *Party) removeMember(playerID string) bool {
	for i, m := range p.Members {
		if m != playerID {
			continue
		}
		p.Members = append(p.Members[:i], p.Members[i+1:]...)
		if p.Leader == playerID && len(p.Members) > 0 {
			p.Leader = p.Members[0]
		}
		return true
	}
	return false
}

// InviteResult describes a successfully recorded invitation.
type InviteResult struct {
	PartyID string
	Leader  string
}

// LeaveResult describes the outcome of a player leaving their party.
type LeaveResult struct {
	PartyID string
	// Dissolved is true when the departing player was the last member and
	// the party no longer exists. Party holds the post-departure snapshot
	// and is only meaningful when Dissolved is false.
	Dissolved bool
	Party     protocol.PartySnapshot
}

// AcceptResult describes the outcome of accepting an invitation.
type AcceptResult struct {
	// Party is the joined party after the accept.
	Party protocol.PartySnapshot
	// Departed is non-nil when the accepting player was a member of a
	// different party and was removed from it first.
	Departed *LeaveResult
}

// Manager tracks all live parties and the player→party index.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	parties  map[string]*Party // partyID → party
	memberOf map[string]string // playerID → partyID
	order    []string          // partyIDs in creation order
}

// NewManager creates an empty party Manager.
func NewManager() *Manager {
	return &Manager{
		parties:  make(map[string]*Party),
		memberOf: make(map[string]string),
	}
}

// Invite records an invitation from fromPlayer to toPlayer, creating a party
// with fromPlayer as sole member and leader if they have none.
//
// Postcondition: Returns the invite details and true, or false when the
// invite is a no-op: self-invite, toPlayer already a member of the party, or
// toPlayer already holding a pending invite for it. A player may hold
// pending invites from any number of distinct parties.
func (m *Manager) Invite(fromPlayer, toPlayer string) (InviteResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fromPlayer == toPlayer {
		return InviteResult{}, false
	}

	p := m.partyOf(fromPlayer)
	if p == nil {
		p = &Party{
			ID:      uuid.NewString(),
			Leader:  fromPlayer,
			Members: []string{fromPlayer},
			Invites: make(map[string]bool),
		}
		m.parties[p.ID] = p
		m.memberOf[fromPlayer] = p.ID
		m.order = append(m.order, p.ID)
	}

	if p.isMember(toPlayer) || p.Invites[toPlayer] {
		return InviteResult{}, false
	}

	p.Invites[toPlayer] = true
	return InviteResult{PartyID: p.ID, Leader: p.Leader}, true
}

// Accept consumes playerID's pending invite into partyID and adds them as a
// member. If the player currently belongs to a different party they leave it
// first, so the player→party index stays one-to-one.
//
// Postcondition: Returns false when the party does not exist. On success the
// result carries the joined party's snapshot and, when applicable, the
// outcome of the implicit departure from the previous party.
func (m *Manager) Accept(playerID, partyID string) (AcceptResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parties[partyID]
	if !ok {
		return AcceptResult{}, false
	}

	delete(p.Invites, playerID)

	var departed *LeaveResult
	if current := m.partyOf(playerID); current != nil && current.ID != partyID {
		res := m.leaveLocked(playerID, current)
		departed = &res
	}

	if !p.isMember(playerID) {
		p.Members = append(p.Members, playerID)
		m.memberOf[playerID] = p.ID
	}

	return AcceptResult{Party: p.snapshot(), Departed: departed}, true
}

// Decline removes playerID's pending invite into partyID.
//
// Postcondition: Returns false when the party does not exist or no such
// invite was pending. Membership is never touched.
func (m *Manager) Decline(playerID, partyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.parties[partyID]
	if !ok || !p.Invites[playerID] {
		return false
	}
	delete(p.Invites, playerID)
	return true
}

// Leave removes playerID from their current party, dissolving it when they
// were the last member and promoting the earliest-joined remaining member
// when the departing player led it.
//
// Postcondition: Returns false when the player has no party. When the party
// dissolves the caller is responsible for tearing down dependent state (the
// party's dungeon instance).
func (m *Manager) Leave(playerID string) (LeaveResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.partyOf(playerID)
	if p == nil {
		return LeaveResult{}, false
	}
	return m.leaveLocked(playerID, p), true
}

// leaveLocked removes playerID from p. Caller holds m.mu.
func (m *Manager) leaveLocked(playerID string, p *Party) LeaveResult {
	p.removeMember(playerID)
	delete(m.memberOf, playerID)

	if len(p.Members) == 0 {
		delete(m.parties, p.ID)
		for i, id := range m.order {
			if id == p.ID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		return LeaveResult{PartyID: p.ID, Dissolved: true}
	}
	return LeaveResult{PartyID: p.ID, Party: p.snapshot()}
}

// CurrentParty returns the snapshot of the player's party.
//
// Postcondition: Returns (snapshot, true) when the player is a member of a
// party, or (zero, false) otherwise.
func (m *Manager) CurrentParty(playerID string) (protocol.PartySnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.partyOf(playerID)
	if p == nil {
		return protocol.PartySnapshot{}, false
	}
	return p.snapshot(), true
}

// PendingInvites returns a summary of every party holding a pending invite
// for playerID, in party creation order.
func (m *Manager) PendingInvites(playerID string) []protocol.InviteSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]protocol.InviteSummary, 0)
	for _, id := range m.order {
		p := m.parties[id]
		if p.Invites[playerID] {
			out = append(out, protocol.InviteSummary{
				PartyID:     p.ID,
				Leader:      p.Leader,
				MemberCount: len(p.Members),
			})
		}
	}
	return out
}

// Members returns the member list of a party in join order.
//
// Postcondition: Returns (members, true) or (nil, false) when the party does
// not exist.
func (m *Manager) Members(partyID string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.parties[partyID]
	if !ok {
		return nil, false
	}
	members := make([]string, len(p.Members))
	copy(members, p.Members)
	return members, true
}

// PartyCount returns the number of live parties.
func (m *Manager) PartyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.parties)
}

// partyOf resolves the player→party index. Caller holds m.mu (read or write).
func (m *Manager) partyOf(playerID string) *Party {
	id, ok := m.memberOf[playerID]
	if !ok {
		return nil
	}
	return m.parties[id]
}
