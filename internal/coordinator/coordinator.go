// Package coordinator receives inbound realtime events, validates them
// against current state, applies them through the presence, party, and
// dungeon managers, and fans the resulting notifications out through the
// Router. It holds no game state of its own.
package coordinator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cmdmmo/server/internal/game/dungeon"
	"github.com/cmdmmo/server/internal/game/party"
	"github.com/cmdmmo/server/internal/game/presence"
	"github.com/cmdmmo/server/internal/observability"
	"github.com/cmdmmo/server/internal/protocol"
)

// Coordinator is the single dispatch point for all inbound events.
//
// Each manager is individually safe for concurrent use, but transitions that
// span managers (a leave that dissolves a party and must tear down its
// dungeon) need to be atomic as a group, so mutating dispatch is serialized
// behind one mutex. Per-connection ordering is provided by the transport's
// single read goroutine per socket.
type Coordinator struct {
	mu       sync.Mutex
	presence *presence.Registry
	parties  *party.Manager
	dungeons *dungeon.Store
	router   *Router
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New creates a Coordinator over the given managers and router.
//
// Precondition: all arguments must be non-nil.
func New(
	reg *presence.Registry,
	parties *party.Manager,
	dungeons *dungeon.Store,
	router *Router,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		presence: reg,
		parties:  parties,
		dungeons: dungeons,
		router:   router,
		logger:   logger,
		metrics:  metrics,
	}
}

// HandleConnect registers a freshly accepted connection for outbound
// delivery. The player behind it stays anonymous until a join event arrives.
func (c *Coordinator) HandleConnect(s Sender) {
	c.router.AddConn(s)
}

// HandleMessage decodes and dispatches one raw inbound frame from the given
// connection. A malformed frame is dropped with a debug log; it never
// terminates the connection.
func (c *Coordinator) HandleMessage(connID string, raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		c.metrics.PayloadsDropped.Inc()
		c.logger.Debug("dropping malformed payload",
			zap.String("conn_id", connID),
			zap.Error(err),
		)
		return
	}

	c.metrics.EventsReceived.WithLabelValues(ev.EventType()).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case *protocol.Join:
		c.handleJoin(connID, e)
	case *protocol.Move:
		c.handleMove(e)
	case *protocol.PartyInvite:
		c.handlePartyInvite(e)
	case *protocol.PartyAccept:
		c.handlePartyAccept(e)
	case *protocol.PartyDecline:
		c.handlePartyDecline(e)
	case *protocol.PartyLeave:
		c.handlePartyLeave(e)
	case *protocol.GetOnlinePlayers:
		c.router.Unicast(e.RequesterID, protocol.OnlinePlayersList{
			Players: c.presence.ListOnline(e.RequesterID),
		})
	case *protocol.GetPendingInvites:
		c.router.Unicast(e.PlayerID, protocol.PendingInvitesList{
			Invites: c.parties.PendingInvites(e.PlayerID),
		})
	case *protocol.GetCurrentParty:
		c.handleGetCurrentParty(e)
	case *protocol.DungeonGenerate:
		c.handleDungeonGenerate(e)
	case *protocol.EnemySpawn:
		c.handleEnemySpawn(e)
	case *protocol.EnemyDied:
		c.handleEnemyDied(e)
	case *protocol.ChestOpened:
		c.handleChestOpened(e)
	case *protocol.PortalSpawned:
		c.handlePortalSpawned(e)
	case *protocol.StageChanged:
		c.handleStageChanged(e)
	case *protocol.CombatStart:
		c.router.PartyFanout(c.partyID(e.PlayerID, protocol.TypeCombatStart), e.PlayerID, protocol.CombatStarted{
			PlayerID: e.PlayerID,
			EnemyID:  e.EnemyID,
		})
	case *protocol.PlayerDamaged:
		c.router.PartyFanout(c.partyID(e.PlayerID, protocol.TypePlayerDamaged), e.PlayerID, protocol.PartyMemberDamaged{
			PlayerID:  e.PlayerID,
			Damage:    e.Damage,
			CurrentHP: e.CurrentHP,
		})
	}
}

// HandleDisconnect tears down a connection: the presence record goes away
// and the connection leaves the delivery table. Party membership is left
// intact on purpose — a disconnected player stays in their party until an
// explicit party_leave, so a reconnecting client finds its party where it
// left it.
func (c *Coordinator) HandleDisconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.router.RemoveConn(connID)

	playerID, ok := c.presence.Unregister(connID)
	if !ok {
		// Connection never joined; nothing to clean up.
		return
	}
	c.metrics.ConnectedPlayers.Set(float64(c.presence.Count()))

	if snap, inParty := c.parties.CurrentParty(playerID); inParty {
		c.logger.Debug("disconnected player remains party member",
			zap.String("player_id", playerID),
			zap.String("party_id", snap.PartyID),
		)
	}

	c.logger.Info("player disconnected",
		zap.String("player_id", playerID),
		zap.String("conn_id", connID),
	)
}

func (c *Coordinator) handleJoin(connID string, e *protocol.Join) {
	if !c.presence.Register(e.PlayerID, e.Position, connID) {
		c.logger.Debug("join ignored, player already online", zap.String("player_id", e.PlayerID))
		return
	}
	c.metrics.ConnectedPlayers.Set(float64(c.presence.Count()))

	c.logger.Info("player joined",
		zap.String("player_id", e.PlayerID),
		zap.String("conn_id", connID),
	)
	c.router.Global(protocol.Joined{Players: c.presence.ListOnline("")})
}

func (c *Coordinator) handleMove(e *protocol.Move) {
	if !c.presence.UpdatePosition(e.PlayerID, e.Position) {
		c.logger.Debug("move from unknown player", zap.String("player_id", e.PlayerID))
	}
	// The original server emits the full list even when the mover is
	// unknown; clients reconcile against it.
	c.router.Global(protocol.Moved{Players: c.presence.ListOnline("")})
}

func (c *Coordinator) handlePartyInvite(e *protocol.PartyInvite) {
	res, ok := c.parties.Invite(e.FromPlayer, e.ToPlayer)
	if !ok {
		c.logger.Debug("invite ignored",
			zap.String("from", e.FromPlayer),
			zap.String("to", e.ToPlayer),
		)
		return
	}
	c.metrics.ActiveParties.Set(float64(c.parties.PartyCount()))

	c.router.Unicast(e.ToPlayer, protocol.PartyInviteReceived{
		PartyID:    res.PartyID,
		FromPlayer: e.FromPlayer,
		Leader:     res.Leader,
	})
}

func (c *Coordinator) handlePartyAccept(e *protocol.PartyAccept) {
	res, ok := c.parties.Accept(e.PlayerID, e.PartyID)
	if !ok {
		c.logger.Debug("accept for missing party",
			zap.String("player_id", e.PlayerID),
			zap.String("party_id", e.PartyID),
		)
		return
	}

	// Accepting into a new party implicitly leaves the old one; its
	// remaining members learn about the departure the usual way.
	if dep := res.Departed; dep != nil {
		if dep.Dissolved {
			c.dungeons.Destroy(dep.PartyID)
		} else {
			c.router.PartyFanout(dep.PartyID, "", protocol.PartyUpdated{Party: dep.Party})
		}
	}
	c.metrics.ActiveParties.Set(float64(c.parties.PartyCount()))

	c.router.PartyFanout(res.Party.PartyID, "", protocol.PartyUpdated{Party: res.Party})
}

func (c *Coordinator) handlePartyDecline(e *protocol.PartyDecline) {
	if !c.parties.Decline(e.PlayerID, e.PartyID) {
		c.logger.Debug("decline without pending invite",
			zap.String("player_id", e.PlayerID),
			zap.String("party_id", e.PartyID),
		)
	}
}

func (c *Coordinator) handlePartyLeave(e *protocol.PartyLeave) {
	res, ok := c.parties.Leave(e.PlayerID)
	if !ok {
		c.logger.Debug("leave without party", zap.String("player_id", e.PlayerID))
		return
	}
	c.metrics.ActiveParties.Set(float64(c.parties.PartyCount()))

	if res.Dissolved {
		c.dungeons.Destroy(res.PartyID)
		c.logger.Info("party dissolved", zap.String("party_id", res.PartyID))
	} else {
		c.router.PartyFanout(res.PartyID, "", protocol.PartyUpdated{Party: res.Party})
	}

	c.router.Unicast(e.PlayerID, protocol.PartyLeft{Success: true})
}

func (c *Coordinator) handleGetCurrentParty(e *protocol.GetCurrentParty) {
	info := protocol.CurrentPartyInfo{}
	if snap, ok := c.parties.CurrentParty(e.PlayerID); ok {
		info.Party = &snap
	}
	c.router.Unicast(e.PlayerID, info)
}

func (c *Coordinator) handleDungeonGenerate(e *protocol.DungeonGenerate) {
	partyID := c.partyID(e.PlayerID, protocol.TypeDungeonGenerate)
	if partyID == "" {
		return
	}

	seed, level, created := c.dungeons.Ensure(partyID, e.Seed, e.Level)
	if !created {
		c.logger.Debug("dungeon already generated, keeping stored seed",
			zap.String("party_id", partyID),
			zap.Int64("stored_seed", seed),
			zap.Int64("reported_seed", e.Seed),
		)
	}

	// Everyone, the reporting member included, converges on the stored
	// seed: a losing second generator regenerates from the canonical one.
	c.router.PartyFanout(partyID, "", protocol.DungeonSeed{Seed: seed, Level: level})
}

func (c *Coordinator) handleEnemySpawn(e *protocol.EnemySpawn) {
	partyID := c.partyID(e.PlayerID, protocol.TypeEnemySpawn)
	if partyID == "" {
		return
	}

	if !c.dungeons.SpawnEnemy(partyID, dungeon.Enemy{
		EnemyID:  e.EnemyID,
		Position: e.Position,
		Level:    e.Level,
		IsBoss:   e.IsBoss,
		Name:     e.Name,
	}) {
		c.logger.Debug("enemy spawn before dungeon generate", zap.String("party_id", partyID))
	}

	c.router.PartyFanout(partyID, e.PlayerID, protocol.EnemySpawned{
		EnemyID:  e.EnemyID,
		Position: e.Position,
		Level:    e.Level,
		IsBoss:   e.IsBoss,
		Name:     e.Name,
	})
}

func (c *Coordinator) handleEnemyDied(e *protocol.EnemyDied) {
	partyID := c.partyID(e.PlayerID, protocol.TypeEnemyDied)
	if partyID == "" {
		return
	}

	if !c.dungeons.RemoveEnemy(partyID, e.EnemyID) {
		c.logger.Debug("death report for unknown enemy",
			zap.String("party_id", partyID),
			zap.String("enemy_id", e.EnemyID),
		)
	}

	c.router.PartyFanout(partyID, e.PlayerID, protocol.EnemyRemoved{EnemyID: e.EnemyID})
}

func (c *Coordinator) handleChestOpened(e *protocol.ChestOpened) {
	partyID := c.partyID(e.PlayerID, protocol.TypeChestOpened)
	if partyID == "" {
		return
	}

	if !c.dungeons.OpenChest(partyID, e.ChestID) {
		c.logger.Debug("chest opened before dungeon generate", zap.String("party_id", partyID))
	}

	c.router.PartyFanout(partyID, e.PlayerID, protocol.ChestOpenedSync{
		ChestID:  e.ChestID,
		Position: e.Position,
	})
}

func (c *Coordinator) handlePortalSpawned(e *protocol.PortalSpawned) {
	partyID := c.partyID(e.PlayerID, protocol.TypePortalSpawned)
	if partyID == "" {
		return
	}

	if !c.dungeons.MarkPortalActive(partyID) {
		c.logger.Debug("portal spawned before dungeon generate", zap.String("party_id", partyID))
	}

	c.router.PartyFanout(partyID, e.PlayerID, protocol.PortalSpawnedSync{Position: e.Position})
}

func (c *Coordinator) handleStageChanged(e *protocol.StageChanged) {
	partyID := c.partyID(e.PlayerID, protocol.TypeStageChanged)
	if partyID == "" {
		return
	}

	if !c.dungeons.AdvanceStage(partyID, e.NewLevel) {
		c.logger.Debug("stage change before dungeon generate", zap.String("party_id", partyID))
	}

	c.router.PartyFanout(partyID, e.PlayerID, protocol.StageChangedSync{NewLevel: e.NewLevel})
}

// partyID resolves a player's current party for a dungeon event, logging the
// suppressed no-op when they have none. Returns "" when the player is not in
// a party; PartyFanout on "" is itself a no-op.
func (c *Coordinator) partyID(playerID, eventType string) string {
	snap, ok := c.parties.CurrentParty(playerID)
	if !ok {
		c.logger.Debug("dungeon event from player without party",
			zap.String("player_id", playerID),
			zap.String("event", eventType),
		)
		return ""
	}
	return snap.PartyID
}
