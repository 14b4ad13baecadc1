// Package protocol defines the JSON event catalog spoken over the realtime
// websocket channel. Field names are normative: the deployed game clients
// match on them byte-for-byte, so renaming anything here is a breaking
// wire change.
package protocol

// Inbound event types.
const (
	TypeJoin              = "join"
	TypeMove              = "move"
	TypePartyInvite       = "party_invite"
	TypePartyAccept       = "party_accept"
	TypePartyDecline      = "party_decline"
	TypePartyLeave        = "party_leave"
	TypeGetOnlinePlayers  = "get_online_players"
	TypeGetPendingInvites = "get_pending_invites"
	TypeGetCurrentParty   = "get_current_party"
	TypeDungeonGenerate   = "dungeon_generate"
	TypeEnemySpawn        = "enemy_spawn"
	TypeEnemyDied         = "enemy_died"
	TypeChestOpened       = "chest_opened"
	TypePortalSpawned     = "portal_spawned"
	TypeStageChanged      = "stage_changed"
	TypeCombatStart       = "combat_start"
	TypePlayerDamaged     = "player_damaged"
)

// Outbound event types.
const (
	TypeJoined              = "joined"
	TypeMoved               = "moved"
	TypePartyInviteReceived = "party_invite_received"
	TypePartyUpdated        = "party_updated"
	TypePartyLeft           = "party_left"
	TypeOnlinePlayersList   = "online_players_list"
	TypePendingInvitesList  = "pending_invites_list"
	TypeCurrentPartyInfo    = "current_party_info"
	TypeDungeonSeed         = "dungeon_seed"
	TypeEnemySpawned        = "enemy_spawned"
	TypeEnemyRemoved        = "enemy_removed"
	TypeChestOpenedSync     = "chest_opened_sync"
	TypePortalSpawnedSync   = "portal_spawned_sync"
	TypeStageChangedSync    = "stage_changed_sync"
	TypeCombatStarted       = "combat_started"
	TypePartyMemberDamaged  = "party_member_damaged"
)

// Position is a 2D map coordinate reported by clients.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerState is one entry of the global online-players list.
type PlayerState struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"playerPosition"`
}

// PartySnapshot is the client-facing view of a party.
type PartySnapshot struct {
	PartyID string   `json:"partyId"`
	Leader  string   `json:"leader"`
	Members []string `json:"members"`
}

// InviteSummary is one entry of a player's pending-invites list.
type InviteSummary struct {
	PartyID     string `json:"partyId"`
	Leader      string `json:"leader"`
	MemberCount int    `json:"memberCount"`
}

// Event is implemented by every payload in the catalog. EventType returns
// the envelope tag the payload travels under.
type Event interface {
	EventType() string
}

// Inbound payloads.

type Join struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"playerPosition"`
}

type Move struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"playerPosition"`
}

type PartyInvite struct {
	FromPlayer string `json:"fromPlayer"`
	ToPlayer   string `json:"toPlayer"`
}

type PartyAccept struct {
	PlayerID string `json:"playerId"`
	PartyID  string `json:"partyId"`
}

type PartyDecline struct {
	PlayerID string `json:"playerId"`
	PartyID  string `json:"partyId"`
}

type PartyLeave struct {
	PlayerID string `json:"playerId"`
}

type GetOnlinePlayers struct {
	RequesterID string `json:"requesterId"`
}

type GetPendingInvites struct {
	PlayerID string `json:"playerId"`
}

type GetCurrentParty struct {
	PlayerID string `json:"playerId"`
}

type DungeonGenerate struct {
	PlayerID string `json:"playerId"`
	Seed     int64  `json:"seed"`
	Level    int    `json:"level"`
}

type EnemySpawn struct {
	PlayerID string   `json:"playerId"`
	EnemyID  string   `json:"enemyId"`
	Position Position `json:"position"`
	Level    int      `json:"level"`
	IsBoss   bool     `json:"isBoss"`
	Name     string   `json:"name"`
}

type EnemyDied struct {
	PlayerID string `json:"playerId"`
	EnemyID  string `json:"enemyId"`
}

type ChestOpened struct {
	PlayerID string   `json:"playerId"`
	ChestID  string   `json:"chestId"`
	Position Position `json:"position"`
}

type PortalSpawned struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
}

type StageChanged struct {
	PlayerID string `json:"playerId"`
	NewLevel int    `json:"newLevel"`
}

type CombatStart struct {
	PlayerID string `json:"playerId"`
	EnemyID  string `json:"enemyId"`
}

type PlayerDamaged struct {
	PlayerID  string `json:"playerId"`
	Damage    int    `json:"damage"`
	CurrentHP int    `json:"currentHp"`
}

func (Join) EventType() string              { return TypeJoin }
func (Move) EventType() string              { return TypeMove }
func (PartyInvite) EventType() string       { return TypePartyInvite }
func (PartyAccept) EventType() string       { return TypePartyAccept }
func (PartyDecline) EventType() string      { return TypePartyDecline }
func (PartyLeave) EventType() string        { return TypePartyLeave }
func (GetOnlinePlayers) EventType() string  { return TypeGetOnlinePlayers }
func (GetPendingInvites) EventType() string { return TypeGetPendingInvites }
func (GetCurrentParty) EventType() string   { return TypeGetCurrentParty }
func (DungeonGenerate) EventType() string   { return TypeDungeonGenerate }
func (EnemySpawn) EventType() string        { return TypeEnemySpawn }
func (EnemyDied) EventType() string         { return TypeEnemyDied }
func (ChestOpened) EventType() string       { return TypeChestOpened }
func (PortalSpawned) EventType() string     { return TypePortalSpawned }
func (StageChanged) EventType() string      { return TypeStageChanged }
func (CombatStart) EventType() string       { return TypeCombatStart }
func (PlayerDamaged) EventType() string     { return TypePlayerDamaged }

// Outbound payloads.

type Joined struct {
	Players []PlayerState `json:"players"`
}

type Moved struct {
	Players []PlayerState `json:"players"`
}

type PartyInviteReceived struct {
	PartyID    string `json:"partyId"`
	FromPlayer string `json:"fromPlayer"`
	Leader     string `json:"leader"`
}

type PartyUpdated struct {
	Party PartySnapshot `json:"party"`
}

type PartyLeft struct {
	Success bool `json:"success"`
}

type OnlinePlayersList struct {
	Players []PlayerState `json:"players"`
}

type PendingInvitesList struct {
	Invites []InviteSummary `json:"invites"`
}

// CurrentPartyInfo carries the party snapshot, or a JSON null when the
// requesting player has no party.
type CurrentPartyInfo struct {
	Party *PartySnapshot `json:"party"`
}

type DungeonSeed struct {
	Seed  int64 `json:"seed"`
	Level int   `json:"level"`
}

type EnemySpawned struct {
	EnemyID  string   `json:"enemyId"`
	Position Position `json:"position"`
	Level    int      `json:"level"`
	IsBoss   bool     `json:"isBoss"`
	Name     string   `json:"name"`
}

type EnemyRemoved struct {
	EnemyID string `json:"enemyId"`
}

type ChestOpenedSync struct {
	ChestID  string   `json:"chestId"`
	Position Position `json:"position"`
}

type PortalSpawnedSync struct {
	Position Position `json:"position"`
}

type StageChangedSync struct {
	NewLevel int `json:"newLevel"`
}

type CombatStarted struct {
	PlayerID string `json:"playerId"`
	EnemyID  string `json:"enemyId"`
}

type PartyMemberDamaged struct {
	PlayerID  string `json:"playerId"`
	Damage    int    `json:"damage"`
	CurrentHP int    `json:"currentHp"`
}

func (Joined) EventType() string              { return TypeJoined }
func (Moved) EventType() string               { return TypeMoved }
func (PartyInviteReceived) EventType() string { return TypePartyInviteReceived }
func (PartyUpdated) EventType() string        { return TypePartyUpdated }
func (PartyLeft) EventType() string           { return TypePartyLeft }
func (OnlinePlayersList) EventType() string   { return TypeOnlinePlayersList }
func (PendingInvitesList) EventType() string  { return TypePendingInvitesList }
func (CurrentPartyInfo) EventType() string    { return TypeCurrentPartyInfo }
func (DungeonSeed) EventType() string         { return TypeDungeonSeed }
func (EnemySpawned) EventType() string        { return TypeEnemySpawned }
func (EnemyRemoved) EventType() string        { return TypeEnemyRemoved }
func (ChestOpenedSync) EventType() string     { return TypeChestOpenedSync }
func (PortalSpawnedSync) EventType() string   { return TypePortalSpawnedSync }
func (StageChangedSync) EventType() string    { return TypeStageChangedSync }
func (CombatStarted) EventType() string       { return TypeCombatStarted }
func (PartyMemberDamaged) EventType() string  { return TypePartyMemberDamaged }
