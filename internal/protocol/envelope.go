package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the framing every wire message travels in: a type tag and the
// event payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrUnknownType reports an envelope whose tag is not in the inbound catalog.
type ErrUnknownType struct {
	Type string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// Decode parses a raw wire message into its typed inbound payload.
//
// Precondition: raw must be a complete websocket text frame.
// Postcondition: Returns a pointer to one of the inbound payload structs, or
// an error if the envelope is malformed, the tag is unknown, or the payload
// does not match the tag's schema. A decode failure is fatal to this message
// only; callers drop it and keep the connection alive.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parsing envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case TypeJoin:
		ev = &Join{}
	case TypeMove:
		ev = &Move{}
	case TypePartyInvite:
		ev = &PartyInvite{}
	case TypePartyAccept:
		ev = &PartyAccept{}
	case TypePartyDecline:
		ev = &PartyDecline{}
	case TypePartyLeave:
		ev = &PartyLeave{}
	case TypeGetOnlinePlayers:
		ev = &GetOnlinePlayers{}
	case TypeGetPendingInvites:
		ev = &GetPendingInvites{}
	case TypeGetCurrentParty:
		ev = &GetCurrentParty{}
	case TypeDungeonGenerate:
		ev = &DungeonGenerate{}
	case TypeEnemySpawn:
		ev = &EnemySpawn{}
	case TypeEnemyDied:
		ev = &EnemyDied{}
	case TypeChestOpened:
		ev = &ChestOpened{}
	case TypePortalSpawned:
		ev = &PortalSpawned{}
	case TypeStageChanged:
		ev = &StageChanged{}
	case TypeCombatStart:
		ev = &CombatStart{}
	case TypePlayerDamaged:
		ev = &PlayerDamaged{}
	default:
		return nil, ErrUnknownType{Type: env.Type}
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %w", env.Type, err)
		}
	}
	return ev, nil
}

// Encode wraps an outbound payload in its envelope and serializes it.
//
// Postcondition: Returns the complete wire frame or a non-nil error.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s payload: %w", ev.EventType(), err)
	}
	frame, err := json.Marshal(Envelope{Type: ev.EventType(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshalling %s envelope: %w", ev.EventType(), err)
	}
	return frame, nil
}
