package dungeon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdmmo/server/internal/protocol"
)

func TestStore_EnsureCreates(t *testing.T) {
	s := NewStore()
	seed, level, created := s.Ensure("party-1", 42, 3)
	require.True(t, created)
	assert.Equal(t, int64(42), seed)
	assert.Equal(t, 3, level)

	inst, ok := s.Get("party-1")
	require.True(t, ok)
	assert.Equal(t, int64(42), inst.Seed)
	assert.Equal(t, 3, inst.Level)
}

func TestStore_EnsureFirstWriterWins(t *testing.T) {
	s := NewStore()
	_, _, created := s.Ensure("party-1", 42, 3)
	require.True(t, created)

	seed, level, created := s.Ensure("party-1", 99, 7)
	assert.False(t, created)
	assert.Equal(t, int64(42), seed)
	assert.Equal(t, 3, level)
}

func TestStore_SpawnAndRemoveEnemy(t *testing.T) {
	s := NewStore()
	s.Ensure("party-1", 1, 1)

	ok := s.SpawnEnemy("party-1", Enemy{
		EnemyID:  "e1",
		Position: protocol.Position{X: 4, Y: 5},
		Level:    2,
		Name:     "skeleton",
	})
	require.True(t, ok)

	inst, _ := s.Get("party-1")
	require.Len(t, inst.Enemies, 1)
	assert.Equal(t, "skeleton", inst.Enemies[0].Name)

	assert.True(t, s.RemoveEnemy("party-1", "e1"))
	inst, _ = s.Get("party-1")
	assert.Empty(t, inst.Enemies)

	assert.False(t, s.RemoveEnemy("party-1", "e1"))
}

func TestStore_NoInstanceNoOps(t *testing.T) {
	s := NewStore()
	assert.False(t, s.SpawnEnemy("ghost", Enemy{EnemyID: "e1"}))
	assert.False(t, s.RemoveEnemy("ghost", "e1"))
	assert.False(t, s.OpenChest("ghost", "c1"))
	assert.False(t, s.MarkPortalActive("ghost"))
	assert.False(t, s.AdvanceStage("ghost", 2))
}

func TestStore_OpenChest(t *testing.T) {
	s := NewStore()
	s.Ensure("party-1", 1, 1)

	require.True(t, s.OpenChest("party-1", "chest-a"))
	require.True(t, s.OpenChest("party-1", "chest-b"))

	inst, _ := s.Get("party-1")
	assert.Equal(t, []string{"chest-a", "chest-b"}, inst.Chests)
}

func TestStore_MarkPortalActiveIdempotent(t *testing.T) {
	s := NewStore()
	s.Ensure("party-1", 1, 1)

	require.True(t, s.MarkPortalActive("party-1"))
	require.True(t, s.MarkPortalActive("party-1"))

	inst, _ := s.Get("party-1")
	assert.True(t, inst.PortalActive)
}

func TestStore_AdvanceStageResets(t *testing.T) {
	s := NewStore()
	s.Ensure("party-1", 42, 1)
	s.SpawnEnemy("party-1", Enemy{EnemyID: "e1"})
	s.OpenChest("party-1", "c1")
	s.MarkPortalActive("party-1")

	require.True(t, s.AdvanceStage("party-1", 2))

	inst, _ := s.Get("party-1")
	assert.Equal(t, 2, inst.Level)
	assert.Empty(t, inst.Enemies)
	assert.Empty(t, inst.Chests)
	assert.False(t, inst.PortalActive)
	// The run keeps its seed across stages.
	assert.Equal(t, int64(42), inst.Seed)
}

func TestStore_Destroy(t *testing.T) {
	s := NewStore()
	s.Ensure("party-1", 1, 1)
	s.Destroy("party-1")

	_, ok := s.Get("party-1")
	assert.False(t, ok)

	// Destroying again is a no-op.
	s.Destroy("party-1")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Ensure("party-1", 1, 1)
	s.SpawnEnemy("party-1", Enemy{EnemyID: "e1"})

	inst, ok := s.Get("party-1")
	require.True(t, ok)
	inst.Enemies[0].EnemyID = "mutated"
	inst.Chests = append(inst.Chests, "mutated")

	fresh, _ := s.Get("party-1")
	assert.Equal(t, "e1", fresh.Enemies[0].EnemyID)
	assert.Empty(t, fresh.Chests)
}
