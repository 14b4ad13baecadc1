package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPlayerNotFound is returned when a player lookup yields no results.
var ErrPlayerNotFound = errors.New("player not found")

// ErrPlayerNameTaken is returned when creating a player with a name that
// already exists.
var ErrPlayerNameTaken = errors.New("player name already exists")

// Player is a persistent player record: identity plus lifetime bests. The
// JSON tags match the field names the original API served, which the game
// client still expects.
type Player struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Class           string    `json:"class"`
	MaxDungeonLevel int       `json:"maxDungeonLevel"`
	MaxGold         int       `json:"maxGold"`
	MaxLevelReached int       `json:"maxLevelReached"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// RankingEntry is one row of a full ranking board; Value holds whichever
// stat the board is ordered by.
type RankingEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Value int    `json:"value"`
}

// UpdatePlayerParams carries a partial update; nil fields keep their stored
// value.
type UpdatePlayerParams struct {
	Class           *string
	MaxDungeonLevel *int
	MaxGold         *int
	MaxLevelReached *int
}

const playerColumns = `id, name, class, max_dungeon_level, max_gold, max_level_reached, created_at, updated_at`

// PlayerRepository provides player persistence operations.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player and returns it with ID and timestamps set.
//
// Precondition: name and class must be non-empty.
// Postcondition: Returns the created player, or ErrPlayerNameTaken on a
// duplicate name.
func (r *PlayerRepository) Create(ctx context.Context, name, class string, maxDungeonLevel, maxGold, maxLevelReached int) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx, `
		INSERT INTO players (name, class, max_dungeon_level, max_gold, max_level_reached)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+playerColumns,
		name, class, maxDungeonLevel, maxGold, maxLevelReached,
	).Scan(
		&p.ID, &p.Name, &p.Class, &p.MaxDungeonLevel, &p.MaxGold,
		&p.MaxLevelReached, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrPlayerNameTaken
		}
		return nil, fmt.Errorf("inserting player: %w", err)
	}
	return &p, nil
}

// Update applies a partial update to a player; absent fields keep their
// stored values, matching the original COALESCE semantics.
//
// Precondition: id must be > 0.
// Postcondition: Returns the updated player or ErrPlayerNotFound.
func (r *PlayerRepository) Update(ctx context.Context, id int64, params UpdatePlayerParams) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx, `
		UPDATE players
		SET class             = COALESCE($2, class),
		    max_dungeon_level = COALESCE($3, max_dungeon_level),
		    max_gold          = COALESCE($4, max_gold),
		    max_level_reached = COALESCE($5, max_level_reached),
		    updated_at        = NOW()
		WHERE id = $1
		RETURNING `+playerColumns,
		id, params.Class, params.MaxDungeonLevel, params.MaxGold, params.MaxLevelReached,
	).Scan(
		&p.ID, &p.Name, &p.Class, &p.MaxDungeonLevel, &p.MaxGold,
		&p.MaxLevelReached, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("updating player: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a player by its primary key.
//
// Postcondition: Returns the Player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.Name, &p.Class, &p.MaxDungeonLevel, &p.MaxGold,
		&p.MaxLevelReached, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("fetching player %d: %w", id, err)
	}
	return &p, nil
}

// GetByName retrieves a player by its unique name.
//
// Postcondition: Returns the Player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE name = $1`, name,
	).Scan(
		&p.ID, &p.Name, &p.Class, &p.MaxDungeonLevel, &p.MaxGold,
		&p.MaxLevelReached, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("fetching player %q: %w", name, err)
	}
	return &p, nil
}

// List returns all players ordered by id.
func (r *PlayerRepository) List(ctx context.Context) ([]*Player, error) {
	rows, err := r.db.Query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	players := make([]*Player, 0)
	for rows.Next() {
		var p Player
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Class, &p.MaxDungeonLevel, &p.MaxGold,
			&p.MaxLevelReached, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}

// TopByGold returns the top three players by lifetime gold.
func (r *PlayerRepository) TopByGold(ctx context.Context) ([]*Player, error) {
	return r.top(ctx, "max_gold")
}

// TopByLevel returns the top three players by character level.
func (r *PlayerRepository) TopByLevel(ctx context.Context) ([]*Player, error) {
	return r.top(ctx, "max_level_reached")
}

// TopByDungeonLevel returns the top three players by deepest dungeon stage.
func (r *PlayerRepository) TopByDungeonLevel(ctx context.Context) ([]*Player, error) {
	return r.top(ctx, "max_dungeon_level")
}

// top runs the shared leaderboard query. column is one of the three stat
// columns, never user input.
func (r *PlayerRepository) top(ctx context.Context, column string) ([]*Player, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+playerColumns+` FROM players ORDER BY `+column+` DESC LIMIT 3`)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard by %s: %w", column, err)
	}
	defer rows.Close()

	players := make([]*Player, 0, 3)
	for rows.Next() {
		var p Player
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Class, &p.MaxDungeonLevel, &p.MaxGold,
			&p.MaxLevelReached, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}

// RankingsByGold returns the full ranking board ordered by lifetime gold.
func (r *PlayerRepository) RankingsByGold(ctx context.Context) ([]*RankingEntry, error) {
	return r.rankings(ctx, "max_gold")
}

// RankingsByLevel returns the full ranking board ordered by character level.
func (r *PlayerRepository) RankingsByLevel(ctx context.Context) ([]*RankingEntry, error) {
	return r.rankings(ctx, "max_level_reached")
}

// RankingsByDungeonLevel returns the full ranking board ordered by deepest
// dungeon stage.
func (r *PlayerRepository) RankingsByDungeonLevel(ctx context.Context) ([]*RankingEntry, error) {
	return r.rankings(ctx, "max_dungeon_level")
}

func (r *PlayerRepository) rankings(ctx context.Context, column string) ([]*RankingEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, class, `+column+` AS value FROM players ORDER BY `+column+` DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying rankings by %s: %w", column, err)
	}
	defer rows.Close()

	entries := make([]*RankingEntry, 0)
	for rows.Next() {
		var e RankingEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Class, &e.Value); err != nil {
			return nil, fmt.Errorf("scanning ranking row: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
