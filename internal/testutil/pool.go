package testutil

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool starts a PostgreSQL container, applies the schema, and returns the
// raw connection pool. Cleanup is registered on t.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.RawPool
}
