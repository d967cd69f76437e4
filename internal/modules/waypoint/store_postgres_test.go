package waypoint

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailquest/internal/types"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("TRAILQUEST_DB_DSN")
	if dsn == "" {
		t.Skip("TRAILQUEST_DB_DSN not set; skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	return store, pool
}

func TestPostgresStore_Contract(t *testing.T) {
	store, _ := setupPostgresStore(t)
	runStoreContract(t, store)
}

func TestPostgresStore_SkipsIncompleteRows(t *testing.T) {
	store, pool := setupPostgresStore(t)
	ctx := context.Background()
	owner := types.ID(fmt.Sprintf("pg_malformed_%d", time.Now().UnixNano()))

	_, err := pool.Exec(ctx, `INSERT INTO waypoints (id, owner, latitude, longitude, captured_at) VALUES ($1, $2, NULL, 13.0, now())`, string(owner)+"_a", string(owner))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO waypoints (id, owner, latitude, longitude, captured_at) VALUES ($1, $2, 45.0, 13.0, NULL)`, string(owner)+"_b", string(owner))
	require.NoError(t, err)
	good, err := store.Create(ctx, owner, types.Point{Lat: 45, Lng: 13})
	require.NoError(t, err)

	listed, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, good.ID, listed[0].ID)
}
