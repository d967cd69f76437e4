package waypoint

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailquest/internal/types"
)

// runStoreContract exercises the behaviour every Store backend must share.
// Owners are unique per run so real databases can be reused.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	prefix := fmt.Sprintf("contract_%d_", time.Now().UnixNano())
	owner := func(name string) types.ID { return types.ID(prefix + name) }

	t.Run("round trip keeps exact coordinates", func(t *testing.T) {
		u := owner("roundtrip")
		points := []types.Point{
			{Lat: 45.0, Lng: 13.0},
			{Lat: -90, Lng: -180},
			{Lat: 90, Lng: 180},
			{Lat: 0, Lng: 0},
			{Lat: 46.05108312345678, Lng: 14.50513198765432},
		}
		created := make(map[types.ID]types.Point)
		for _, p := range points {
			w, err := store.Create(ctx, u, p)
			require.NoError(t, err)
			require.NotEmpty(t, w.ID)
			assert.Equal(t, u, w.Owner)
			assert.Equal(t, p, w.Point)
			assert.False(t, w.CapturedAt.IsZero())
			created[w.ID] = p
		}

		listed, err := store.ListByOwner(ctx, u)
		require.NoError(t, err)
		require.Len(t, listed, len(points))
		for _, w := range listed {
			assert.Equal(t, created[w.ID], w.Point)
			assert.Equal(t, u, w.Owner)
		}
	})

	t.Run("deleted waypoint is never listed again", func(t *testing.T) {
		u := owner("delete")
		keep, err := store.Create(ctx, u, types.Point{Lat: 1, Lng: 1})
		require.NoError(t, err)
		gone, err := store.Create(ctx, u, types.Point{Lat: 2, Lng: 2})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, u, gone.ID))

		listed, err := store.ListByOwner(ctx, u)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, keep.ID, listed[0].ID)
	})

	t.Run("deleting a missing id succeeds", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, owner("nobody"), types.ID(prefix+"does-not-exist")))
	})

	t.Run("deleting another owner's waypoint leaves it in place", func(t *testing.T) {
		alice, mallory := owner("alice"), owner("mallory")
		w, err := store.Create(ctx, alice, types.Point{Lat: 3, Lng: 3})
		require.NoError(t, err)

		assert.NoError(t, store.Delete(ctx, mallory, w.ID))

		listed, err := store.ListByOwner(ctx, alice)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, w.ID, listed[0].ID)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		u1, u2 := owner("u1"), owner("u2")
		_, err := store.Create(ctx, u1, types.Point{Lat: 45.0, Lng: 13.0})
		require.NoError(t, err)

		mine, err := store.ListByOwner(ctx, u1)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, types.Point{Lat: 45.0, Lng: 13.0}, mine[0].Point)

		theirs, err := store.ListByOwner(ctx, u2)
		require.NoError(t, err)
		assert.Empty(t, theirs)
	})
}
