package waypoint

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailquest/internal/modules/position"
	"trailquest/internal/types"
)

// countingStore wraps a MemoryStore, counting calls and optionally failing.
type countingStore struct {
	*MemoryStore

	mu                         sync.Mutex
	creates, lists, deletes    int
	createErr, listErr, delErr error

	// afterList runs once ListByOwner has read the store but before the
	// result reaches the caller.
	afterList func()
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore()}
}

func (s *countingStore) Create(ctx context.Context, owner types.ID, p types.Point) (Waypoint, error) {
	s.mu.Lock()
	s.creates++
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return Waypoint{}, err
	}
	return s.MemoryStore.Create(ctx, owner, p)
}

func (s *countingStore) ListByOwner(ctx context.Context, owner types.ID) ([]Waypoint, error) {
	s.mu.Lock()
	s.lists++
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	items, err := s.MemoryStore.ListByOwner(ctx, owner)
	if s.afterList != nil {
		s.afterList()
	}
	return items, err
}

func (s *countingStore) Delete(ctx context.Context, owner, id types.ID) error {
	s.mu.Lock()
	s.deletes++
	err := s.delErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Delete(ctx, owner, id)
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates + s.lists + s.deletes
}

type stubFixSource struct {
	fix   position.Fix
	err   error
	calls int
}

func (s *stubFixSource) CurrentFix(ctx context.Context, owner types.ID) (position.Fix, error) {
	s.calls++
	return s.fix, s.err
}

type stubProvider struct{ fix *position.Fix }

func (p stubProvider) LastKnown(ctx context.Context, owner types.ID) (*position.Fix, error) {
	return p.fix, nil
}

type stubPermissions struct{ granted bool }

func (p stubPermissions) Granted(ctx context.Context, owner types.ID) (bool, error) {
	return p.granted, nil
}

func (p stubPermissions) Request(ctx context.Context, owner types.ID) (bool, error) {
	return p.granted, nil
}

func fixAt(lat, lng float64) *stubFixSource {
	return &stubFixSource{fix: position.Fix{Point: types.Point{Lat: lat, Lng: lng}}}
}

func TestSaveCurrentLocation_ScenarioOwnersAreIsolated(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(45.0, 13.0), store, nil, nil)
	ctx := context.Background()

	saved, err := svc.SaveCurrentLocation(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, types.ID("u1"), saved.Owner)
	assert.Equal(t, types.Point{Lat: 45.0, Lng: 13.0}, saved.Point)

	mine, err := svc.ListWaypoints(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, saved, mine[0])

	theirs, err := svc.ListWaypoints(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestSaveCurrentLocation_PermissionDeniedMakesNoStoreCall(t *testing.T) {
	store := newCountingStore()
	src := position.NewSource(stubProvider{}, stubPermissions{granted: false}, nil)
	svc := NewService(src, store, nil, nil)

	_, err := svc.SaveCurrentLocation(context.Background(), "u1")
	assert.ErrorIs(t, err, position.ErrPermissionDenied)
	assert.Equal(t, 0, store.calls())
}

func TestSaveCurrentLocation_NoFixAvailable(t *testing.T) {
	store := newCountingStore()
	src := position.NewSource(stubProvider{}, stubPermissions{granted: true}, nil)
	svc := NewService(src, store, nil, nil)

	_, err := svc.SaveCurrentLocation(context.Background(), "u1")
	assert.ErrorIs(t, err, position.ErrNoFixAvailable)
	assert.Equal(t, 0, store.calls())
}

func TestSaveCurrentLocation_NotAuthenticated(t *testing.T) {
	store := newCountingStore()
	fixes := fixAt(1, 1)
	svc := NewService(fixes, store, nil, nil)

	_, err := svc.SaveCurrentLocation(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, fixes.calls)
	assert.Equal(t, 0, store.calls())
}

func TestSaveCurrentLocation_RejectsInvalidCoordinate(t *testing.T) {
	for _, p := range []types.Point{{Lat: 91, Lng: 0}, {Lat: 0, Lng: -200}, {Lat: math.NaN(), Lng: 0}} {
		store := newCountingStore()
		svc := NewService(&stubFixSource{fix: position.Fix{Point: p}}, store, nil, nil)
		_, err := svc.SaveCurrentLocation(context.Background(), "u1")
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
		assert.Equal(t, 0, store.calls())
	}
}

func TestSaveCurrentLocation_InvalidFixFromSource(t *testing.T) {
	src := position.NewSource(stubProvider{fix: &position.Fix{Point: types.Point{Lat: 300}}}, stubPermissions{granted: true}, nil)
	_, err := NewService(src, newCountingStore(), nil, nil).SaveCurrentLocation(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	assert.ErrorIs(t, err, position.ErrInvalidFix)
}

func TestSaveCurrentLocation_StoreFailure(t *testing.T) {
	store := newCountingStore()
	store.createErr = errors.New("backend unavailable")
	svc := NewService(fixAt(1, 1), store, nil, nil)

	_, err := svc.SaveCurrentLocation(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, store.createErr)
	assert.Equal(t, 0, store.Len())
}

func TestSaveCurrentLocation_DoubleTapIsNotDeduplicated(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(45.0, 13.0), store, nil, nil)

	_, err := svc.SaveCurrentLocation(context.Background(), "u1")
	require.NoError(t, err)
	_, err = svc.SaveCurrentLocation(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
}

func TestListWaypoints_NotAuthenticatedSkipsStore(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(1, 1), store, nil, nil)

	_, err := svc.ListWaypoints(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, store.calls())
}

func TestDeleteWaypoint(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(45.0, 13.0), store, nil, nil)
	ctx := context.Background()

	saved, err := svc.SaveCurrentLocation(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWaypoint(ctx, "u1", saved.ID))
	require.NoError(t, svc.DeleteWaypoint(ctx, "u1", saved.ID), "second delete is idempotent")
	require.NoError(t, svc.DeleteWaypoint(ctx, "u1", "never-existed"))

	listed, err := svc.ListWaypoints(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteWaypoint_ForeignIDLooksMissing(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(45.0, 13.0), store, nil, nil)
	ctx := context.Background()

	saved, err := svc.SaveCurrentLocation(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWaypoint(ctx, "mallory", saved.ID))

	listed, err := svc.ListWaypoints(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, saved.ID, listed[0].ID)
}

func TestDeleteWaypoint_Validation(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(1, 1), store, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteWaypoint(ctx, "", "abc"), ErrNotAuthenticated)
	assert.ErrorIs(t, svc.DeleteWaypoint(ctx, "u1", ""), ErrInvalidID)
	assert.ErrorIs(t, svc.DeleteWaypoint(ctx, "u1", "locations/abc"), ErrInvalidID)
	assert.Equal(t, 0, store.calls())
}

func TestDeleteWaypoint_StoreFailureKeepsListing(t *testing.T) {
	store := newCountingStore()
	svc := NewService(fixAt(1, 1), store, nil, nil)
	ctx := context.Background()

	saved, err := svc.SaveCurrentLocation(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.ListWaypoints(ctx, "u1")
	require.NoError(t, err)

	store.delErr = errors.New("permission denied on backend")
	err = svc.DeleteWaypoint(ctx, "u1", saved.ID)
	assert.ErrorIs(t, err, ErrStore)

	snap := svc.Listing("u1")
	require.Len(t, snap.Items, 1)
	assert.Equal(t, saved.ID, snap.Items[0].ID)
}

func TestAsyncOperations(t *testing.T) {
	svc := NewService(fixAt(45.0, 13.0), newCountingStore(), nil, nil)
	ctx := context.Background()

	saved, err := svc.SaveCurrentLocationAsync(ctx, "u1").Await(ctx)
	require.NoError(t, err)

	listed, err := svc.ListWaypointsAsync(ctx, "u1").Await(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = svc.DeleteWaypointAsync(ctx, "u1", saved.ID).Await(ctx)
	require.NoError(t, err)
	assert.Empty(t, svc.Listing("u1").Items)

	_, err = svc.ListWaypointsAsync(ctx, "").Await(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
