// README: Shared fixtures for handler tests; wires the real router with in-memory backends.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	trailhttp "trailquest/internal/http"
	"trailquest/internal/infra"
	"trailquest/internal/modules/orientation"
	"trailquest/internal/modules/position"
	"trailquest/internal/modules/waypoint"
	"trailquest/internal/types"
)

// stubTokenVerifier accepts "Bearer <uid>" and rejects "bad".
type stubTokenVerifier struct{}

func (stubTokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.AuthToken, error) {
	if raw == "bad" {
		return nil, errors.New("invalid token")
	}
	return &infra.AuthToken{UID: raw}, nil
}

type testEnv struct {
	router    *gin.Engine
	positions *position.MemoryStore
	store     waypoint.Store
	waypoints *waypoint.Service
	compass   *orientation.Registry
}

func newTestEnv(store waypoint.Store) *testEnv {
	gin.SetMode(gin.TestMode)
	if store == nil {
		store = waypoint.NewMemoryStore()
	}
	positions := position.NewMemoryStore()
	source := position.NewSource(positions, positions, nil)
	svc := waypoint.NewService(source, store, nil, nil)
	compass := orientation.NewRegistry(time.Minute, nil)

	return &testEnv{
		router: trailhttp.NewRouter(trailhttp.RouterDeps{
			Verifier:  stubTokenVerifier{},
			Waypoints: svc,
			Positions: source,
			Reporter:  positions,
			Compass:   compass,
		}),
		positions: positions,
		store:     store,
		waypoints: svc,
		compass:   compass,
	}
}

func (e *testEnv) do(method, path string, body interface{}, uid string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+uid)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// failingStore serves the first listOK lists from memory, then fails every
// call.
type failingStore struct {
	*waypoint.MemoryStore
	listOK int
}

var errBackendDown = errors.New("backend down")

func (s *failingStore) Create(context.Context, types.ID, types.Point) (waypoint.Waypoint, error) {
	return waypoint.Waypoint{}, errBackendDown
}

func (s *failingStore) ListByOwner(ctx context.Context, owner types.ID) ([]waypoint.Waypoint, error) {
	if s.listOK > 0 {
		s.listOK--
		return s.MemoryStore.ListByOwner(ctx, owner)
	}
	return nil, errBackendDown
}

func (s *failingStore) Delete(context.Context, types.ID, types.ID) error { return errBackendDown }

func decode(w *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}
