// README: In-memory waypoint store for tests and local runs.
package waypoint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trailquest/internal/types"
)

type MemoryStore struct {
	mu   sync.RWMutex
	docs map[types.ID]Waypoint
	last time.Time
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[types.ID]Waypoint), now: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, owner types.ID, p types.Point) (Waypoint, error) {
	if err := ctx.Err(); err != nil {
		return Waypoint{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Timestamps never go backwards within one store.
	at := s.now()
	if at.Before(s.last) {
		at = s.last
	}
	s.last = at

	w := Waypoint{ID: types.ID(uuid.NewString()), Owner: owner, Point: p, CapturedAt: at}
	s.docs[w.ID] = w
	return w, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, owner types.ID) ([]Waypoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Waypoint
	for _, w := range s.docs {
		if w.Owner == owner {
			result = append(result, w)
		}
	}
	return result, nil
}

func (s *MemoryStore) Delete(ctx context.Context, owner, id types.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.docs[id]; ok && w.Owner == owner {
		delete(s.docs, id)
	}
	return nil
}

// Len returns the number of stored waypoints across all owners.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
