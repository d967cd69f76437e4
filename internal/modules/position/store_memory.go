// README: In-memory fix and permission store for tests and local runs.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trailquest/internal/types"
)

type MemoryStore struct {
	mu          sync.RWMutex
	fixes       map[types.ID]Fix
	permissions map[types.ID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fixes:       make(map[types.ID]Fix),
		permissions: make(map[types.ID]bool),
	}
}

func (s *MemoryStore) ReportFix(_ context.Context, owner types.ID, fix Fix) error {
	if err := fix.Point.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFix, err)
	}
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[owner] = fix
	return nil
}

func (s *MemoryStore) LastKnown(_ context.Context, owner types.ID) (*Fix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fix, ok := s.fixes[owner]
	if !ok {
		return nil, nil
	}
	return &fix, nil
}

func (s *MemoryStore) SetPermission(_ context.Context, owner types.ID, granted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[owner] = granted
	return nil
}

func (s *MemoryStore) Granted(_ context.Context, owner types.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions[owner], nil
}

// Request mirrors RedisStore: the device owns the prompt, so the answer is
// whatever it last reported.
func (s *MemoryStore) Request(ctx context.Context, owner types.ID) (bool, error) {
	return s.Granted(ctx, owner)
}
