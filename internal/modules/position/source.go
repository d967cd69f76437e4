// README: Position source gated by the location permission signal.
package position

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"trailquest/internal/types"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrNoFixAvailable   = errors.New("no location fix available")
	ErrInvalidFix       = errors.New("invalid location fix")
)

// Provider returns the last fix the platform knows for owner. A nil fix
// with a nil error means no fix has ever been recorded.
type Provider interface {
	LastKnown(ctx context.Context, owner types.ID) (*Fix, error)
}

// Permissions is the permission-flow collaborator.
type Permissions interface {
	Granted(ctx context.Context, owner types.ID) (bool, error)
	// Request asks for the permission and reports the user's decision.
	Request(ctx context.Context, owner types.ID) (bool, error)
}

// Source fetches one fix per call, after consulting the permission signal.
// It does not poll.
type Source struct {
	provider    Provider
	permissions Permissions
	log         *zap.Logger

	mu     sync.RWMutex
	latest map[types.ID]Fix
}

func NewSource(provider Provider, permissions Permissions, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		provider:    provider,
		permissions: permissions,
		log:         logger,
		latest:      make(map[types.ID]Fix),
	}
}

// HasPermission reports whether owner has granted location access.
func (s *Source) HasPermission(ctx context.Context, owner types.ID) (bool, error) {
	return s.permissions.Granted(ctx, owner)
}

// CurrentFix returns owner's last known fix. Without permission it asks
// once through the permission collaborator and fails with
// ErrPermissionDenied on denial. An empty provider yields ErrNoFixAvailable,
// which callers should treat as a transient "fetching" state.
func (s *Source) CurrentFix(ctx context.Context, owner types.ID) (Fix, error) {
	granted, err := s.HasPermission(ctx, owner)
	if err != nil {
		return Fix{}, fmt.Errorf("checking location permission: %w", err)
	}
	if !granted {
		granted, err = s.permissions.Request(ctx, owner)
		if err != nil {
			return Fix{}, fmt.Errorf("requesting location permission: %w", err)
		}
		if !granted {
			s.log.Debug("location permission denied", zap.String("owner", owner.String()))
			return Fix{}, ErrPermissionDenied
		}
	}

	fix, err := s.provider.LastKnown(ctx, owner)
	if err != nil {
		return Fix{}, fmt.Errorf("reading last known fix: %w", err)
	}
	if fix == nil {
		return Fix{}, ErrNoFixAvailable
	}
	if err := fix.Point.Validate(); err != nil {
		return Fix{}, fmt.Errorf("%w: %w", ErrInvalidFix, err)
	}

	s.mu.Lock()
	s.latest[owner] = *fix
	s.mu.Unlock()
	return *fix, nil
}

// Latest returns the fix most recently returned by CurrentFix for owner.
func (s *Source) Latest(owner types.ID) (Fix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.latest[owner]
	return f, ok
}
