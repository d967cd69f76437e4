// README: Waypoint service orchestrates the position source and the store.
package waypoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"trailquest/internal/async"
	"trailquest/internal/modules/position"
	"trailquest/internal/types"
)

var (
	ErrNotAuthenticated  = errors.New("user not authenticated")
	ErrInvalidCoordinate = errors.New("invalid waypoint coordinate")
	ErrInvalidID         = errors.New("invalid waypoint id")
	ErrStore             = errors.New("waypoint store failure")
)

// FixSource yields the owner's current position fix.
type FixSource interface {
	CurrentFix(ctx context.Context, owner types.ID) (position.Fix, error)
}

// Service is safe for concurrent use. Concurrent saves for the same owner
// are not deduplicated.
type Service struct {
	positions FixSource
	store     Store
	labeler   Labeler
	log       *zap.Logger

	mu       sync.Mutex
	listings map[types.ID]*listing
}

// NewService wires the service. labeler may be nil.
func NewService(positions FixSource, store Store, labeler Labeler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		positions: positions,
		store:     store,
		labeler:   labeler,
		log:       logger,
		listings:  make(map[types.ID]*listing),
	}
}

func (s *Service) listingFor(owner types.ID) *listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[owner]
	if !ok {
		l = newListing()
		s.listings[owner] = l
	}
	return l
}

// SaveCurrentLocation persists owner's current fix as a new waypoint.
func (s *Service) SaveCurrentLocation(ctx context.Context, owner types.ID) (Waypoint, error) {
	if owner.IsZero() {
		return Waypoint{}, ErrNotAuthenticated
	}
	fix, err := s.positions.CurrentFix(ctx, owner)
	if errors.Is(err, position.ErrInvalidFix) {
		return Waypoint{}, fmt.Errorf("%w: %w", ErrInvalidCoordinate, err)
	}
	if err != nil {
		return Waypoint{}, err
	}
	if err := fix.Point.Validate(); err != nil {
		return Waypoint{}, fmt.Errorf("%w: %w", ErrInvalidCoordinate, err)
	}

	w, err := s.store.Create(ctx, owner, fix.Point)
	if err != nil {
		s.log.Warn("saving waypoint failed", zap.String("owner", owner.String()), zap.Error(err))
		return Waypoint{}, fmt.Errorf("%w: creating waypoint: %w", ErrStore, err)
	}
	s.log.Info("waypoint saved",
		zap.String("owner", owner.String()),
		zap.String("waypoint_id", w.ID.String()),
		zap.Float64("lat", w.Point.Lat),
		zap.Float64("lng", w.Point.Lng),
	)
	return w, nil
}

// ListWaypoints fetches owner's waypoints from the store. Each call is an
// explicit refresh of the owner's listing.
func (s *Service) ListWaypoints(ctx context.Context, owner types.ID) ([]Waypoint, error) {
	if owner.IsZero() {
		return nil, ErrNotAuthenticated
	}
	l := s.listingFor(owner)
	gen := l.begin()

	items, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		err = fmt.Errorf("%w: listing waypoints: %w", ErrStore, err)
		l.finish(gen, nil, err)
		s.log.Warn("listing waypoints failed", zap.String("owner", owner.String()), zap.Error(err))
		return nil, err
	}
	return l.finish(gen, items, nil), nil
}

// DeleteWaypoint hard-deletes one of owner's waypoints and drops it from
// owner's cached listing. Unknown ids and ids owned by another user both
// succeed without touching the store contents.
func (s *Service) DeleteWaypoint(ctx context.Context, owner, id types.ID) error {
	if owner.IsZero() {
		return ErrNotAuthenticated
	}
	if id == "" || strings.Contains(string(id), "/") {
		return ErrInvalidID
	}
	if err := s.store.Delete(ctx, owner, id); err != nil {
		s.log.Warn("deleting waypoint failed", zap.String("waypoint_id", id.String()), zap.Error(err))
		return fmt.Errorf("%w: deleting waypoint: %w", ErrStore, err)
	}
	s.listingFor(owner).remove(id)
	s.log.Info("waypoint deleted", zap.String("owner", owner.String()), zap.String("waypoint_id", id.String()))
	return nil
}

// Listing returns a copy of owner's cached listing.
func (s *Service) Listing(owner types.ID) ListingSnapshot {
	return s.listingFor(owner).snapshot()
}

func (s *Service) SaveCurrentLocationAsync(ctx context.Context, owner types.ID) *async.Future[Waypoint] {
	return async.Go(ctx, func(ctx context.Context) (Waypoint, error) {
		return s.SaveCurrentLocation(ctx, owner)
	})
}

func (s *Service) ListWaypointsAsync(ctx context.Context, owner types.ID) *async.Future[[]Waypoint] {
	return async.Go(ctx, func(ctx context.Context) ([]Waypoint, error) {
		return s.ListWaypoints(ctx, owner)
	})
}

func (s *Service) DeleteWaypointAsync(ctx context.Context, owner, id types.ID) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.DeleteWaypoint(ctx, owner, id)
	})
}
