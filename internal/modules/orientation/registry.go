// README: Per-user compass sessions for the HTTP API, with idle expiry.
package orientation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"trailquest/internal/types"
)

var ErrNoSession = errors.New("no active compass session")

type registryEntry struct {
	estimator *Estimator
	lastSeen  time.Time
}

// Registry holds one Estimator per owner while their compass view is
// active. A session that stops receiving samples is closed by the sweeper
// after idleTimeout, which covers clients that vanish without closing.
type Registry struct {
	mu          sync.Mutex
	sessions    map[types.ID]*registryEntry
	idleTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewRegistry(idleTimeout time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions:    make(map[types.ID]*registryEntry),
		idleTimeout: idleTimeout,
		now:         time.Now,
		log:         logger,
	}
}

// Open registers a fresh estimator for owner, replacing any previous one.
func (r *Registry) Open(owner types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[owner] = &registryEntry{estimator: NewEstimator(), lastSeen: r.now()}
	r.log.Debug("compass session opened", zap.String("owner", owner.String()))
}

// Close unregisters owner's session. Closing an unknown session is a no-op.
func (r *Registry) Close(owner types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[owner]; ok {
		delete(r.sessions, owner)
		r.log.Debug("compass session closed", zap.String("owner", owner.String()))
	}
}

// Update feeds one sample into owner's estimator.
func (r *Registry) Update(owner types.ID, s Sample) (Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[owner]
	if !ok {
		return Reading{}, ErrNoSession
	}
	e.lastSeen = r.now()
	heading, resolved := e.estimator.Update(s)
	_, has := e.estimator.Heading()
	return Reading{Resolved: resolved, HasHeading: has, HeadingDegrees: heading}, nil
}

// Heading returns owner's latest heading without mutating the session.
func (r *Registry) Heading(owner types.ID) (Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[owner]
	if !ok {
		return Reading{}, ErrNoSession
	}
	heading, has := e.estimator.Heading()
	return Reading{HasHeading: has, HeadingDegrees: heading}, nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the timeout and returns how
// many were closed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTimeout)
	closed := 0
	for owner, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, owner)
			closed++
		}
	}
	return closed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info("expired idle compass sessions", zap.Int("count", n))
			}
		}
	}
}
