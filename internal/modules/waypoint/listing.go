// README: Per-owner cached listing with its load state machine.
package waypoint

import (
	"sync"

	"trailquest/internal/types"
)

// listing caches the last successfully loaded waypoints for one owner.
// Failed refreshes keep the cached items so already displayed data is
// never lost.
type listing struct {
	mu    sync.Mutex
	state ListingState
	items []Waypoint
	err   error

	// gen identifies the latest refresh; only its result updates the cache.
	gen      uint64
	inflight int
	// deleted maps ids removed while any refresh was in flight to the
	// latest generation at removal time.
	deleted map[types.ID]uint64
}

func newListing() *listing {
	return &listing{state: ListingIdle}
}

// begin moves the listing to loading and returns the refresh generation.
func (l *listing) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != ListingLoading && CanTransition(l.state, ListingLoading) {
		l.state = ListingLoading
	}
	l.gen++
	l.inflight++
	return l.gen
}

// finish completes refresh gen and returns its items minus every id
// removed after that refresh began. The cache is only updated when gen is
// still the latest refresh.
func (l *listing) finish(gen uint64, items []Waypoint, err error) []Waypoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	defer func() {
		if l.inflight == 0 {
			l.deleted = nil
		}
	}()

	if err != nil {
		if gen == l.gen {
			l.state = ListingFailed
			l.err = err
		}
		return nil
	}
	kept := make([]Waypoint, 0, len(items))
	for _, w := range items {
		if at, gone := l.deleted[w.ID]; gone && at >= gen {
			continue
		}
		kept = append(kept, w)
	}
	if gen == l.gen {
		l.state = ListingLoaded
		l.items = append([]Waypoint(nil), kept...)
		l.err = nil
	}
	return kept
}

func (l *listing) remove(id types.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight > 0 {
		if l.deleted == nil {
			l.deleted = make(map[types.ID]uint64)
		}
		l.deleted[id] = l.gen
	}
	for i, w := range l.items {
		if w.ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}

func (l *listing) snapshot() ListingSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]Waypoint, len(l.items))
	copy(items, l.items)
	return ListingSnapshot{State: l.state, Items: items, Err: l.err}
}
