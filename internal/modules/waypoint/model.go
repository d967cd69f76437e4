// README: Waypoint aggregate and listing session states.
package waypoint

import (
	"time"

	"trailquest/internal/types"
)

// Waypoint is a saved location. ID and CapturedAt are assigned by the
// store; Owner is set once at creation.
type Waypoint struct {
	ID         types.ID
	Owner      types.ID
	Point      types.Point
	CapturedAt time.Time
}

func (w Waypoint) valid() bool {
	return w.ID != "" && w.Owner != "" && !w.CapturedAt.IsZero() && w.Point.Validate() == nil
}

type ListingState string

const (
	ListingIdle    ListingState = "idle"
	ListingLoading ListingState = "loading"
	ListingLoaded  ListingState = "loaded"
	ListingFailed  ListingState = "failed"
)

// AllowedListingTransitions is the listing session state flow. A loaded or
// failed listing goes back to loading only on an explicit refresh.
var AllowedListingTransitions = map[ListingState][]ListingState{
	ListingIdle:    {ListingLoading},
	ListingLoading: {ListingLoaded, ListingFailed},
	ListingLoaded:  {ListingLoading},
	ListingFailed:  {ListingLoading},
}

func CanTransition(from, to ListingState) bool {
	next, ok := AllowedListingTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// ListingSnapshot is a read-only copy of an owner's listing.
type ListingSnapshot struct {
	State ListingState
	Items []Waypoint
	// Err is the failure of the last refresh when State is ListingFailed.
	Err error
}
