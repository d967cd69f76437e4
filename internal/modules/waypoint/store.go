// README: Waypoint store contract shared by all persistence backends.
package waypoint

import (
	"context"

	"trailquest/internal/types"
)

// Store is a per-user waypoint collection.
//
// ListByOwner returns only waypoints owned by owner, in no particular
// order, silently skipping stored records with a missing or malformed
// coordinate or timestamp. Delete only removes a waypoint owned by owner
// and succeeds without effect for ids that do not exist or belong to
// someone else.
type Store interface {
	Create(ctx context.Context, owner types.ID, p types.Point) (Waypoint, error)
	ListByOwner(ctx context.Context, owner types.ID) ([]Waypoint, error)
	Delete(ctx context.Context, owner, id types.ID) error
}
