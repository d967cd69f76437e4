// README: GeoJSON export of waypoints for map rendering.
package waypoint

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"trailquest/internal/types"
)

// DefaultLabel is used when no better label is known.
const DefaultLabel = "Location"

// Labeler names a coordinate for display, e.g. by reverse geocoding.
type Labeler interface {
	Label(ctx context.Context, p types.Point) (string, error)
}

// FeatureCollection converts waypoints into point features ordered by
// capture time. labels maps waypoint ids to marker labels; missing entries
// get DefaultLabel. Each feature carries the great-circle distance in
// meters from the previous waypoint (0 for the first) and the running
// trail length.
func FeatureCollection(ws []Waypoint, labels map[types.ID]string) *geojson.FeatureCollection {
	sorted := slices.Clone(ws)
	slices.SortStableFunc(sorted, func(a, b Waypoint) int {
		return a.CapturedAt.Compare(b.CapturedAt)
	})

	fc := geojson.NewFeatureCollection()
	var prev orb.Point
	total := 0.0
	for i, w := range sorted {
		pt := orb.Point{w.Point.Lng, w.Point.Lat}
		step := 0.0
		if i > 0 {
			step = geo.DistanceHaversine(prev, pt)
		}
		total += step
		prev = pt

		f := geojson.NewFeature(pt)
		label := labels[w.ID]
		if label == "" {
			label = DefaultLabel
		}
		f.ID = w.ID.String()
		f.Properties["id"] = w.ID.String()
		f.Properties["label"] = label
		f.Properties["captured_at"] = w.CapturedAt.UTC().Format(time.RFC3339)
		f.Properties["distance_from_previous_m"] = math.Round(step)
		f.Properties["trail_length_m"] = math.Round(total)
		fc.Append(f)
	}
	return fc
}

// ExportGeoJSON returns owner's waypoints as map markers. It reads the store
// directly and leaves the cached listing untouched. Labeling failures fall
// back to DefaultLabel.
func (s *Service) ExportGeoJSON(ctx context.Context, owner types.ID) (*geojson.FeatureCollection, error) {
	if owner.IsZero() {
		return nil, ErrNotAuthenticated
	}
	ws, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: listing waypoints: %w", ErrStore, err)
	}

	labels := make(map[types.ID]string, len(ws))
	if s.labeler != nil {
		for _, w := range ws {
			label, err := s.labeler.Label(ctx, w.Point)
			if err != nil {
				s.log.Debug("labeling waypoint failed", zap.String("waypoint_id", w.ID.String()), zap.Error(err))
				continue
			}
			labels[w.ID] = label
		}
	}
	return FeatureCollection(ws, labels), nil
}
