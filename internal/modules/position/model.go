// README: Position fix value object.
package position

import (
	"time"

	"trailquest/internal/types"
)

// Fix is a single resolved coordinate from a location provider.
type Fix struct {
	Point types.Point
	// AccuracyMeters is nil when the provider did not report one.
	AccuracyMeters *float64
	// RecordedAt is when the device obtained the fix; zero if unknown.
	RecordedAt time.Time
}

// Age returns how old the fix is at now, or 0 when RecordedAt is unknown.
func (f Fix) Age(now time.Time) time.Duration {
	if f.RecordedAt.IsZero() {
		return 0
	}
	return now.Sub(f.RecordedAt)
}
