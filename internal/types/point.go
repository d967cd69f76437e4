// README: Geographic point value object used across modules.
package types

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidPoint = errors.New("invalid coordinate")

// Point is a WGS84 latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Validate checks that both components are finite and inside
// lat ∈ [-90,90], lng ∈ [-180,180].
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: non-finite component", ErrInvalidPoint)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidPoint, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidPoint, p.Lng)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lng)
}
