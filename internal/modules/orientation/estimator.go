// README: Accelerometer + magnetometer fusion into a magnetic heading.
package orientation

import (
	"errors"
	"math"
)

// standardGravity in m/s².
const standardGravity = 9.80665

// Below a tenth of g the device is treated as in free fall.
const freeFallGravitySquared = 0.01 * standardGravity * standardGravity

// Minimum |E × A|. Smaller values mean the field is nearly parallel to
// gravity (close to a magnetic pole) or absent.
const minHorizontalField = 0.1

var ErrFusionIndeterminate = errors.New("rotation matrix indeterminate")

// Matrix is a row-major 3x3 rotation matrix. Rows are the world east,
// north and up axes expressed in device coordinates.
type Matrix [9]float64

// Estimator keeps the latest gravity and geomagnetic vectors and the last
// heading it could resolve. Update is its only mutator; it is not safe for
// concurrent use.
type Estimator struct {
	gravity     Vector
	geomagnetic Vector

	heading    float64
	hasHeading bool
}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// Update stores the sample's vector for its channel and tries to fuse the
// two latest vectors. It returns the new heading in degrees [0,360) and
// true on success. On failure the previous heading is kept and false is
// returned.
func (e *Estimator) Update(s Sample) (float64, bool) {
	switch s.Sensor {
	case SensorAccelerometer:
		e.gravity = s.Values
	case SensorMagnetometer:
		e.geomagnetic = s.Values
	default:
		return e.heading, false
	}

	r, err := RotationMatrix(e.gravity, e.geomagnetic)
	if err != nil {
		return e.heading, false
	}
	e.heading = toCompassDegrees(Azimuth(r))
	e.hasHeading = true
	return e.heading, true
}

// Heading returns the latest resolved heading, if any.
func (e *Estimator) Heading() (float64, bool) {
	return e.heading, e.hasHeading
}

// RotationMatrix computes the device rotation from a gravity vector and a
// geomagnetic vector, both in device coordinates.
func RotationMatrix(gravity, geomagnetic Vector) (Matrix, error) {
	if !finite(gravity) || !finite(geomagnetic) {
		return Matrix{}, ErrFusionIndeterminate
	}
	ax, ay, az := gravity[0], gravity[1], gravity[2]
	ex, ey, ez := geomagnetic[0], geomagnetic[1], geomagnetic[2]

	normSqA := ax*ax + ay*ay + az*az
	if normSqA < freeFallGravitySquared {
		return Matrix{}, ErrFusionIndeterminate
	}

	// H = E × A points east.
	hx := ey*az - ez*ay
	hy := ez*ax - ex*az
	hz := ex*ay - ey*ax
	normH := math.Sqrt(hx*hx + hy*hy + hz*hz)
	if normH < minHorizontalField {
		return Matrix{}, ErrFusionIndeterminate
	}
	invH := 1 / normH
	hx, hy, hz = hx*invH, hy*invH, hz*invH

	invA := 1 / math.Sqrt(normSqA)
	ax, ay, az = ax*invA, ay*invA, az*invA

	// M = A × H points north.
	mx := ay*hz - az*hy
	my := az*hx - ax*hz
	mz := ax*hy - ay*hx

	return Matrix{
		hx, hy, hz,
		mx, my, mz,
		ax, ay, az,
	}, nil
}

// Azimuth returns the rotation about the vertical axis in radians
// (-π, π], 0 when the device's y axis points to magnetic north.
func Azimuth(r Matrix) float64 {
	return math.Atan2(r[1], r[4])
}

func toCompassDegrees(rad float64) float64 {
	deg := math.Mod(rad*180/math.Pi, 360)
	// <= folds -0 into 0 via the wrap below.
	if deg <= 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func finite(v Vector) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
