// README: Raw sensor samples and heading readings for the compass.
package orientation

import (
	"fmt"
	"time"
)

type Sensor string

const (
	SensorAccelerometer Sensor = "accelerometer"
	SensorMagnetometer  Sensor = "magnetometer"
)

// ParseSensor maps a wire name to a Sensor.
func ParseSensor(s string) (Sensor, error) {
	switch Sensor(s) {
	case SensorAccelerometer, SensorMagnetometer:
		return Sensor(s), nil
	}
	return "", fmt.Errorf("unknown sensor %q", s)
}

// Vector is a 3-axis reading in device coordinates: x to the right, y
// towards the top of the screen, z out of the screen. Accelerometer values
// are in m/s², magnetometer values in µT.
type Vector [3]float64

// Sample is one reading from a single sensor channel. Channels arrive
// independently and at irregular intervals.
type Sample struct {
	Sensor Sensor
	Values Vector
	At     time.Time
}

// Reading is what the compass reports after one sample.
type Reading struct {
	// Resolved is true when this sample produced a fresh heading.
	Resolved bool
	// HasHeading is false until the first successful fusion.
	HasHeading     bool
	HeadingDegrees float64
}
