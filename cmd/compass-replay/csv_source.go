// README: SensorSource over a recorded IMU CSV log (timestamp_ns, accel_*, mag_* columns).
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"trailquest/internal/modules/orientation"
)

var requiredColumns = []string{
	"timestamp_ns",
	"accel_x", "accel_y", "accel_z",
	"mag_x", "mag_y", "mag_z",
}

// csvSource replays each log row as an accelerometer sample followed by a
// magnetometer sample. Malformed rows are skipped and counted.
type csvSource struct {
	r    *csv.Reader
	cols map[string]int
	log  *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	rows    int
	skipped int
	readErr error
}

func newCSVSource(r io.Reader, logger *zap.Logger) (*csvSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return &csvSource{r: cr, cols: cols, log: logger, stop: make(chan struct{})}, nil
}

func (s *csvSource) Register(ctx context.Context) (<-chan orientation.Sample, error) {
	out := make(chan orientation.Sample)
	go func() {
		defer close(out)
		for {
			record, err := s.r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var perr *csv.ParseError
				if errors.As(err, &perr) {
					s.skip(err)
					continue
				}
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
				return
			}
			accel, mag, err := s.parse(record)
			if err != nil {
				s.skip(err)
				continue
			}
			s.mu.Lock()
			s.rows++
			s.mu.Unlock()
			for _, sample := range []orientation.Sample{accel, mag} {
				select {
				case <-s.stop:
					return
				default:
				}
				select {
				case out <- sample:
				case <-s.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *csvSource) Unregister() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *csvSource) skip(err error) {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
	s.log.Debug("skipping row", zap.Error(err))
}

func (s *csvSource) parse(record []string) (orientation.Sample, orientation.Sample, error) {
	field := func(name string) (string, error) {
		i := s.cols[name]
		if i >= len(record) {
			return "", fmt.Errorf("row too short for %s", name)
		}
		return record[i], nil
	}
	raw, err := field("timestamp_ns")
	if err != nil {
		return orientation.Sample{}, orientation.Sample{}, err
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return orientation.Sample{}, orientation.Sample{}, fmt.Errorf("column timestamp_ns: %w", err)
	}
	var vals [6]float64
	for i, name := range requiredColumns[1:] {
		raw, err := field(name)
		if err == nil {
			vals[i], err = strconv.ParseFloat(raw, 64)
		}
		if err != nil {
			return orientation.Sample{}, orientation.Sample{}, fmt.Errorf("column %s: %w", name, err)
		}
	}
	at := time.Unix(0, ns).UTC()
	accel := orientation.Sample{
		Sensor: orientation.SensorAccelerometer,
		Values: orientation.Vector{vals[0], vals[1], vals[2]},
		At:     at,
	}
	mag := orientation.Sample{
		Sensor: orientation.SensorMagnetometer,
		Values: orientation.Vector{vals[3], vals[4], vals[5]},
		At:     at,
	}
	return accel, mag, nil
}

// stats reports replayed and skipped rows and any fatal read error.
func (s *csvSource) stats() (rows, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.skipped, s.readErr
}
