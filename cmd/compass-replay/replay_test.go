package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleLog = `timestamp_ns,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z,mag_x,mag_y,mag_z,temperature
1700000000000000000,0,0,9.8,0,0,0,0,30,0,21.5
1700000000010000000,0,0,9.8,0,0,0,-30,0,-40,21.5
1700000000020000000,0,0,9.8,0,0,0,not-a-number,0,-40,21.5
1700000000030000000,0,0,9.8,0,0,0,0,-30,-40,21.5
1700000000040000000,0,0,9.8,0,0,0,0,0,0,21.5
`

func TestReplay_PrintsResolvedHeadings(t *testing.T) {
	var out bytes.Buffer
	err := replay(context.Background(), strings.NewReader(sampleLog), &out, 1, zap.NewNop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// Within a row the accelerometer sample fuses against the previous
	// row's field, then the magnetometer sample moves the heading. The
	// malformed row is skipped and the all-zero field cannot be fused.
	assert.Equal(t, []string{
		"n,heading_deg",
		"1,0.00",
		"2,0.00",
		"3,90.00",
		"4,90.00",
		"5,180.00",
		"6,180.00",
	}, lines)
}

func TestReplay_Every(t *testing.T) {
	var out bytes.Buffer
	err := replay(context.Background(), strings.NewReader(sampleLog), &out, 3, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "n,heading_deg\n3,90.00\n6,180.00\n", out.String())
}

func TestReplay_MissingColumn(t *testing.T) {
	err := replay(context.Background(), strings.NewReader("timestamp_ns,accel_x,accel_y,accel_z\n1,0,0,9.8\n"), &bytes.Buffer{}, 1, zap.NewNop())
	assert.ErrorContains(t, err, "mag_x")
}

func TestCSVSource_UnregisterStopsDelivery(t *testing.T) {
	src, err := newCSVSource(strings.NewReader(sampleLog), zap.NewNop())
	require.NoError(t, err)
	samples, err := src.Register(context.Background())
	require.NoError(t, err)

	first := <-samples
	assert.Equal(t, "accelerometer", string(first.Sensor))
	src.Unregister()
	src.Unregister()

	// The producer exits without delivering the rest of the log.
	for range samples {
	}
	rows, _, _ := src.stats()
	assert.LessOrEqual(t, rows, 2)
}
