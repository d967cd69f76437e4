package orientation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	samples      chan Sample
	registerErr  error
	registered   atomic.Int32
	unregistered atomic.Int32
}

func newFakeSource(buffer int) *fakeSource {
	return &fakeSource{samples: make(chan Sample, buffer)}
}

func (f *fakeSource) Register(ctx context.Context) (<-chan Sample, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered.Add(1)
	return f.samples, nil
}

func (f *fakeSource) Unregister() { f.unregistered.Add(1) }

func TestSession_PublishesAndUnregistersWhenSourceCloses(t *testing.T) {
	src := newFakeSource(4)
	src.samples <- Sample{Sensor: SensorAccelerometer, Values: Vector{0, 0, 9.8}}
	src.samples <- Sample{Sensor: SensorMagnetometer, Values: Vector{0, 30, 0}}
	src.samples <- Sample{Sensor: SensorMagnetometer, Values: Vector{0, 0, 0}}
	src.samples <- Sample{Sensor: SensorMagnetometer, Values: Vector{0, -30, 0}}
	close(src.samples)

	var published []float64
	s := NewSession(nil)
	err := s.Run(context.Background(), src, func(h float64) { published = append(published, h) })

	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.InDelta(t, 0, published[0], headingTolerance)
	assert.InDelta(t, 180, published[1], headingTolerance)
	assert.EqualValues(t, 1, src.unregistered.Load())

	h, ok := s.Heading()
	assert.True(t, ok)
	assert.InDelta(t, 180, h, headingTolerance)
}

func TestSession_UnregistersOnCancel(t *testing.T) {
	src := newFakeSource(0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewSession(nil).Run(ctx, src, nil) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.EqualValues(t, 1, src.unregistered.Load())
}

func TestSession_UnregistersOnPanic(t *testing.T) {
	src := newFakeSource(2)
	src.samples <- Sample{Sensor: SensorAccelerometer, Values: Vector{0, 0, 9.8}}
	src.samples <- Sample{Sensor: SensorMagnetometer, Values: Vector{0, 30, 0}}

	func() {
		defer func() { _ = recover() }()
		_ = NewSession(nil).Run(context.Background(), src, func(float64) { panic("display gone") })
	}()
	assert.EqualValues(t, 1, src.unregistered.Load())
}

func TestSession_RegisterFailure(t *testing.T) {
	src := newFakeSource(0)
	src.registerErr = errors.New("no magnetometer")

	err := NewSession(nil).Run(context.Background(), src, nil)
	assert.ErrorIs(t, err, src.registerErr)
	assert.EqualValues(t, 0, src.unregistered.Load())
}
