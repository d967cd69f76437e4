// README: Scoped sensor acquisition for one compass view.
package orientation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SensorSource delivers samples from the accelerometer and magnetometer
// channels once registered. Unregister must stop delivery and is always
// called by Session.Run after a successful Register.
type SensorSource interface {
	Register(ctx context.Context) (<-chan Sample, error)
	Unregister()
}

// Session binds an Estimator to a SensorSource for the lifetime of Run.
type Session struct {
	estimator *Estimator
	log       *zap.Logger
}

func NewSession(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{estimator: NewEstimator(), log: logger}
}

// Heading returns the latest heading resolved by the session.
func (s *Session) Heading() (float64, bool) {
	return s.estimator.Heading()
}

// Run registers with src and feeds every sample to the estimator, calling
// publish with each freshly resolved heading. It returns when ctx is done
// (with ctx.Err()), or nil when the source closes its channel. The source
// is unregistered on every return path, including a panic in publish.
func (s *Session) Run(ctx context.Context, src SensorSource, publish func(float64)) error {
	samples, err := src.Register(ctx)
	if err != nil {
		return fmt.Errorf("registering sensors: %w", err)
	}
	defer func() {
		src.Unregister()
		s.log.Debug("compass sensors unregistered")
	}()
	s.log.Debug("compass sensors registered")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-samples:
			if !ok {
				return nil
			}
			heading, resolved := s.estimator.Update(sample)
			if resolved && publish != nil {
				publish(heading)
			}
		}
	}
}
