// README: Redis-backed fix cache and permission grants reported by devices.
package position

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trailquest/internal/types"
)

const (
	fixKeyPrefix        = "position:fix:"
	permissionKeyPrefix = "position:permission:"
)

// RedisStore is the server-side location provider: devices report their
// latest fix and permission decision, and Source reads them back. It
// implements both Provider and Permissions.
type RedisStore struct {
	redis  *redis.Client
	fixTTL time.Duration
}

func NewRedisStore(client *redis.Client, fixTTL time.Duration) *RedisStore {
	return &RedisStore{redis: client, fixTTL: fixTTL}
}

func fixKey(owner types.ID) string        { return fixKeyPrefix + string(owner) }
func permissionKey(owner types.ID) string { return permissionKeyPrefix + string(owner) }

// ReportFix replaces owner's cached fix.
func (s *RedisStore) ReportFix(ctx context.Context, owner types.ID, fix Fix) error {
	if err := fix.Point.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFix, err)
	}
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = time.Now()
	}
	fields := map[string]interface{}{
		"lat":         strconv.FormatFloat(fix.Point.Lat, 'f', -1, 64),
		"lng":         strconv.FormatFloat(fix.Point.Lng, 'f', -1, 64),
		"recorded_at": fix.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
	if fix.AccuracyMeters != nil {
		fields["accuracy_m"] = strconv.FormatFloat(*fix.AccuracyMeters, 'f', -1, 64)
	}

	key := fixKey(owner)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if s.fixTTL > 0 {
			pipe.Expire(ctx, key, s.fixTTL)
		}
		return nil
	})
	return err
}

// LastKnown returns nil when no fix is cached or the cached hash is
// malformed.
func (s *RedisStore) LastKnown(ctx context.Context, owner types.ID) (*Fix, error) {
	vals, err := s.redis.HGetAll(ctx, fixKey(owner)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return decodeFix(vals), nil
}

func decodeFix(vals map[string]string) *Fix {
	lat, err := strconv.ParseFloat(vals["lat"], 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(vals["lng"], 64)
	if err != nil {
		return nil
	}
	fix := &Fix{Point: types.Point{Lat: lat, Lng: lng}}
	if fix.Point.Validate() != nil {
		return nil
	}
	if raw, ok := vals["accuracy_m"]; ok {
		if acc, err := strconv.ParseFloat(raw, 64); err == nil {
			fix.AccuracyMeters = &acc
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, vals["recorded_at"]); err == nil {
		fix.RecordedAt = ts
	}
	return fix
}

// SetPermission records the device's latest permission decision.
func (s *RedisStore) SetPermission(ctx context.Context, owner types.ID, granted bool) error {
	return s.redis.Set(ctx, permissionKey(owner), strconv.FormatBool(granted), 0).Err()
}

func (s *RedisStore) Granted(ctx context.Context, owner types.ID) (bool, error) {
	val, err := s.redis.Get(ctx, permissionKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	granted, err := strconv.ParseBool(val)
	if err != nil {
		return false, nil
	}
	return granted, nil
}

// Request returns the decision the device last reported. The prompt itself
// is shown on the device, so an owner that never answered counts as denied.
func (s *RedisStore) Request(ctx context.Context, owner types.ID) (bool, error) {
	return s.Granted(ctx, owner)
}
