package signals

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps historical fraud signals in Redis so every instance sees
// the same velocity counters and claim averages.
//
// Velocity events live in one sorted set per identity, scored by unix time,
// so counting the window is a ZCOUNT. Claim amounts are folded into daily
// sum/count buckets per claim type; the averaging window decides which
// buckets participate, which makes the staleness bound explicit rather than
// implicit in key TTLs.
type RedisStore struct {
	client redis.Cmdable
	// retention caps how long any signal is kept, independent of the
	// query windows callers pass.
	retention time.Duration
	now       func() time.Time
}

func NewRedisStore(client redis.Cmdable, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = 180 * 24 * time.Hour
	}
	return &RedisStore{client: client, retention: retention, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func velocityKey(customerRef string) string {
	return "fraud:velocity:" + customerRef
}

func claimBucketKey(claimType string, day time.Time) string {
	return "fraud:claims:" + claimType + ":" + day.UTC().Format("2006-01-02")
}

func (s *RedisStore) RecordApplication(ctx context.Context, customerRef string, at time.Time) error {
	key := velocityKey(customerRef)
	member := strconv.FormatInt(at.UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.Unix()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(s.now().Add(-s.retention).Unix(), 10))
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record application: %w", err)
	}
	return nil
}

func (s *RedisStore) CountRecent(ctx context.Context, customerRef string, window time.Duration) (int, error) {
	cutoff := s.now().Add(-window).Unix()
	n, err := s.client.ZCount(ctx, velocityKey(customerRef), strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count recent applications: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) RecordClaimAmount(ctx context.Context, claimType string, amount float64, at time.Time) error {
	key := claimBucketKey(claimType, at)

	pipe := s.client.TxPipeline()
	pipe.HIncrByFloat(ctx, key, "sum", amount)
	pipe.HIncrBy(ctx, key, "count", 1)
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record claim amount: %w", err)
	}
	return nil
}

func (s *RedisStore) AverageClaimAmount(ctx context.Context, claimType string, window time.Duration) (float64, error) {
	days := int(window.Hours()/24) + 1
	now := s.now().UTC()

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, days)
	for i := 0; i < days; i++ {
		key := claimBucketKey(claimType, now.AddDate(0, 0, -i))
		cmds = append(cmds, pipe.HGetAll(ctx, key))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("average claim amount: %w", err)
	}

	var sum float64
	var count int64
	for _, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		if v, err := strconv.ParseFloat(fields["sum"], 64); err == nil {
			sum += v
		}
		if v, err := strconv.ParseInt(fields["count"], 10, 64); err == nil {
			count += v
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}
