//go:build integration

package signals_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"underwrite/internal/fraud/store/signals"
	"underwrite/pkg/testutil/containers"
)

type RedisSignalStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *signals.RedisStore
	ctx   context.Context
}

func TestRedisSignalStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSignalStoreSuite))
}

func (s *RedisSignalStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisSignalStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.store = signals.NewRedisStore(s.redis.Client, 30*24*time.Hour)
}

func (s *RedisSignalStoreSuite) TestVelocityWindow() {
	now := time.Now().UTC()

	s.Require().NoError(s.store.RecordApplication(s.ctx, "cust-1", now.Add(-10*24*time.Hour)))
	s.Require().NoError(s.store.RecordApplication(s.ctx, "cust-1", now.Add(-time.Hour)))
	s.Require().NoError(s.store.RecordApplication(s.ctx, "cust-1", now))

	count, err := s.store.CountRecent(s.ctx, "cust-1", 24*time.Hour)
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.store.CountRecent(s.ctx, "cust-1", 30*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *RedisSignalStoreSuite) TestVelocityIsolatedPerIdentity() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.RecordApplication(s.ctx, "cust-1", now))

	count, err := s.store.CountRecent(s.ctx, "cust-2", 24*time.Hour)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RedisSignalStoreSuite) TestRetentionPrunesOldEvents() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.RecordApplication(s.ctx, "cust-1", now.Add(-60*24*time.Hour)))
	// A fresh record triggers the prune of anything past retention.
	s.Require().NoError(s.store.RecordApplication(s.ctx, "cust-1", now))

	count, err := s.store.CountRecent(s.ctx, "cust-1", 365*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RedisSignalStoreSuite) TestClaimAverage() {
	now := time.Now().UTC()

	s.Require().NoError(s.store.RecordClaimAmount(s.ctx, "water-damage", 1000, now.AddDate(0, 0, -2)))
	s.Require().NoError(s.store.RecordClaimAmount(s.ctx, "water-damage", 2000, now.AddDate(0, 0, -1)))
	s.Require().NoError(s.store.RecordClaimAmount(s.ctx, "water-damage", 3000, now))

	avg, err := s.store.AverageClaimAmount(s.ctx, "water-damage", 7*24*time.Hour)
	s.Require().NoError(err)
	s.InDelta(2000, avg, 0.001)
}

func (s *RedisSignalStoreSuite) TestClaimAverageScopedToWindow() {
	now := time.Now().UTC()

	s.Require().NoError(s.store.RecordClaimAmount(s.ctx, "fire", 10000, now.AddDate(0, 0, -20)))
	s.Require().NoError(s.store.RecordClaimAmount(s.ctx, "fire", 500, now))

	avg, err := s.store.AverageClaimAmount(s.ctx, "fire", 7*24*time.Hour)
	s.Require().NoError(err)
	s.InDelta(500, avg, 0.001)
}

func (s *RedisSignalStoreSuite) TestClaimAverageIsolatedPerType() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.RecordClaimAmount(s.ctx, "fire", 10000, now))

	avg, err := s.store.AverageClaimAmount(s.ctx, "theft", 7*24*time.Hour)
	s.Require().NoError(err)
	s.Zero(avg)
}
