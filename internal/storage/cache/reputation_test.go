package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/common/logger/loggertest"
	"exchange-matcher/internal/matching"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReputation struct {
	mock.Mock
}

func (m *mockReputation) Rating(ctx context.Context, userID string) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockReputation) Trust(ctx context.Context, userID string) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestReputationCache_ReadThrough(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	backing := &mockReputation{}
	backing.On("Rating", mock.Anything, "u-1").Return(4.5, nil).Once()
	backing.On("Trust", mock.Anything, "u-1").Return(80.0, nil).Once()

	c := NewReputationCache(backing, rdb, time.Minute, loggertest.New(t))
	ctx := context.Background()

	rating, err := c.Rating(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 4.5, rating)

	trust, err := c.Trust(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, trust)

	backing.AssertExpectations(t)
	assert.True(t, mr.Exists("reputation:u-1"))
	assert.Equal(t, time.Minute, mr.TTL("reputation:u-1"))
}

func TestReputationCache_ExpiredEntryRefetches(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	backing := &mockReputation{}
	backing.On("Rating", mock.Anything, "u-1").Return(4.0, nil).Twice()
	backing.On("Trust", mock.Anything, "u-1").Return(60.0, nil).Twice()

	c := NewReputationCache(backing, rdb, time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()

	_, err := c.Rating(ctx, "u-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = c.Rating(ctx, "u-1")
	require.NoError(t, err)

	backing.AssertExpectations(t)
}

func TestReputationCache_CorruptEntryIsReplaced(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	require.NoError(t, mr.Set("reputation:u-2", "{not json"))

	backing := &mockReputation{}
	backing.On("Rating", mock.Anything, "u-2").Return(3.5, nil)
	backing.On("Trust", mock.Anything, "u-2").Return(55.0, nil)

	c := NewReputationCache(backing, rdb, time.Minute, logger.NewNoOpLogger())
	rating, err := c.Rating(context.Background(), "u-2")
	require.NoError(t, err)
	assert.Equal(t, 3.5, rating)

	raw, err := mr.Get("reputation:u-2")
	require.NoError(t, err)
	var e reputationEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, 55.0, e.Trust)
}

func TestReputationCache_BackingErrorNotCached(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	backing := &mockReputation{}
	backing.On("Rating", mock.Anything, "u-3").Return(0.0, errors.New("db down"))

	c := NewReputationCache(backing, rdb, time.Minute, logger.NewNoOpLogger())
	rating, err := c.Rating(context.Background(), "u-3")
	require.Error(t, err)
	assert.Equal(t, matching.DefaultRating, rating)
	assert.False(t, mr.Exists("reputation:u-3"))
}

func TestReputationCache_RedisErrorFallsThrough(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	redisMock.ExpectGet("reputation:u-4").SetErr(errors.New("connection refused"))
	data, _ := json.Marshal(reputationEntry{Rating: 5, Trust: 90})
	redisMock.ExpectSet("reputation:u-4", data, DefaultReputationTTL).SetErr(errors.New("connection refused"))

	backing := &mockReputation{}
	backing.On("Rating", mock.Anything, "u-4").Return(5.0, nil)
	backing.On("Trust", mock.Anything, "u-4").Return(90.0, nil)

	c := NewReputationCache(backing, rdb, 0, logger.NewNoOpLogger())
	trust, err := c.Trust(context.Background(), "u-4")
	require.NoError(t, err)
	assert.Equal(t, 90.0, trust)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestReputationCache_Invalidate(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	require.NoError(t, mr.Set("reputation:u-5", `{"rating":1,"trust":1}`))

	c := NewReputationCache(&mockReputation{}, rdb, time.Minute, logger.NewNoOpLogger())
	require.NoError(t, c.Invalidate(context.Background(), "u-5"))
	assert.False(t, mr.Exists("reputation:u-5"))
}
