package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   0,
	})
}

func TestBoardUnavailable(t *testing.T) {
	b := New(deadRedis(), "")
	ctx := context.Background()

	assert.Error(t, b.SetBest(ctx, "ana", 100))
	_, err := b.Top(ctx, 10)
	assert.Error(t, err)
	assert.Error(t, b.Check(ctx))
	assert.Error(t, b.Warm(ctx, []Entry{{Username: "ana", BestScore: 1}}))
}

func TestBoardTopZero(t *testing.T) {
	b := New(deadRedis(), "")
	got, err := b.Top(context.Background(), 0)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoardRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a redis container")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine",
		tc.WithWaitStrategy(wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	tc.CleanupContainer(t, container)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })

	b := New(rdb, "test:best")
	require.NoError(t, b.Check(ctx))

	require.NoError(t, b.SetBest(ctx, "ana", 1200))
	require.NoError(t, b.SetBest(ctx, "ben", 900))
	require.NoError(t, b.SetBest(ctx, "ana", 700))
	require.NoError(t, b.Warm(ctx, []Entry{{Username: "cy", BestScore: 5880}, {Username: "ben", BestScore: 100}}))

	top, err := b.Top(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Username: "cy", BestScore: 5880},
		{Username: "ana", BestScore: 1200},
	}, top)

	all, err := b.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, Entry{Username: "ben", BestScore: 900}, all[2])
}
