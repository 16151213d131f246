// Package leaderboard caches personal bests in a Redis sorted set so the
// player ranking can be served without scanning the score history.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "arena:leaderboard:best"

type Entry struct {
	Username  string `json:"username"`
	BestScore int    `json:"best_score"`
}

type Board struct {
	rdb redis.UniversalClient
	key string
}

func New(rdb redis.UniversalClient, key string) *Board {
	if key == "" {
		key = DefaultKey
	}
	return &Board{rdb: rdb, key: key}
}

// SetBest records best for player. A lower value never replaces a higher
// one already cached.
func (b *Board) SetBest(ctx context.Context, player string, best int) error {
	err := b.rdb.ZAddGT(ctx, b.key, redis.Z{Score: float64(best), Member: player}).Err()
	if err != nil {
		return fmt.Errorf("caching best for %s: %w", player, err)
	}
	return nil
}

// Top returns up to n players ordered by best score, highest first.
func (b *Board) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Entry{Username: name, BestScore: int(z.Score)})
	}
	return out, nil
}

// Warm loads entries into the cache in one round trip. Used at startup so
// the cache reflects bests recorded while it was unavailable.
func (b *Board) Warm(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := b.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, e := range entries {
			p.ZAddGT(ctx, b.key, redis.Z{Score: float64(e.BestScore), Member: e.Username})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("warming leaderboard: %w", err)
	}
	return nil
}

// Check pings Redis. It satisfies health.Checker.
func (b *Board) Check(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
