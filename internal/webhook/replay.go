package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayPrefix = "webhook:ref:v1:"

// ReplayGuard short-circuits redelivered webhook references using Redis
// before the ledger is touched. It is a fast path only: the ledger's
// reference uniqueness stays authoritative, so the guard fails open on any
// cache error.
type ReplayGuard struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewReplayGuard builds a guard over the given Redis client.
func NewReplayGuard(cache *redis.Client, ttl time.Duration, logger *slog.Logger) *ReplayGuard {
	return &ReplayGuard{cache: cache, ttl: ttl, logger: logger}
}

// Seen reports whether the reference was already processed.
func (g *ReplayGuard) Seen(ctx context.Context, reference string) bool {
	if g == nil || g.cache == nil {
		return false
	}
	n, err := g.cache.Exists(ctx, replayPrefix+reference).Result()
	if err != nil {
		g.logger.Warn("replay guard lookup failed", "reference", reference, "error", err)
		return false
	}
	return n > 0
}

// Mark records the reference as processed. Best effort.
func (g *ReplayGuard) Mark(ctx context.Context, reference string) {
	if g == nil || g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, replayPrefix+reference, "1", g.ttl).Err(); err != nil {
		g.logger.Warn("replay guard mark failed", "reference", reference, "error", err)
	}
}
