package toolpool

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"codesandbox/internal/errs"
	"codesandbox/internal/metrics"
)

// availabilityTTL bounds how long a positive toolchain-presence result is
// trusted across service replicas before re-checking, so an operator
// upgrading one host's toolchain doesn't leave other replicas permanently
// trusting a stale miss or hit.
const availabilityTTL = 10 * time.Minute

// AvailabilityCache shares per-host toolchain presence across multiple
// Service replicas behind the same Redis instance, avoiding a redundant
// exec.LookPath (or, worse, a redundant install attempt) on every replica
// for a tool already confirmed present elsewhere. Each replica still
// falls back to its own local internal/toolcheck.Checker when Redis is
// unavailable; this cache is a latency optimization, never a correctness
// dependency.
type AvailabilityCache struct {
	client *redis.Client
	prefix string
}

// NewAvailabilityCache wraps an existing redis client.
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client, prefix: "codesandbox:tool:"}
}

// Get reports a cached availability result and whether the cache had an
// entry at all (a cache miss is distinct from a cached "unavailable").
func (c *AvailabilityCache) Get(ctx context.Context, tool string) (available bool, found bool) {
	val, err := c.client.Get(ctx, c.prefix+tool).Result()
	if err == redis.Nil {
		metrics.Get().ToolchainCacheHits.WithLabelValues("shared_miss").Inc()
		return false, false
	}
	if err != nil {
		metrics.Get().ToolchainCacheHits.WithLabelValues("shared_error").Inc()
		return false, false
	}
	metrics.Get().ToolchainCacheHits.WithLabelValues("shared_hit").Inc()
	return val == "1", true
}

// Set records a toolchain presence result with the standard TTL.
func (c *AvailabilityCache) Set(ctx context.Context, tool string, available bool) error {
	val := "0"
	if available {
		val = "1"
	}
	if err := c.client.Set(ctx, c.prefix+tool, val, availabilityTTL).Err(); err != nil {
		return errs.Wrap(errs.KindSystem, err, "cache toolchain availability")
	}
	return nil
}
