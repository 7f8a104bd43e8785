package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "lead:idem:"
	pendingMarker        = "pending"
	doneMarkerPrefix     = "done:"
)

// ClaimState describes who owns an idempotency key.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the key and must Complete or Release it.
	ClaimAcquired ClaimState = iota
	// ClaimInFlight means another request holds the key and has not finished.
	ClaimInFlight
	// ClaimCompleted means a lead was already created for the key.
	ClaimCompleted
)

// IdempotencyGuard deduplicates lead submissions that share a client key.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (state ClaimState, leadID string, err error)
	Complete(ctx context.Context, key, leadID string) error
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyGuard keeps claims in Redis with SETNX and a TTL.
type RedisIdempotencyGuard struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisIdempotencyGuard(client *redis.Client, ttl time.Duration) *RedisIdempotencyGuard {
	if client == nil {
		panic("leads: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyGuard{redis: client, ttl: ttl}
}

func (g *RedisIdempotencyGuard) Claim(ctx context.Context, key string) (ClaimState, string, error) {
	redisKey := idempotencyKeyPrefix + key
	ok, err := g.redis.SetNX(ctx, redisKey, pendingMarker, g.ttl).Result()
	if err != nil {
		return 0, "", fmt.Errorf("leads: idempotency claim: %w", err)
	}
	if ok {
		return ClaimAcquired, "", nil
	}

	val, err := g.redis.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = g.redis.SetNX(ctx, redisKey, pendingMarker, g.ttl).Result()
		if err != nil {
			return 0, "", fmt.Errorf("leads: idempotency claim: %w", err)
		}
		if ok {
			return ClaimAcquired, "", nil
		}
		return ClaimInFlight, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("leads: idempotency lookup: %w", err)
	}
	return parseMarker(val)
}

func (g *RedisIdempotencyGuard) Complete(ctx context.Context, key, leadID string) error {
	if err := g.redis.Set(ctx, idempotencyKeyPrefix+key, doneMarkerPrefix+leadID, g.ttl).Err(); err != nil {
		return fmt.Errorf("leads: idempotency complete: %w", err)
	}
	return nil
}

func (g *RedisIdempotencyGuard) Release(ctx context.Context, key string) error {
	if err := g.redis.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("leads: idempotency release: %w", err)
	}
	return nil
}

func parseMarker(val string) (ClaimState, string, error) {
	if strings.HasPrefix(val, doneMarkerPrefix) {
		return ClaimCompleted, strings.TrimPrefix(val, doneMarkerPrefix), nil
	}
	return ClaimInFlight, "", nil
}

// MemoryIdempotencyGuard is used when Redis is not configured.
type MemoryIdempotencyGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryClaim
}

type memoryClaim struct {
	marker  string
	expires time.Time
}

func NewMemoryIdempotencyGuard(ttl time.Duration) *MemoryIdempotencyGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryIdempotencyGuard{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryClaim),
	}
}

func (g *MemoryIdempotencyGuard) Claim(ctx context.Context, key string) (ClaimState, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if c, ok := g.entries[key]; ok && now.Before(c.expires) {
		return parseMarker(c.marker)
	}
	g.entries[key] = memoryClaim{marker: pendingMarker, expires: now.Add(g.ttl)}
	return ClaimAcquired, "", nil
}

func (g *MemoryIdempotencyGuard) Complete(ctx context.Context, key, leadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[key] = memoryClaim{marker: doneMarkerPrefix + leadID, expires: g.now().Add(g.ttl)}
	return nil
}

func (g *MemoryIdempotencyGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}
