package calls

import (
	"context"
	"time"

	"listenline/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// ClaimStore is the fast-path guard for the one-active-call-per-listener
// rule. It is advisory only: the conditional insert in the call store is
// the authority. A claim left behind by a crashed process expires via
// TTL rather than wedging the listener.
type ClaimStore interface {
	Acquire(ctx context.Context, listenerID string) (bool, error)
	Release(ctx context.Context, listenerID string) error
}

// RedisClaims implements ClaimStore on the shared Redis concurrency cap
// (limit 1 per listener).
type RedisClaims struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClaims(rdb *redis.Client, ttl time.Duration) *RedisClaims {
	return &RedisClaims{rdb: rdb, ttl: ttl}
}

func claimKey(listenerID string) string {
	return "call_claim:listener:" + listenerID
}

func (c *RedisClaims) Acquire(ctx context.Context, listenerID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, c.rdb, claimKey(listenerID), 1, c.ttl)
}

func (c *RedisClaims) Release(ctx context.Context, listenerID string) error {
	return utils.ReleaseConcurrencyCap(ctx, c.rdb, claimKey(listenerID))
}
