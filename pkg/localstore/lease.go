package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blockconnect/pkg/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	LeaseTTL       = 2 * time.Minute
	LeaseWait      = 30 * time.Second
	leaseRetryStep = 50 * time.Millisecond
)

// Leases hands out named, expiring locks. A holder that outlives the TTL
// loses the lease, so callers keep their own guard against a late writer.
type Leases struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

func NewLeases(rdb *redis.Client, ttl, wait time.Duration) *Leases {
	return &Leases{rdb: rdb, ttl: ttl, wait: wait}
}

type Lease struct {
	rdb   *redis.Client
	key   string
	token string
}

// Acquire takes the lease on name, polling until it is free. It gives up with
// ErrConflict once the wait runs out.
func (l *Leases) Acquire(ctx context.Context, name string) (*Lease, error) {
	lease := &Lease{rdb: l.rdb, key: LeaseKey(name), token: uuid.NewString()}
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, lease.key, lease.token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to take lease %s: %w", name, err)
		}
		if ok {
			return lease, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lease %s is held: %w", name, apperr.ErrConflict)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(leaseRetryStep):
		}
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release drops the lease unless it already expired and went to someone
// else.
func (l *Lease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
