package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Versions is the per-owner, per-kind mutation counter. The mirror worker
// compares task versions against it to discard stale snapshots.
type Versions struct {
	rdb *redis.Client
}

func NewVersions(rdb *redis.Client) *Versions {
	return &Versions{rdb: rdb}
}

func (v *Versions) Bump(ctx context.Context, kind, owner string) (int64, error) {
	version, err := v.rdb.Incr(ctx, VersionKey(kind, owner)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump %s version of %s: %w", kind, owner, err)
	}
	return version, nil
}

func (v *Versions) Current(ctx context.Context, kind, owner string) (int64, error) {
	version, err := v.rdb.Get(ctx, VersionKey(kind, owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s version of %s: %w", kind, owner, err)
	}
	return version, nil
}

var raiseScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local target = tonumber(ARGV[1])
if target > current then
	redis.call("SET", KEYS[1], ARGV[1])
	return target
end
return current
`)

// Raise lifts the counter to at least version, used after restoring a list
// from a mirrored snapshot.
func (v *Versions) Raise(ctx context.Context, kind, owner string, version int64) (int64, error) {
	current, err := raiseScript.Run(ctx, v.rdb, []string{VersionKey(kind, owner)}, version).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to raise %s version of %s: %w", kind, owner, err)
	}
	return current, nil
}
