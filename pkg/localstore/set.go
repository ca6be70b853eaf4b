package localstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Set is a Redis set per owner (liked posts, muted actors, conversations).
type Set struct {
	rdb *redis.Client
	key func(owner string) string
}

func NewSet(rdb *redis.Client, key func(owner string) string) *Set {
	return &Set{rdb: rdb, key: key}
}

func (s *Set) Add(ctx context.Context, owner string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.rdb.SAdd(ctx, s.key(owner), args...).Err(); err != nil {
		return fmt.Errorf("failed to add to %s: %w", s.key(owner), err)
	}
	return nil
}

func (s *Set) Remove(ctx context.Context, owner, member string) error {
	if err := s.rdb.SRem(ctx, s.key(owner), member).Err(); err != nil {
		return fmt.Errorf("failed to remove from %s: %w", s.key(owner), err)
	}
	return nil
}

func (s *Set) Has(ctx context.Context, owner, member string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, s.key(owner), member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", s.key(owner), err)
	}
	return ok, nil
}

// Members returns the sorted members of owner's set.
func (s *Set) Members(ctx context.Context, owner string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, s.key(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key(owner), err)
	}
	sort.Strings(members)
	return members, nil
}

// Toggle adds member when absent and removes it otherwise. It reports whether
// the member is present afterwards.
func (s *Set) Toggle(ctx context.Context, owner, member string) (bool, error) {
	has, err := s.Has(ctx, owner, member)
	if err != nil {
		return false, err
	}
	if has {
		return false, s.Remove(ctx, owner, member)
	}
	return true, s.Add(ctx, owner, member)
}
