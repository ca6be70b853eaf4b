package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/reconcile"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

// errUnchanged tells a transaction that fn left the list as it was.
var errUnchanged = errors.New("list unchanged")

// List is a capped list of items stored as a Redis hash of id -> JSON.
// Read-modify-write goes through WATCH/MULTI so concurrent writers on the same
// key never lose each other's updates.
type List[T reconcile.Item[T]] struct {
	rdb      *redis.Client
	key      func(owner string) string
	version  func(owner string) string
	capacity int
}

// NewList creates a list whose hash key is derived from key. A capacity below
// zero means unbounded.
func NewList[T reconcile.Item[T]](rdb *redis.Client, key func(owner string) string, capacity int) *List[T] {
	return &List[T]{rdb: rdb, key: key, capacity: capacity}
}

// NewVersionedList is NewList with a version counter per owner at
// version(owner). Every write increments the counter in the same transaction,
// so a reader never sees a changed list under an old version.
func NewVersionedList[T reconcile.Item[T]](rdb *redis.Client, key, version func(owner string) string, capacity int) *List[T] {
	return &List[T]{rdb: rdb, key: key, version: version, capacity: capacity}
}

func decode[T any](raw map[string]string) []T {
	items := make([]T, 0, len(raw))
	for _, value := range raw {
		var item T
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func encode[T reconcile.Item[T]](items []T) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(items))
	for _, item := range items {
		if item.Key() == "" {
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode item %s: %w", item.Key(), err)
		}
		values[item.Key()] = data
	}
	return values, nil
}

// All returns every item of owner's list, newest first.
func (l *List[T]) All(ctx context.Context, owner string) ([]T, error) {
	raw, err := l.rdb.HGetAll(ctx, l.key(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.key(owner), err)
	}
	items := decode[T](raw)
	reconcile.Sort(items)
	return items, nil
}

func (l *List[T]) Get(ctx context.Context, owner, id string) (T, error) {
	var item T
	value, err := l.rdb.HGet(ctx, l.key(owner), id).Result()
	if errors.Is(err, redis.Nil) {
		return item, fmt.Errorf("item %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return item, fmt.Errorf("failed to read item %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(value), &item); err != nil {
		return item, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	return item, nil
}

// transact runs txf under WATCH of owner's list and version keys, retrying
// when another writer got in between.
func (l *List[T]) transact(ctx context.Context, owner string, txf func(*redis.Tx) error) error {
	key := l.key(owner)
	keys := []string{key}
	if l.version != nil {
		keys = append(keys, l.version(owner))
	}

	for i := 0; i < maxTxRetries; i++ {
		err := l.rdb.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("failed to update %s: too much contention: %w", key, apperr.ErrConflict)
}

func (l *List[T]) replace(ctx context.Context, pipe redis.Pipeliner, owner string, values map[string]interface{}) {
	key := l.key(owner)
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.HSet(ctx, key, values)
	}
}

// Mutate replaces owner's list with fn applied to its current contents. The
// result is trimmed to the list capacity and returned.
func (l *List[T]) Mutate(ctx context.Context, owner string, fn func([]T) ([]T, error)) ([]T, error) {
	var result []T

	err := l.transact(ctx, owner, func(tx *redis.Tx) error {
		raw, err := tx.HGetAll(ctx, l.key(owner)).Result()
		if err != nil {
			return err
		}

		current := decode[T](raw)
		next, err := fn(current)
		if errors.Is(err, errUnchanged) {
			reconcile.Sort(current)
			result = current
			return nil
		}
		if err != nil {
			return err
		}
		next = reconcile.Trim(next, l.capacity)

		values, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			l.replace(ctx, pipe, owner, values)
			if l.version != nil {
				pipe.Incr(ctx, l.version(owner))
			}
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MergeAt reconciles owner's list with a remote copy taken at version and
// reports whether it was merged. A copy older than the local version is
// ignored so items removed locally since are not brought back; a newer one
// lifts the local version to its own. On a list without a version it is
// Merge.
func (l *List[T]) MergeAt(ctx context.Context, owner string, remote []T, version int64) ([]T, bool, error) {
	if l.version == nil {
		items, err := l.Merge(ctx, owner, remote)
		return items, err == nil, err
	}

	var result []T
	merged := false
	versionKey := l.version(owner)

	err := l.transact(ctx, owner, func(tx *redis.Tx) error {
		merged = false
		raw, err := tx.HGetAll(ctx, l.key(owner)).Result()
		if err != nil {
			return err
		}
		local, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		current := decode[T](raw)
		if version < local {
			reconcile.Sort(current)
			result = current
			return nil
		}

		next := reconcile.Trim(reconcile.Merge(current, remote), l.capacity)
		values, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			l.replace(ctx, pipe, owner, values)
			if version > local {
				pipe.Set(ctx, versionKey, version, 0)
			}
			return nil
		})
		if err == nil {
			result, merged = next, true
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, merged, nil
}

// Add inserts items, replacing any with the same id.
func (l *List[T]) Add(ctx context.Context, owner string, items ...T) ([]T, error) {
	return l.Mutate(ctx, owner, func(current []T) ([]T, error) {
		return reconcile.Merge(items, current), nil
	})
}

// Put overwrites a single item in place. It returns ErrNotFound when the item
// is not in the list.
func (l *List[T]) Put(ctx context.Context, owner string, item T) error {
	_, err := l.Mutate(ctx, owner, func(current []T) ([]T, error) {
		for i := range current {
			if current[i].Key() == item.Key() {
				current[i] = item
				return current, nil
			}
		}
		return nil, fmt.Errorf("item %s: %w", item.Key(), apperr.ErrNotFound)
	})
	return err
}

// Merge reconciles owner's list with a remote copy and stores the result.
func (l *List[T]) Merge(ctx context.Context, owner string, remote []T) ([]T, error) {
	return l.Mutate(ctx, owner, func(current []T) ([]T, error) {
		return reconcile.Merge(current, remote), nil
	})
}

// Remove deletes the items matched by pred and reports how many went away.
func (l *List[T]) Remove(ctx context.Context, owner string, pred func(T) bool) (int, error) {
	removed := 0
	_, err := l.Mutate(ctx, owner, func(current []T) ([]T, error) {
		removed = 0
		kept := make([]T, 0, len(current))
		for _, item := range current {
			if pred(item) {
				removed++
				continue
			}
			kept = append(kept, item)
		}
		if removed == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	return removed, err
}

// MarkRead flags the items matched by pred as read and reports how many
// changed.
func (l *List[T]) MarkRead(ctx context.Context, owner string, pred func(T) bool) (int, error) {
	changed := 0
	_, err := l.Mutate(ctx, owner, func(current []T) ([]T, error) {
		var next []T
		next, changed = reconcile.MarkRead(current, pred)
		if changed == 0 {
			return nil, errUnchanged
		}
		return next, nil
	})
	return changed, err
}
