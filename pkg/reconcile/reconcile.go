// Package reconcile merges the copies of a user's notification or message
// list that live in different stores (the local cache and the mirrored
// snapshot) into one list.
//
// The rules are:
//   - items are identified by Key; items without a key are dropped
//   - when both copies hold an item, the local copy's content wins
//   - read state is monotone: an item read in either copy is read in the result
//   - the result is ordered newest first, ties broken by key
package reconcile

import (
	"slices"
	"strings"
	"time"
)

// Item is an entry of a reconciled list. AsRead returns a copy of the item
// with its read flag set.
type Item[T any] interface {
	Key() string
	Time() time.Time
	Seen() bool
	AsRead() T
}

// Merge combines the local and remote copies of a list.
func Merge[T Item[T]](local, remote []T) []T {
	byKey := make(map[string]T, len(local)+len(remote))

	absorb := func(items []T) {
		for _, item := range items {
			key := item.Key()
			if key == "" {
				continue
			}
			if prev, ok := byKey[key]; ok && prev.Seen() && !item.Seen() {
				item = item.AsRead()
			}
			byKey[key] = item
		}
	}

	// remote first so local content overwrites it
	absorb(remote)
	absorb(local)

	out := make([]T, 0, len(byKey))
	for _, item := range byKey {
		out = append(out, item)
	}
	Sort(out)
	return out
}

// Sort orders items newest first, ties broken by key.
func Sort[T Item[T]](items []T) {
	slices.SortFunc(items, func(a, b T) int {
		if c := b.Time().Compare(a.Time()); c != 0 {
			return c
		}
		return strings.Compare(a.Key(), b.Key())
	})
}

// Unread counts the items that have not been read.
func Unread[T Item[T]](items []T) int {
	n := 0
	for _, item := range items {
		if !item.Seen() {
			n++
		}
	}
	return n
}

// Trim keeps the newest n items. The input is sorted in place.
func Trim[T Item[T]](items []T, n int) []T {
	Sort(items)
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

// MarkRead sets the read flag on every item matched by pred and reports how
// many items changed.
func MarkRead[T Item[T]](items []T, pred func(T) bool) ([]T, int) {
	changed := 0
	for i, item := range items {
		if item.Seen() || !pred(item) {
			continue
		}
		items[i] = item.AsRead()
		changed++
	}
	return items, changed
}

// Page returns items[offset:offset+limit] clamped to the slice bounds.
func Page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
