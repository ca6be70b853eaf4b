// Package mirror describes how local notification and message lists are
// copied to the content store and pointed at from the contract.
//
// Every local mutation bumps the owner's version and schedules a Task. The
// worker writes a Snapshot of the current list and records the version it
// mirrored, so a task older than the last mirrored version is a no-op and
// the newest local state always wins.
package mirror

import (
	"context"
	"fmt"
	"time"

	"blockconnect/pkg/logger"
)

type Kind string

const (
	KindNotifications Kind = "notifications"
	KindMessages      Kind = "messages"
)

func (k Kind) Valid() bool {
	return k == KindNotifications || k == KindMessages
}

// Task asks the worker to mirror Owner's list of Kind at Version or later.
type Task struct {
	Owner   string `json:"owner"`
	Kind    Kind   `json:"kind"`
	Version int64  `json:"version"`
}

func (t Task) Validate() error {
	if t.Owner == "" || !t.Kind.Valid() || t.Version <= 0 {
		return fmt.Errorf("invalid mirror task %+v", t)
	}
	return nil
}

// Snapshot is the blob written to the content store.
type Snapshot[T any] struct {
	Owner     string    `json:"owner"`
	Kind      Kind      `json:"kind"`
	Version   int64     `json:"version"`
	Items     []T       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

type Publisher interface {
	PublishMirrorTask(ctx context.Context, task Task) error
}

type VersionCounter interface {
	Bump(ctx context.Context, kind, owner string) (int64, error)
	Current(ctx context.Context, kind, owner string) (int64, error)
}

// Scheduler bumps versions and publishes mirror tasks. Both steps are best
// effort: a failure is logged and never fails the caller's mutation.
type Scheduler struct {
	versions  VersionCounter
	publisher Publisher
	logger    *logger.Logger
}

// NewScheduler returns a scheduler. publisher may be nil when the service
// runs without a queue; versions are still bumped.
func NewScheduler(versions VersionCounter, publisher Publisher, log *logger.Logger) *Scheduler {
	return &Scheduler{versions: versions, publisher: publisher, logger: log}
}

func (s *Scheduler) Schedule(ctx context.Context, kind Kind, owners ...string) {
	for _, owner := range owners {
		if owner == "" {
			continue
		}
		version, err := s.versions.Bump(ctx, string(kind), owner)
		if err != nil {
			s.logger.Warn("[MIRROR] Failed to bump %s version for %s: %v", kind, owner, err)
			continue
		}
		s.publish(ctx, Task{Owner: owner, Kind: kind, Version: version})
	}
}

// Publish schedules a mirror of lists whose write already bumped the
// version, such as the versioned notification list.
func (s *Scheduler) Publish(ctx context.Context, kind Kind, owners ...string) {
	for _, owner := range owners {
		if owner == "" {
			continue
		}
		version, err := s.versions.Current(ctx, string(kind), owner)
		if err != nil {
			s.logger.Warn("[MIRROR] Failed to read %s version for %s: %v", kind, owner, err)
			continue
		}
		s.publish(ctx, Task{Owner: owner, Kind: kind, Version: version})
	}
}

func (s *Scheduler) publish(ctx context.Context, task Task) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMirrorTask(ctx, task); err != nil {
		s.logger.Warn("[MIRROR] Failed to publish mirror task %+v: %v", task, err)
	}
}
