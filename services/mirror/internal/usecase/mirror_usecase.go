package usecase

import (
	"context"
	"fmt"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/services/mirror/internal/entity"
	"blockconnect/services/mirror/internal/repo/persistent"
)

// PointerWriter points a contract field at a mirrored snapshot.
type PointerWriter interface {
	Set(ctx context.Context, kind mirror.Kind, owner, ref string) error
}

type Scheduler interface {
	Schedule(ctx context.Context, kind mirror.Kind, owners ...string)
}

// Leases serializes the workers mirroring the same list.
type Leases interface {
	Acquire(ctx context.Context, name string) (*localstore.Lease, error)
}

type MirrorUseCase interface {
	// Process mirrors the list named by task unless a snapshot at task's
	// version or newer was already written.
	Process(ctx context.Context, task mirror.Task) error
	Status(ctx context.Context, owner string) ([]*entity.SyncState, error)
	// Resync schedules a fresh mirror of owner's kind list.
	Resync(ctx context.Context, owner string, kind mirror.Kind) error
}

type mirrorUseCase struct {
	syncRepo  persistent.SyncRepository
	source    persistent.ListSource
	store     content.Store
	pointers  PointerWriter
	scheduler Scheduler
	leases    Leases
	logger    *logger.Logger
}

func NewMirrorUseCase(
	syncRepo persistent.SyncRepository,
	source persistent.ListSource,
	store content.Store,
	pointers PointerWriter,
	scheduler Scheduler,
	leases Leases,
	logger *logger.Logger,
) MirrorUseCase {
	return &mirrorUseCase{
		syncRepo:  syncRepo,
		source:    source,
		store:     store,
		pointers:  pointers,
		scheduler: scheduler,
		leases:    leases,
		logger:    logger,
	}
}

func (uc *mirrorUseCase) Process(ctx context.Context, task mirror.Task) error {
	kind := string(task.Kind)
	lease, err := uc.leases.Acquire(ctx, kind+":"+task.Owner)
	if err != nil {
		return fmt.Errorf("failed to lock %s/%s: %w", task.Owner, kind, err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			uc.logger.Warn("[MIRROR] %v", err)
		}
	}()

	state, err := uc.syncRepo.Get(ctx, task.Owner, kind)
	if err != nil {
		return fmt.Errorf("failed to read sync state of %s/%s: %w", task.Owner, kind, err)
	}
	if state.Version >= task.Version {
		uc.logger.Debug("[MIRROR] Skipping stale task %s/%s v%d (synced v%d)", task.Owner, kind, task.Version, state.Version)
		return nil
	}

	ref, version, err := uc.mirror(ctx, task)
	if err != nil {
		uc.logger.Error("[MIRROR] Failed to mirror %s/%s v%d: %v", task.Owner, kind, task.Version, err)
		if recordErr := uc.syncRepo.RecordFailure(ctx, task.Owner, kind, err.Error()); recordErr != nil {
			uc.logger.Warn("[MIRROR] Failed to record failure of %s/%s: %v", task.Owner, kind, recordErr)
		}
		return err
	}

	now := time.Now().UTC()
	state.CID = ref
	state.Version = version
	state.Attempts = 0
	state.LastError = ""
	state.SyncedAt = &now
	saved, err := uc.syncRepo.Save(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to save sync state of %s/%s: %w", task.Owner, kind, err)
	}
	if !saved {
		// A worker whose lease expired got a newer snapshot in first, and our
		// pointer write may have replaced it.
		uc.logger.Warn("[MIRROR] Newer snapshot of %s/%s recorded during v%d, rescheduling", task.Owner, kind, version)
		uc.scheduler.Schedule(ctx, task.Kind, task.Owner)
		return nil
	}

	uc.logger.Info("[MIRROR] Mirrored %s/%s v%d to %s", task.Owner, kind, version, ref)
	return nil
}

// mirror writes the snapshot and points the contract at it. The local
// version is read before the items, so the recorded version never covers a
// mutation the snapshot is missing.
func (uc *mirrorUseCase) mirror(ctx context.Context, task mirror.Task) (string, int64, error) {
	version, err := uc.source.Version(ctx, string(task.Kind), task.Owner)
	if err != nil {
		return "", 0, err
	}
	if version < task.Version {
		version = task.Version
	}

	var ref string
	switch task.Kind {
	case mirror.KindNotifications:
		items, err := uc.source.Notifications(ctx, task.Owner)
		if err != nil {
			return "", 0, err
		}
		ref, err = writeSnapshot(ctx, uc.store, task, version, items)
		if err != nil {
			return "", 0, err
		}
	case mirror.KindMessages:
		items, err := uc.source.Messages(ctx, task.Owner)
		if err != nil {
			return "", 0, err
		}
		ref, err = writeSnapshot(ctx, uc.store, task, version, items)
		if err != nil {
			return "", 0, err
		}
	default:
		return "", 0, fmt.Errorf("unknown mirror kind %q", task.Kind)
	}

	if err := uc.pointers.Set(ctx, task.Kind, task.Owner, ref); err != nil {
		return "", 0, fmt.Errorf("failed to update %s pointer of %s: %w", task.Kind, task.Owner, err)
	}
	return ref, version, nil
}

func writeSnapshot[T any](ctx context.Context, store content.Store, task mirror.Task, version int64, items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	snapshot := mirror.Snapshot[T]{
		Owner:     task.Owner,
		Kind:      task.Kind,
		Version:   version,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
	ref, err := content.PutJSON(ctx, store, snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to store %s snapshot of %s: %w", task.Kind, task.Owner, err)
	}
	return ref, nil
}

func (uc *mirrorUseCase) Status(ctx context.Context, owner string) ([]*entity.SyncState, error) {
	return uc.syncRepo.ListByOwner(ctx, owner)
}

func (uc *mirrorUseCase) Resync(ctx context.Context, owner string, kind mirror.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown list %q: %w", kind, apperr.ErrInvalidInput)
	}
	uc.scheduler.Schedule(ctx, kind, owner)
	return nil
}
