package persistent

import (
	"context"
	"errors"
	"time"

	"blockconnect/services/mirror/internal/entity"
	"blockconnect/services/mirror/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SyncRepository interface {
	// Get returns the state of owner's kind list, or an empty state at
	// version 0 when it was never mirrored.
	Get(ctx context.Context, owner, kind string) (*entity.SyncState, error)
	// Save stores state unless a row at the same or a newer version is
	// already there, and reports whether it was stored.
	Save(ctx context.Context, state *entity.SyncState) (bool, error)
	RecordFailure(ctx context.Context, owner, kind, message string) error
	ListByOwner(ctx context.Context, owner string) ([]*entity.SyncState, error)
}

type syncRepository struct {
	db *gorm.DB
}

func NewSyncRepository(db *gorm.DB) SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) Get(ctx context.Context, owner, kind string) (*entity.SyncState, error) {
	var stateModel model.SyncStateModel
	err := r.db.WithContext(ctx).Where("owner = ? AND kind = ?", owner, kind).First(&stateModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entity.SyncState{Owner: owner, Kind: kind}, nil
	}
	if err != nil {
		return nil, err
	}
	return ToSyncStateEntity(&stateModel), nil
}

func (r *syncRepository) Save(ctx context.Context, state *entity.SyncState) (bool, error) {
	state.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "kind"}},
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("sync_states.version < excluded.version"),
		}},
		DoUpdates: clause.AssignmentColumns([]string{"cid", "version", "attempts", "last_error", "synced_at", "updated_at"}),
	}).Create(ToSyncStateModel(state))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordFailure stores message as the last error and counts the attempt,
// leaving the mirrored version untouched.
func (r *syncRepository) RecordFailure(ctx context.Context, owner, kind, message string) error {
	now := time.Now().UTC()
	row := &model.SyncStateModel{Owner: owner, Kind: kind, Attempts: 1, LastError: message, UpdatedAt: now}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":   gorm.Expr("sync_states.attempts + 1"),
			"last_error": message,
			"updated_at": now,
		}),
	}).Create(row).Error
}

func (r *syncRepository) ListByOwner(ctx context.Context, owner string) ([]*entity.SyncState, error) {
	var rows []model.SyncStateModel
	if err := r.db.WithContext(ctx).Where("owner = ?", owner).Order("kind").Find(&rows).Error; err != nil {
		return nil, err
	}
	states := make([]*entity.SyncState, 0, len(rows))
	for i := range rows {
		states = append(states, ToSyncStateEntity(&rows[i]))
	}
	return states, nil
}
