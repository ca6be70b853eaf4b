package persistent

import (
	"blockconnect/services/mirror/internal/entity"
	"blockconnect/services/mirror/internal/model"
)

func ToSyncStateEntity(m *model.SyncStateModel) *entity.SyncState {
	if m == nil {
		return nil
	}

	return &entity.SyncState{
		Owner:     m.Owner,
		Kind:      m.Kind,
		CID:       m.CID,
		Version:   m.Version,
		Attempts:  m.Attempts,
		LastError: m.LastError,
		SyncedAt:  m.SyncedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ToSyncStateModel(e *entity.SyncState) *model.SyncStateModel {
	if e == nil {
		return nil
	}

	return &model.SyncStateModel{
		Owner:     e.Owner,
		Kind:      e.Kind,
		CID:       e.CID,
		Version:   e.Version,
		Attempts:  e.Attempts,
		LastError: e.LastError,
		SyncedAt:  e.SyncedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
