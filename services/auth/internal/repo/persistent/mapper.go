package persistent

import (
	"blockconnect/services/auth/internal/entity"
	"blockconnect/services/auth/internal/model"
)

func ToUserEntity(m *model.UserModel) *entity.User {
	if m == nil {
		return nil
	}

	return &entity.User{
		Address:   m.Address,
		Username:  m.Username,
		Bio:       m.Bio,
		AvatarCID: m.AvatarCID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ToUserModel(e *entity.User) *model.UserModel {
	if e == nil {
		return nil
	}

	return &model.UserModel{
		Address:   e.Address,
		Username:  e.Username,
		Bio:       e.Bio,
		AvatarCID: e.AvatarCID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
