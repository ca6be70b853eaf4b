package persistent

import (
	"context"
	"errors"
	"fmt"

	"blockconnect/pkg/apperr"
	"blockconnect/services/auth/internal/entity"
	"blockconnect/services/auth/internal/model"

	"gorm.io/gorm"
)

// UserRepository is the postgres index of registered users. It mirrors what
// the contract holds and is rebuilt from it on a miss.
type UserRepository interface {
	Save(ctx context.Context, user *entity.User) error
	GetByAddress(ctx context.Context, address string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return err
}

// Save inserts or updates the row keyed by address.
func (r *userRepository) Save(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	if err := r.db.WithContext(ctx).Save(userModel).Error; err != nil {
		return err
	}
	*user = *ToUserEntity(userModel)
	return nil
}

func (r *userRepository) GetByAddress(ctx context.Context, address string) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("address = ?", address).First(&userModel).Error; err != nil {
		return nil, notFound(err, "user "+address)
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&userModel).Error; err != nil {
		return nil, notFound(err, "user "+username)
	}
	return ToUserEntity(&userModel), nil
}
