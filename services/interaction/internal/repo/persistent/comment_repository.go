package persistent

import (
	"context"

	"blockconnect/services/interaction/internal/entity"
	"blockconnect/services/interaction/internal/model"

	"gorm.io/gorm"
)

// CommentRepository stores the postgres reference row of each comment. The
// comment itself lives in the content store under CID.
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	ListByPost(ctx context.Context, postID string, limit, offset int) ([]*entity.Comment, int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	commentModel := ToCommentModel(comment)
	if err := r.db.WithContext(ctx).Create(commentModel).Error; err != nil {
		return err
	}
	*comment = *ToCommentEntity(commentModel)
	return nil
}

// ListByPost returns a page of postID's comments, oldest first, and the
// total count.
func (r *commentRepository) ListByPost(ctx context.Context, postID string, limit, offset int) ([]*entity.Comment, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.CommentModel{}).Where("post_id = ?", postID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var commentModels []model.CommentModel
	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&commentModels).Error; err != nil {
		return nil, 0, err
	}

	comments := make([]*entity.Comment, len(commentModels))
	for i := range commentModels {
		comments[i] = ToCommentEntity(&commentModels[i])
	}
	return comments, total, nil
}
