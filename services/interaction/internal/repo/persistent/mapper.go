package persistent

import (
	"blockconnect/services/interaction/internal/entity"
	"blockconnect/services/interaction/internal/model"
)

func ToCommentEntity(m *model.CommentModel) *entity.Comment {
	if m == nil {
		return nil
	}

	return &entity.Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		Author:    m.Author,
		Content:   m.Content,
		CID:       m.CID,
		CreatedAt: m.CreatedAt,
	}
}

func ToCommentModel(e *entity.Comment) *model.CommentModel {
	if e == nil {
		return nil
	}

	return &model.CommentModel{
		ID:        e.ID,
		PostID:    e.PostID,
		Author:    e.Author,
		Content:   e.Content,
		CID:       e.CID,
		CreatedAt: e.CreatedAt,
	}
}
