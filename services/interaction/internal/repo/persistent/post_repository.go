package persistent

import (
	"context"
	"fmt"

	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/services/interaction/internal/entity"
)

// PostRepository covers the contract side of interactions: post authors and
// likes. Comment bodies go to the content store.
type PostRepository interface {
	Author(ctx context.Context, postID string) (string, error)
	Like(ctx context.Context, address, postID string) error
	Likers(ctx context.Context, postID string) ([]string, error)
	Username(ctx context.Context, address string) (string, error)
	StoreComment(ctx context.Context, body entity.CommentBody) (string, error)
}

type postRepository struct {
	registry contract.Registry
	store    content.Store
}

func NewPostRepository(registry contract.Registry, store content.Store) PostRepository {
	return &postRepository{registry: registry, store: store}
}

// Author returns the username of postID's author.
func (r *postRepository) Author(ctx context.Context, postID string) (string, error) {
	post, err := r.registry.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}
	return r.registry.GetUsername(ctx, post.Author)
}

func (r *postRepository) Like(ctx context.Context, address, postID string) error {
	if err := r.registry.LikePost(ctx, address, postID); err != nil {
		return fmt.Errorf("contract like post: %w", err)
	}
	return nil
}

// Likers returns the addresses that like postID.
func (r *postRepository) Likers(ctx context.Context, postID string) ([]string, error) {
	return r.registry.GetPostLikes(ctx, postID)
}

func (r *postRepository) Username(ctx context.Context, address string) (string, error) {
	return r.registry.GetUsername(ctx, address)
}

func (r *postRepository) StoreComment(ctx context.Context, body entity.CommentBody) (string, error) {
	return content.PutJSON(ctx, r.store, body)
}
