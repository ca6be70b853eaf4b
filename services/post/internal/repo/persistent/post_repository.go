package persistent

import (
	"context"
	"errors"
	"fmt"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/services/post/internal/entity"
)

// PostRepository keeps post bodies in the content store and the index on the
// contract. Decoded bodies are cached in redis by reference.
type PostRepository interface {
	StoreImage(ctx context.Context, image []byte) (string, error)
	Create(ctx context.Context, id, authorAddress string, body entity.PostContent) (string, error)
	Index(ctx context.Context, id string) (*contract.Post, error)
	Content(ctx context.Context, ref string) (*entity.PostContent, error)
	IDsByUser(ctx context.Context, address string) ([]string, error)
	Address(ctx context.Context, username string) (string, error)
	Username(ctx context.Context, address string) (string, error)
	Following(ctx context.Context, address string) ([]string, error)

	// CachedFeed returns the cached home feed ids of user, or ErrNotFound.
	CachedFeed(ctx context.Context, user string) ([]string, error)
	CacheFeed(ctx context.Context, user string, ids []string) error
	DropFeed(ctx context.Context, user string) error
}

type postRepository struct {
	registry  contract.Registry
	store     content.Store
	cache     *localstore.Cache
	feedCache *localstore.Cache
	logger    *logger.Logger
}

func NewPostRepository(registry contract.Registry, store content.Store, cache, feedCache *localstore.Cache, logger *logger.Logger) PostRepository {
	return &postRepository{
		registry:  registry,
		store:     store,
		cache:     cache,
		feedCache: feedCache,
		logger:    logger,
	}
}

func (r *postRepository) StoreImage(ctx context.Context, image []byte) (string, error) {
	return r.store.Put(ctx, image)
}

func (r *postRepository) Create(ctx context.Context, id, authorAddress string, body entity.PostContent) (string, error) {
	ref, err := content.PutJSON(ctx, r.store, body)
	if err != nil {
		return "", fmt.Errorf("failed to store post content: %w", err)
	}
	if err := r.registry.CreatePost(ctx, authorAddress, id, ref); err != nil {
		return "", fmt.Errorf("contract create post: %w", err)
	}
	if err := r.cache.Set(ctx, localstore.ContentKey(ref), body); err != nil {
		r.logger.Warn("[POST] %v", err)
	}
	return ref, nil
}

func (r *postRepository) Index(ctx context.Context, id string) (*contract.Post, error) {
	return r.registry.GetPost(ctx, id)
}

func (r *postRepository) Content(ctx context.Context, ref string) (*entity.PostContent, error) {
	var body entity.PostContent
	err := r.cache.Get(ctx, localstore.ContentKey(ref), &body)
	if err == nil {
		return &body, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		r.logger.Warn("[POST] %v", err)
	}

	if err := content.GetJSON(ctx, r.store, ref, &body); err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, localstore.ContentKey(ref), body); err != nil {
		r.logger.Warn("[POST] %v", err)
	}
	return &body, nil
}

func (r *postRepository) IDsByUser(ctx context.Context, address string) ([]string, error) {
	return r.registry.GetPostsByUser(ctx, address)
}

func (r *postRepository) Address(ctx context.Context, username string) (string, error) {
	return r.registry.GetAddressByUsername(ctx, username)
}

func (r *postRepository) Username(ctx context.Context, address string) (string, error) {
	return r.registry.GetUsername(ctx, address)
}

func (r *postRepository) Following(ctx context.Context, address string) ([]string, error) {
	return r.registry.GetFollowing(ctx, address)
}

func (r *postRepository) CachedFeed(ctx context.Context, user string) ([]string, error) {
	var ids []string
	if err := r.feedCache.Get(ctx, localstore.FeedKey(user), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) CacheFeed(ctx context.Context, user string, ids []string) error {
	return r.feedCache.Set(ctx, localstore.FeedKey(user), ids)
}

func (r *postRepository) DropFeed(ctx context.Context, user string) error {
	return r.feedCache.Delete(ctx, localstore.FeedKey(user))
}
