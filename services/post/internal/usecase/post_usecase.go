package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/reconcile"
	"blockconnect/services/post/internal/entity"
	"blockconnect/services/post/internal/repo/persistent"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	MaxContentLength = 5000
	// fetchConcurrency bounds parallel content fetches per request.
	fetchConcurrency = 8
)

type PostUseCase interface {
	CreatePost(ctx context.Context, authorAddress, author, text string, image []byte) (*entity.Post, error)
	GetPost(ctx context.Context, id string) (*entity.Post, error)
	PostsByUser(ctx context.Context, username string) ([]*entity.Post, error)
	// Feed returns a page of the posts of everyone the caller follows and
	// the caller's own, newest first, with the total feed length.
	Feed(ctx context.Context, address, username string, limit, offset int) ([]*entity.Post, int, error)
}

type postUseCase struct {
	postRepo persistent.PostRepository
	logger   *logger.Logger
}

func NewPostUseCase(postRepo persistent.PostRepository, logger *logger.Logger) PostUseCase {
	return &postUseCase{
		postRepo: postRepo,
		logger:   logger,
	}
}

func (uc *postUseCase) CreatePost(ctx context.Context, authorAddress, author, text string, image []byte) (*entity.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(image) == 0 {
		return nil, fmt.Errorf("post needs text or an image: %w", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return nil, fmt.Errorf("post longer than %d characters: %w", MaxContentLength, apperr.ErrInvalidInput)
	}

	body := entity.PostContent{
		Author:    author,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	if len(image) > 0 {
		cid, err := uc.postRepo.StoreImage(ctx, image)
		if err != nil {
			uc.logger.Error("Failed to store image: %v", err)
			return nil, fmt.Errorf("failed to store image: %w", apperr.ErrUnavailable)
		}
		body.ImageCID = cid
	}

	id := uuid.New().String()
	ref, err := uc.postRepo.Create(ctx, id, authorAddress, body)
	if err != nil {
		return nil, err
	}

	if err := uc.postRepo.DropFeed(ctx, author); err != nil {
		uc.logger.Warn("[POST] %v", err)
	}

	uc.logger.Info("[POST] %s created post %s (%s)", author, id, ref)
	return &entity.Post{
		ID:            id,
		Author:        author,
		AuthorAddress: authorAddress,
		ContentCID:    ref,
		Content:       body.Content,
		ImageCID:      body.ImageCID,
		CreatedAt:     body.CreatedAt,
	}, nil
}

// GetPost reads the index from the contract and the body from the content
// store. An unreachable body does not fail the read.
func (uc *postUseCase) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	index, err := uc.postRepo.Index(ctx, id)
	if err != nil {
		return nil, err
	}

	post := &entity.Post{
		ID:            index.ID,
		AuthorAddress: index.Author,
		ContentCID:    index.ContentHash,
		Likes:         index.Likes,
		CreatedAt:     index.CreatedAt,
	}

	body, err := uc.postRepo.Content(ctx, index.ContentHash)
	if err != nil {
		uc.logger.Warn("[POST] Content of %s unavailable: %v", id, err)
		post.ContentMissing = true
	} else {
		post.Author = body.Author
		post.Content = body.Content
		post.ImageCID = body.ImageCID
		if !body.CreatedAt.IsZero() {
			post.CreatedAt = body.CreatedAt
		}
	}

	if post.Author == "" {
		if name, err := uc.postRepo.Username(ctx, index.Author); err == nil {
			post.Author = name
		}
	}
	return post, nil
}

// PostsByUser fetches every post of username in parallel, newest first.
func (uc *postUseCase) PostsByUser(ctx context.Context, username string) ([]*entity.Post, error) {
	address, err := uc.postRepo.Address(ctx, username)
	if err != nil {
		return nil, err
	}
	ids, err := uc.postRepo.IDsByUser(ctx, address)
	if err != nil {
		return nil, err
	}

	posts := make([]*entity.Post, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		// The contract appends, so the last id is the newest.
		slot := len(ids) - 1 - i
		id := id
		g.Go(func() error {
			post, err := uc.GetPost(gctx, id)
			if err != nil {
				return fmt.Errorf("post %s: %w", id, err)
			}
			posts[slot] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (uc *postUseCase) Feed(ctx context.Context, address, username string, limit, offset int) ([]*entity.Post, int, error) {
	ids, err := uc.postRepo.CachedFeed(ctx, username)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			uc.logger.Warn("[POST] %v", err)
		}
		if ids, err = uc.buildFeed(ctx, address); err != nil {
			return nil, 0, err
		}
		if err := uc.postRepo.CacheFeed(ctx, username, ids); err != nil {
			uc.logger.Warn("[POST] %v", err)
		}
	}

	total := len(ids)
	page := reconcile.Page(ids, limit, offset)

	posts := make([]*entity.Post, len(page))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range page {
		i, id := i, id
		g.Go(func() error {
			post, err := uc.GetPost(gctx, id)
			if err != nil {
				return fmt.Errorf("post %s: %w", id, err)
			}
			posts[i] = post
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

type feedEntry struct {
	id        string
	createdAt time.Time
}

// buildFeed collects the post ids of address and everyone it follows,
// ordered by the contract timestamp, newest first.
func (uc *postUseCase) buildFeed(ctx context.Context, address string) ([]string, error) {
	following, err := uc.postRepo.Following(ctx, address)
	if err != nil {
		return nil, err
	}
	authors := append([]string{address}, following...)

	perAuthor := make([][]feedEntry, len(authors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, author := range authors {
		i, author := i, author
		g.Go(func() error {
			ids, err := uc.postRepo.IDsByUser(gctx, author)
			if err != nil {
				return fmt.Errorf("posts of %s: %w", author, err)
			}
			entries := make([]feedEntry, 0, len(ids))
			for j := len(ids) - 1; j >= 0; j-- {
				index, err := uc.postRepo.Index(gctx, ids[j])
				if err != nil {
					return fmt.Errorf("post %s: %w", ids[j], err)
				}
				entries = append(entries, feedEntry{id: index.ID, createdAt: index.CreatedAt})
			}
			perAuthor[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []feedEntry
	for _, list := range perAuthor {
		entries = append(entries, list...)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].createdAt.After(entries[b].createdAt)
	})

	ids := make([]string, len(entries))
	for i, entry := range entries {
		ids[i] = entry.id
	}
	return ids, nil
}
