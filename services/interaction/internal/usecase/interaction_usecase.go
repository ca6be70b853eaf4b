package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/models"
	"blockconnect/pkg/notify"
	"blockconnect/pkg/queue"
	"blockconnect/services/interaction/internal/entity"
	"blockconnect/services/interaction/internal/repo/persistent"
)

const MaxCommentLength = 1000

type InteractionUseCase interface {
	Like(ctx context.Context, address, username, postID string) (*entity.LikeState, error)
	Likes(ctx context.Context, postID string) ([]string, error)
	IsLiked(ctx context.Context, username, postID string) (bool, error)
	LikedPosts(ctx context.Context, username string) ([]string, error)
	AddComment(ctx context.Context, username, postID, text string) (*entity.Comment, error)
	Comments(ctx context.Context, postID string, limit, offset int) ([]*entity.Comment, int64, error)
}

type interactionUseCase struct {
	postRepo    persistent.PostRepository
	commentRepo persistent.CommentRepository
	liked       *localstore.Set
	notifier    notify.Sender
	logger      *logger.Logger
}

func NewInteractionUseCase(
	postRepo persistent.PostRepository,
	commentRepo persistent.CommentRepository,
	liked *localstore.Set,
	notifier notify.Sender,
	logger *logger.Logger,
) InteractionUseCase {
	return &interactionUseCase{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		liked:       liked,
		notifier:    notifier,
		logger:      logger,
	}
}

// Like toggles the like of the caller on postID. The contract decides the
// resulting state; the local liked set follows it. Liking someone else's
// post notifies its author.
func (uc *interactionUseCase) Like(ctx context.Context, address, username, postID string) (*entity.LikeState, error) {
	author, err := uc.postRepo.Author(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := uc.postRepo.Like(ctx, address, postID); err != nil {
		return nil, err
	}

	likers, err := uc.postRepo.Likers(ctx, postID)
	if err != nil {
		return nil, err
	}
	state := &entity.LikeState{PostID: postID, Likes: len(likers)}
	for _, liker := range likers {
		if strings.EqualFold(liker, address) {
			state.Liked = true
			break
		}
	}

	if state.Liked {
		err = uc.liked.Add(ctx, username, postID)
	} else {
		err = uc.liked.Remove(ctx, username, postID)
	}
	if err != nil {
		uc.logger.Warn("[INTERACTION] Failed to update liked set of %s: %v", username, err)
	}

	if state.Liked && author != username {
		notify.BestEffort(ctx, uc.notifier, queue.NotificationTask{
			Type:       models.NotificationLike,
			Recipients: []string{author},
			Actor:      username,
			Message:    fmt.Sprintf("%s liked your post", username),
			Data:       map[string]string{"post_id": postID},
			Priority:   3,
		}, uc.logger)
	}

	uc.logger.Info("[INTERACTION] %s liked=%t post %s (%d likes)", username, state.Liked, postID, state.Likes)
	return state, nil
}

// Likes returns the usernames that like postID. Addresses that cannot be
// resolved are returned as is.
func (uc *interactionUseCase) Likes(ctx context.Context, postID string) ([]string, error) {
	if _, err := uc.postRepo.Author(ctx, postID); err != nil {
		return nil, err
	}
	likers, err := uc.postRepo.Likers(ctx, postID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(likers))
	for _, address := range likers {
		name, err := uc.postRepo.Username(ctx, address)
		if err != nil {
			name = address
		}
		names = append(names, name)
	}
	return names, nil
}

func (uc *interactionUseCase) IsLiked(ctx context.Context, username, postID string) (bool, error) {
	return uc.liked.Has(ctx, username, postID)
}

func (uc *interactionUseCase) LikedPosts(ctx context.Context, username string) ([]string, error) {
	return uc.liked.Members(ctx, username)
}

// AddComment stores the comment body in the content store, indexes it in
// postgres and notifies the post's author.
func (uc *interactionUseCase) AddComment(ctx context.Context, username, postID, text string) (*entity.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("comment is empty: %w", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, fmt.Errorf("comment longer than %d characters: %w", MaxCommentLength, apperr.ErrInvalidInput)
	}

	author, err := uc.postRepo.Author(ctx, postID)
	if err != nil {
		return nil, err
	}

	body := entity.CommentBody{
		PostID:    postID,
		Author:    username,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	cid, err := uc.postRepo.StoreComment(ctx, body)
	if err != nil {
		uc.logger.Error("Failed to store comment: %v", err)
		return nil, fmt.Errorf("failed to store comment: %w", apperr.ErrUnavailable)
	}

	comment := &entity.Comment{
		PostID:    postID,
		Author:    username,
		Content:   text,
		CID:       cid,
		CreatedAt: body.CreatedAt,
	}
	if err := uc.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	if author != username {
		notify.BestEffort(ctx, uc.notifier, queue.NotificationTask{
			Type:       models.NotificationComment,
			Recipients: []string{author},
			Actor:      username,
			Message:    fmt.Sprintf("%s commented on your post", username),
			Data:       map[string]string{"post_id": postID, "comment_id": comment.ID},
			Priority:   3,
		}, uc.logger)
	}
	return comment, nil
}

func (uc *interactionUseCase) Comments(ctx context.Context, postID string, limit, offset int) ([]*entity.Comment, int64, error) {
	return uc.commentRepo.ListByPost(ctx, postID, limit, offset)
}
