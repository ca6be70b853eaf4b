package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/models"
	"blockconnect/pkg/notify"
	"blockconnect/pkg/queue"
	"blockconnect/services/follow/internal/entity"
	"blockconnect/services/follow/internal/repo/persistent"
)

type FollowUseCase interface {
	Request(ctx context.Context, fromAddress, fromUsername, toUsername string) (*entity.FollowRequest, error)
	Accept(ctx context.Context, address, username, fromUsername string) (*entity.FollowRequest, error)
	Followers(ctx context.Context, username string) (*entity.Relations, error)
	Following(ctx context.Context, username string) (*entity.Relations, error)
	Pending(ctx context.Context, username string) (*entity.Relations, error)
}

type relationList struct {
	name  string
	key   func(user string) string
	fetch func(ctx context.Context, address string) ([]string, error)
}

type followUseCase struct {
	repo     persistent.RelationRepository
	cache    *localstore.Cache
	notifier notify.Sender
	logger   *logger.Logger

	followers relationList
	following relationList
	pending   relationList
}

func NewFollowUseCase(repo persistent.RelationRepository, cache *localstore.Cache, notifier notify.Sender, logger *logger.Logger) FollowUseCase {
	return &followUseCase{
		repo:      repo,
		cache:     cache,
		notifier:  notifier,
		logger:    logger,
		followers: relationList{"followers", localstore.FollowersKey, repo.Followers},
		following: relationList{"following", localstore.FollowingKey, repo.Following},
		pending:   relationList{"pending", localstore.PendingKey, repo.Pending},
	}
}

func (uc *followUseCase) Request(ctx context.Context, fromAddress, fromUsername, toUsername string) (*entity.FollowRequest, error) {
	if strings.EqualFold(fromUsername, toUsername) {
		return nil, fmt.Errorf("cannot follow yourself: %w", apperr.ErrInvalidInput)
	}
	toAddress, err := uc.repo.Address(ctx, toUsername)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(fromAddress, toAddress) {
		return nil, fmt.Errorf("cannot follow yourself: %w", apperr.ErrInvalidInput)
	}

	if err := uc.repo.Request(ctx, fromAddress, toAddress); err != nil {
		return nil, err
	}

	notify.BestEffort(ctx, uc.notifier, queue.NotificationTask{
		Type:       models.NotificationFollowRequest,
		Recipients: []string{toUsername},
		Actor:      fromUsername,
		Message:    fmt.Sprintf("%s wants to follow you", fromUsername),
		Priority:   4,
	}, uc.logger)

	uc.logger.Info("[FOLLOW] %s requested to follow %s", fromUsername, toUsername)
	return &entity.FollowRequest{From: fromUsername, To: toUsername}, nil
}

// Accept accepts the pending request of fromUsername to follow the caller.
func (uc *followUseCase) Accept(ctx context.Context, address, username, fromUsername string) (*entity.FollowRequest, error) {
	fromAddress, err := uc.repo.Address(ctx, fromUsername)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Accept(ctx, address, fromAddress); err != nil {
		return nil, err
	}

	notify.BestEffort(ctx, uc.notifier, queue.NotificationTask{
		Type:       models.NotificationFollowAccept,
		Recipients: []string{fromUsername},
		Actor:      username,
		Message:    fmt.Sprintf("%s accepted your follow request", username),
		Priority:   4,
	}, uc.logger)

	uc.logger.Info("[FOLLOW] %s accepted %s", username, fromUsername)
	return &entity.FollowRequest{From: fromUsername, To: username, Accepted: true}, nil
}

func (uc *followUseCase) Followers(ctx context.Context, username string) (*entity.Relations, error) {
	return uc.relations(ctx, username, uc.followers)
}

func (uc *followUseCase) Following(ctx context.Context, username string) (*entity.Relations, error) {
	return uc.relations(ctx, username, uc.following)
}

func (uc *followUseCase) Pending(ctx context.Context, username string) (*entity.Relations, error) {
	return uc.relations(ctx, username, uc.pending)
}

// relations reads a list from the contract and refreshes the cache. When the
// contract fails for any reason other than an unknown user, the cached copy
// is returned marked stale.
func (uc *followUseCase) relations(ctx context.Context, username string, list relationList) (*entity.Relations, error) {
	key := list.key(username)

	users, err := uc.fetch(ctx, username, list)
	if err == nil {
		if err := uc.cache.Set(ctx, key, users); err != nil {
			uc.logger.Warn("[FOLLOW] Failed to cache %s of %s: %v", list.name, username, err)
		}
		return &entity.Relations{User: username, Users: users, Count: len(users)}, nil
	}
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidInput) {
		return nil, err
	}

	var cached []string
	if cacheErr := uc.cache.Get(ctx, key, &cached); cacheErr != nil {
		uc.logger.Error("[FOLLOW] No %s of %s available: %v", list.name, username, err)
		return nil, fmt.Errorf("failed to read %s: %v: %w", list.name, err, apperr.ErrUnavailable)
	}
	uc.logger.Warn("[FOLLOW] Serving cached %s of %s: %v", list.name, username, err)
	return &entity.Relations{User: username, Users: cached, Count: len(cached), Stale: true}, nil
}

func (uc *followUseCase) fetch(ctx context.Context, username string, list relationList) ([]string, error) {
	address, err := uc.repo.Address(ctx, username)
	if err != nil {
		return nil, err
	}
	addresses, err := list.fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(addresses))
	for _, a := range addresses {
		name, err := uc.repo.Username(ctx, a)
		if err != nil {
			name = a
		}
		users = append(users, name)
	}
	return users, nil
}
