package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/jwt"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/services/auth/internal/entity"
	"blockconnect/services/auth/internal/repo/persistent"
)

const MaxBioLength = 280

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type AuthUseCase interface {
	Nonce(ctx context.Context, address string) (string, error)
	Login(ctx context.Context, address, signature string) (*entity.User, string, error)
	Register(ctx context.Context, address, signature, username string) (*entity.User, string, error)
	Me(ctx context.Context, address string) (*entity.User, error)
	GetUser(ctx context.Context, username string) (*entity.User, error)
	ListUsernames(ctx context.Context) ([]string, error)
	UpdateProfile(ctx context.Context, address, bio string, avatar []byte) (*entity.User, error)
}

type authUseCase struct {
	userRepo   persistent.UserRepository
	registry   contract.Registry
	store      content.Store
	nonces     *localstore.Nonces
	jwtService *jwt.Service
	logger     *logger.Logger
}

func NewAuthUseCase(
	userRepo persistent.UserRepository,
	registry contract.Registry,
	store content.Store,
	nonces *localstore.Nonces,
	jwtService *jwt.Service,
	logger *logger.Logger,
) AuthUseCase {
	return &authUseCase{
		userRepo:   userRepo,
		registry:   registry,
		store:      store,
		nonces:     nonces,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Nonce issues a single-use nonce for address and returns the message the
// wallet has to sign.
func (uc *authUseCase) Nonce(ctx context.Context, address string) (string, error) {
	normalized, err := contract.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	nonce, err := uc.nonces.Issue(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("failed to issue nonce: %w", err)
	}
	return SignInMessage(nonce), nil
}

// verify consumes address's nonce and checks that signature was made over
// it by address.
func (uc *authUseCase) verify(ctx context.Context, address, signature string) (string, error) {
	normalized, err := contract.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	nonce, err := uc.nonces.Consume(ctx, normalized)
	if err != nil {
		return "", err
	}
	signer, err := RecoverAddress(SignInMessage(nonce), signature)
	if err != nil {
		return "", err
	}
	if signer != normalized {
		return "", fmt.Errorf("signature does not match address: %w", apperr.ErrUnauthorized)
	}
	return normalized, nil
}

func (uc *authUseCase) issue(user *entity.User) (*entity.User, string, error) {
	token, err := uc.jwtService.GenerateToken(user.Address, user.Username)
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token")
	}
	return user, token, nil
}

func (uc *authUseCase) Login(ctx context.Context, address, signature string) (*entity.User, string, error) {
	normalized, err := uc.verify(ctx, address, signature)
	if err != nil {
		return nil, "", err
	}

	registered, err := uc.registry.Login(ctx, normalized)
	if err != nil {
		return nil, "", fmt.Errorf("contract login: %w", err)
	}
	if !registered {
		return nil, "", fmt.Errorf("address %s is not registered: %w", normalized, apperr.ErrUnauthorized)
	}

	user, err := uc.load(ctx, normalized)
	if err != nil {
		return nil, "", err
	}
	uc.logger.Info("[AUTH] %s logged in as %s", normalized, user.Username)
	return uc.issue(user)
}

func (uc *authUseCase) Register(ctx context.Context, address, signature, username string) (*entity.User, string, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, "", fmt.Errorf("username must be 3-32 letters, digits or underscores: %w", apperr.ErrInvalidInput)
	}

	normalized, err := uc.verify(ctx, address, signature)
	if err != nil {
		return nil, "", err
	}

	if err := uc.registry.Register(ctx, normalized, username); err != nil {
		return nil, "", fmt.Errorf("contract register: %w", err)
	}

	user := &entity.User{Address: normalized, Username: username}
	if err := uc.userRepo.Save(ctx, user); err != nil {
		uc.logger.Warn("[AUTH] Failed to index user %s: %v", username, err)
	}
	uc.logger.Info("[AUTH] Registered %s as %s", normalized, username)
	return uc.issue(user)
}

// load returns the indexed user, rebuilding the row from the contract when
// it is missing.
func (uc *authUseCase) load(ctx context.Context, address string) (*entity.User, error) {
	user, err := uc.userRepo.GetByAddress(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		uc.logger.Warn("[AUTH] User index unavailable, reading contract: %v", err)
	}

	profile, err := uc.registry.GetProfile(ctx, address)
	if err != nil {
		return nil, err
	}
	user = &entity.User{
		Address:   address,
		Username:  profile.Username,
		Bio:       profile.Bio,
		AvatarCID: profile.AvatarHash,
	}
	if err := uc.userRepo.Save(ctx, user); err != nil {
		uc.logger.Warn("[AUTH] Failed to index user %s: %v", user.Username, err)
	}
	return user, nil
}

func (uc *authUseCase) Me(ctx context.Context, address string) (*entity.User, error) {
	return uc.load(ctx, address)
}

func (uc *authUseCase) GetUser(ctx context.Context, username string) (*entity.User, error) {
	address, err := uc.registry.GetAddressByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return uc.load(ctx, address)
}

func (uc *authUseCase) ListUsernames(ctx context.Context) ([]string, error) {
	return uc.registry.GetUsernames(ctx)
}

// UpdateProfile sets bio and, when avatar is not empty, stores the avatar in
// the content store. The notifications pointer on the profile is kept.
func (uc *authUseCase) UpdateProfile(ctx context.Context, address, bio string, avatar []byte) (*entity.User, error) {
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, fmt.Errorf("bio longer than %d characters: %w", MaxBioLength, apperr.ErrInvalidInput)
	}

	var avatarCID string
	if len(avatar) > 0 {
		cid, err := uc.store.Put(ctx, avatar)
		if err != nil {
			uc.logger.Error("Failed to store avatar: %v", err)
			return nil, fmt.Errorf("failed to store avatar: %w", apperr.ErrUnavailable)
		}
		avatarCID = cid
	}

	profile, err := contract.EditProfile(ctx, uc.registry, address, func(profile *contract.Profile) {
		profile.Bio = bio
		if avatarCID != "" {
			profile.AvatarHash = avatarCID
		}
	})
	if err != nil {
		return nil, fmt.Errorf("contract update profile: %w", err)
	}

	user, err := uc.load(ctx, address)
	if err != nil {
		return nil, err
	}
	user.Bio = profile.Bio
	user.AvatarCID = profile.AvatarHash
	if err := uc.userRepo.Save(ctx, user); err != nil {
		uc.logger.Warn("[AUTH] Failed to index profile of %s: %v", user.Username, err)
	}
	return user, nil
}
