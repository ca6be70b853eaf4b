package usecase

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/jwt"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/services/auth/internal/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
	saves int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]entity.User)}
}

func (r *fakeUserRepo) Save(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.users[user.Address] = *user
	return nil
}

func (r *fakeUserRepo) GetByAddress(_ context.Context, address string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[address]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())}
}

func (w wallet) sign(t *testing.T, message string) string {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

type fixture struct {
	uc       AuthUseCase
	repo     *fakeUserRepo
	registry *contract.MemoryRegistry
	blobs    *content.MemoryStore
	jwt      *jwt.Service
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		repo:     newFakeUserRepo(),
		registry: contract.NewMemoryRegistry(),
		blobs:    content.NewMemoryStore(),
		jwt:      jwt.NewService("test-secret"),
	}
	f.uc = NewAuthUseCase(f.repo, f.registry, f.blobs, localstore.NewNonces(rdb), f.jwt, logger.New())
	return f
}

func (f *fixture) register(t *testing.T, w wallet, username string) string {
	ctx := context.Background()
	message, err := f.uc.Nonce(ctx, w.address)
	require.NoError(t, err)
	_, token, err := f.uc.Register(ctx, w.address, w.sign(t, message), username)
	require.NoError(t, err)
	return token
}

func TestRecoverAddress(t *testing.T) {
	w := newWallet(t)

	signer, err := RecoverAddress("hello", w.sign(t, "hello"))
	require.NoError(t, err)
	assert.Equal(t, w.address, signer)

	other, err := RecoverAddress("goodbye", w.sign(t, "hello"))
	require.NoError(t, err)
	assert.NotEqual(t, w.address, other)

	_, err = RecoverAddress("hello", "0x1234")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = RecoverAddress("hello", "not-hex")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := newWallet(t)

	token := f.register(t, w, "alice")
	claims, err := f.jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, w.address, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	message, err := f.uc.Nonce(ctx, w.address)
	require.NoError(t, err)
	user, token, err := f.uc.Login(ctx, w.address, w.sign(t, message))
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, token)
}

func TestLogin_NonceIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := newWallet(t)
	f.register(t, w, "alice")

	message, _ := f.uc.Nonce(ctx, w.address)
	sig := w.sign(t, message)
	_, _, err := f.uc.Login(ctx, w.address, sig)
	require.NoError(t, err)

	_, _, err = f.uc.Login(ctx, w.address, sig)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLogin_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := newWallet(t)
	mallory := newWallet(t)
	f.register(t, alice, "alice")

	message, _ := f.uc.Nonce(ctx, alice.address)
	_, _, err := f.uc.Login(ctx, alice.address, mallory.sign(t, message))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	message, _ = f.uc.Nonce(ctx, mallory.address)
	_, _, err = f.uc.Login(ctx, mallory.address, mallory.sign(t, message))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "unregistered address")

	_, err = f.uc.Nonce(ctx, "not-an-address")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := newWallet(t)
	f.register(t, alice, "alice")

	bob := newWallet(t)
	message, _ := f.uc.Nonce(ctx, bob.address)
	_, _, err := f.uc.Register(ctx, bob.address, bob.sign(t, message), "a!")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = f.uc.Register(ctx, bob.address, bob.sign(t, message), "alice")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestMeRebuildsMissingIndexRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := newWallet(t)
	require.NoError(t, f.registry.Register(ctx, w.address, "carol"))

	user, err := f.uc.Me(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	indexed, err := f.repo.GetByAddress(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, "carol", indexed.Username)

	byName, err := f.uc.GetUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, w.address, byName.Address)

	_, err = f.uc.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateProfile_KeepsNotificationsPointer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := newWallet(t)
	f.register(t, w, "alice")
	require.NoError(t, f.registry.UpdateProfile(ctx, w.address, contract.Profile{NotificationsHash: "sha256-abc"}))

	user, err := f.uc.UpdateProfile(ctx, w.address, " gm ", []byte("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "gm", user.Bio)
	assert.NotEmpty(t, user.AvatarCID)

	avatar, err := f.blobs.Get(ctx, user.AvatarCID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), avatar)

	profile, err := f.registry.GetProfile(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, "sha256-abc", profile.NotificationsHash)
	assert.Equal(t, "gm", profile.Bio)
	assert.Equal(t, "alice", profile.Username)

	_, err = f.uc.UpdateProfile(ctx, w.address, strings.Repeat("x", MaxBioLength+1), nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestListUsernames(t *testing.T) {
	f := newFixture(t)
	f.register(t, newWallet(t), "alice")
	f.register(t, newWallet(t), "bob")

	names, err := f.uc.ListUsernames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)
}
