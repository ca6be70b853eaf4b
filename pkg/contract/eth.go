package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/config"
	"blockconnect/pkg/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthRegistry calls the registry contract through a JSON-RPC node. Writes are
// signed by the relayer key and wait for their receipt.
type EthRegistry struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	logger   *logger.Logger

	// serializes nonce assignment for the relayer account
	txMu sync.Mutex
}

func NewEthRegistry(ctx context.Context, cfg *config.Config, log *logger.Logger) (*EthRegistry, error) {
	parsed, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.RelayerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid relayer key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.EthRPCURL, err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	log.Info("[CONTRACT] Registry at %s via %s, relayer %s", address.Hex(), cfg.EthRPCURL, auth.From.Hex())

	return &EthRegistry{
		client:   client,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		auth:     auth,
		logger:   log,
	}, nil
}

func (r *EthRegistry) Close() {
	r.client.Close()
}

func (r *EthRegistry) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, classify(method, err)
	}
	return out, nil
}

func (r *EthRegistry) transact(ctx context.Context, method string, params ...interface{}) error {
	opts := *r.auth
	opts.Context = ctx

	r.txMu.Lock()
	tx, err := r.contract.Transact(&opts, method, params...)
	r.txMu.Unlock()
	if err != nil {
		return classify(method, err)
	}

	start := time.Now()
	receipt, err := bind.WaitMined(ctx, r.client, tx)
	if err != nil {
		return fmt.Errorf("%s: waiting for tx %s: %v: %w", method, tx.Hash().Hex(), err, apperr.ErrUnavailable)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: tx %s reverted: %w", method, tx.Hash().Hex(), apperr.ErrConflict)
	}

	r.logger.Debug("[CONTRACT] %s mined in block %s after %s", method, receipt.BlockNumber, time.Since(start))
	return nil
}

// classify maps node errors onto the shared error kinds: reverts are
// conflicts, everything else is an unavailable upstream.
func classify(method string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", method, err)
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return fmt.Errorf("%s: %v: %w", method, err, apperr.ErrConflict)
	}
	return fmt.Errorf("%s: %v: %w", method, err, apperr.ErrUnavailable)
}

func toAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("address %q: %w", address, apperr.ErrInvalidInput)
	}
	return common.HexToAddress(address), nil
}

func fromAddresses(addresses []common.Address) []string {
	out := make([]string, len(addresses))
	for i, a := range addresses {
		out[i] = strings.ToLower(a.Hex())
	}
	return out
}

func asString(v interface{}) string {
	return *abi.ConvertType(v, new(string)).(*string)
}

func asStrings(v interface{}) []string {
	return *abi.ConvertType(v, new([]string)).(*[]string)
}

func asAddresses(v interface{}) []string {
	return fromAddresses(*abi.ConvertType(v, new([]common.Address)).(*[]common.Address))
}

func asBigInt(v interface{}) *big.Int {
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int)
}

func (r *EthRegistry) Register(ctx context.Context, address, username string) error {
	user, err := toAddress(address)
	if err != nil {
		return err
	}
	return r.transact(ctx, "register", user, username)
}

func (r *EthRegistry) Login(ctx context.Context, address string) (bool, error) {
	user, err := toAddress(address)
	if err != nil {
		return false, err
	}
	out, err := r.call(ctx, "login", user)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (r *EthRegistry) GetUsernames(ctx context.Context) ([]string, error) {
	out, err := r.call(ctx, "getUsernames")
	if err != nil {
		return nil, err
	}
	return asStrings(out[0]), nil
}

func (r *EthRegistry) GetAddressByUsername(ctx context.Context, username string) (string, error) {
	out, err := r.call(ctx, "getAddressByUsername", username)
	if err != nil {
		return "", err
	}
	address := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if address == (common.Address{}) {
		return "", fmt.Errorf("username %s: %w", username, apperr.ErrNotFound)
	}
	return strings.ToLower(address.Hex()), nil
}

func (r *EthRegistry) GetUsername(ctx context.Context, address string) (string, error) {
	user, err := toAddress(address)
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, "getUsername", user)
	if err != nil {
		return "", err
	}
	username := asString(out[0])
	if username == "" {
		return "", fmt.Errorf("address %s: %w", address, apperr.ErrNotFound)
	}
	return username, nil
}

func (r *EthRegistry) CreatePost(ctx context.Context, author, postID, contentHash string) error {
	user, err := toAddress(author)
	if err != nil {
		return err
	}
	return r.transact(ctx, "createPost", user, postID, contentHash)
}

func (r *EthRegistry) GetPostsByUser(ctx context.Context, address string) ([]string, error) {
	user, err := toAddress(address)
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, "getPostsByUser", user)
	if err != nil {
		return nil, err
	}
	return asStrings(out[0]), nil
}

func (r *EthRegistry) GetPost(ctx context.Context, postID string) (*Post, error) {
	out, err := r.call(ctx, "getPost", postID)
	if err != nil {
		return nil, err
	}

	author := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if author == (common.Address{}) {
		return nil, fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
	}

	return &Post{
		ID:          postID,
		Author:      strings.ToLower(author.Hex()),
		ContentHash: asString(out[1]),
		CreatedAt:   time.Unix(asBigInt(out[2]).Int64(), 0).UTC(),
		Likes:       asBigInt(out[3]).Int64(),
	}, nil
}

func (r *EthRegistry) LikePost(ctx context.Context, address, postID string) error {
	user, err := toAddress(address)
	if err != nil {
		return err
	}
	return r.transact(ctx, "likePost", user, postID)
}

func (r *EthRegistry) GetPostLikes(ctx context.Context, postID string) ([]string, error) {
	out, err := r.call(ctx, "getPostLikes", postID)
	if err != nil {
		return nil, err
	}
	return asAddresses(out[0]), nil
}

func (r *EthRegistry) SendFollowRequest(ctx context.Context, from, to string) error {
	fromAddr, err := toAddress(from)
	if err != nil {
		return err
	}
	toAddr, err := toAddress(to)
	if err != nil {
		return err
	}
	return r.transact(ctx, "sendFollowRequest", fromAddr, toAddr)
}

func (r *EthRegistry) AcceptFollowRequest(ctx context.Context, user, from string) error {
	userAddr, err := toAddress(user)
	if err != nil {
		return err
	}
	fromAddr, err := toAddress(from)
	if err != nil {
		return err
	}
	return r.transact(ctx, "acceptFollowRequest", userAddr, fromAddr)
}

func (r *EthRegistry) addressList(ctx context.Context, method, address string) ([]string, error) {
	user, err := toAddress(address)
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, method, user)
	if err != nil {
		return nil, err
	}
	return asAddresses(out[0]), nil
}

func (r *EthRegistry) GetPendingRequests(ctx context.Context, address string) ([]string, error) {
	return r.addressList(ctx, "getPendingRequests", address)
}

func (r *EthRegistry) GetFollowers(ctx context.Context, address string) ([]string, error) {
	return r.addressList(ctx, "getFollowers", address)
}

func (r *EthRegistry) GetFollowing(ctx context.Context, address string) ([]string, error) {
	return r.addressList(ctx, "getFollowing", address)
}

func (r *EthRegistry) UpdateMessagesHash(ctx context.Context, address, hash string) error {
	user, err := toAddress(address)
	if err != nil {
		return err
	}
	return r.transact(ctx, "updateMessagesHash", user, hash)
}

func (r *EthRegistry) GetMessagesHash(ctx context.Context, address string) (string, error) {
	user, err := toAddress(address)
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, "getMessagesHash", user)
	if err != nil {
		return "", err
	}
	return asString(out[0]), nil
}

func (r *EthRegistry) UpdateProfile(ctx context.Context, address string, profile Profile) error {
	user, err := toAddress(address)
	if err != nil {
		return err
	}
	return r.transact(ctx, "updateProfile", user, profile.Bio, profile.AvatarHash, profile.NotificationsHash)
}

func (r *EthRegistry) GetProfile(ctx context.Context, address string) (*Profile, error) {
	user, err := toAddress(address)
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, "getProfile", user)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Username:          asString(out[0]),
		Bio:               asString(out[1]),
		AvatarHash:        asString(out[2]),
		NotificationsHash: asString(out[3]),
	}
	if profile.Username == "" {
		return nil, fmt.Errorf("profile %s: %w", address, apperr.ErrNotFound)
	}
	return profile, nil
}
