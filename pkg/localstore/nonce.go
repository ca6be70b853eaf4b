package localstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"blockconnect/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

const NonceTTL = 5 * time.Minute

// Nonces issues single-use login challenges per wallet address.
type Nonces struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewNonces(rdb *redis.Client) *Nonces {
	return &Nonces{rdb: rdb, ttl: NonceTTL}
}

// Issue stores a fresh nonce for address, replacing any previous one.
func (n *Nonces) Issue(ctx context.Context, address string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)
	if err := n.rdb.Set(ctx, NonceKey(address), nonce, n.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}

// Consume returns the pending nonce of address and deletes it.
func (n *Nonces) Consume(ctx context.Context, address string) (string, error) {
	nonce, err := n.rdb.GetDel(ctx, NonceKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("no pending nonce for %s: %w", address, apperr.ErrUnauthorized)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}
	return nonce, nil
}
