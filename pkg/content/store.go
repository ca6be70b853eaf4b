// Package content stores immutable blobs (post bodies, comments, mirrored
// snapshots, avatars) in a content-addressed store.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"blockconnect/pkg/config"
	"blockconnect/pkg/ipfs"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/s3"
)

// Store writes blobs and returns a reference that reads them back.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// KeyedStore can also store a blob under a reference chosen by the caller.
// Replicas use it to keep the primary's reference.
type KeyedStore interface {
	Store
	PutAt(ctx context.Context, ref string, data []byte) error
}

// HashRef is the reference used by the stores that are not IPFS.
func HashRef(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256-" + hex.EncodeToString(sum[:])
}

// PutJSON marshals v and stores it.
func PutJSON(ctx context.Context, store Store, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}
	return store.Put(ctx, data)
}

// GetJSON loads ref and unmarshals it into v.
func GetJSON(ctx context.Context, store Store, ref string, v interface{}) error {
	data, err := store.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode content %s: %w", ref, err)
	}
	return nil
}

// New builds the store selected by cfg.ContentBackend, wrapped with an S3
// replica when cfg.ContentReplica is "s3".
func New(cfg *config.Config, log *logger.Logger) (Store, error) {
	var primary Store
	switch cfg.ContentBackend {
	case "ipfs":
		primary = NewIPFSStore(ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSGateways, log))
	case "s3":
		client, err := s3.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		primary = NewS3Store(client)
	case "memory":
		primary = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown content backend: %s", cfg.ContentBackend)
	}

	if cfg.ContentReplica != "s3" || cfg.ContentBackend == "s3" {
		return primary, nil
	}

	client, err := s3.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewReplicated(primary, NewS3Store(client), log), nil
}
