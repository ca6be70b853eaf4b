package content

import (
	"context"

	"blockconnect/pkg/ipfs"
)

type IPFSStore struct {
	client *ipfs.Client
}

func NewIPFSStore(client *ipfs.Client) *IPFSStore {
	return &IPFSStore{client: client}
}

func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	return s.client.Add(ctx, data)
}

func (s *IPFSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	return s.client.Cat(ctx, ref)
}
