package content

import (
	"context"

	"blockconnect/pkg/s3"
)

const objectPrefix = "content/"

type S3Store struct {
	client *s3.Client
}

func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) Put(ctx context.Context, data []byte) (string, error) {
	ref := HashRef(data)
	if err := s.PutAt(ctx, ref, data); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *S3Store) PutAt(ctx context.Context, ref string, data []byte) error {
	_, err := s.client.Put(ctx, objectPrefix+ref, data, "application/octet-stream")
	return err
}

func (s *S3Store) Get(ctx context.Context, ref string) ([]byte, error) {
	return s.client.Get(ctx, objectPrefix+ref)
}
