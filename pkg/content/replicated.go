package content

import (
	"context"
	"fmt"

	"blockconnect/pkg/logger"
)

// Replicated writes to the primary and copies every blob to the replica
// under the primary's reference. Reads fall back to the replica.
type Replicated struct {
	primary Store
	replica KeyedStore
	logger  *logger.Logger
}

func NewReplicated(primary Store, replica KeyedStore, log *logger.Logger) *Replicated {
	return &Replicated{primary: primary, replica: replica, logger: log}
}

// Put fails only when the primary fails. A replica failure is logged.
func (r *Replicated) Put(ctx context.Context, data []byte) (string, error) {
	ref, err := r.primary.Put(ctx, data)
	if err != nil {
		return "", err
	}
	if err := r.replica.PutAt(ctx, ref, data); err != nil {
		r.logger.Warn("[CONTENT] Failed to replicate %s: %v", ref, err)
	}
	return ref, nil
}

func (r *Replicated) Get(ctx context.Context, ref string) ([]byte, error) {
	data, err := r.primary.Get(ctx, ref)
	if err == nil {
		return data, nil
	}

	data, replicaErr := r.replica.Get(ctx, ref)
	if replicaErr != nil {
		return nil, fmt.Errorf("primary: %w; replica: %v", err, replicaErr)
	}
	r.logger.Info("[CONTENT] %s served from replica: %v", ref, err)
	return data, nil
}
