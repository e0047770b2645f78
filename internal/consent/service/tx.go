package service

import (
	"context"
	"sync"
	"time"

	"agripass/internal/consent"
	dErrors "agripass/pkg/domain-errors"
)

// StoreTx serializes transitions on a single consent request. Implementations
// wrap a database transaction or, in memory, a per-request lock. The context
// passed to fn carries the transaction so the audit append inside fn commits
// with the state change.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store consent.Store) error) error
}

// Sharded mutexes instead of one global lock: operations hash the request ID
// onto a shard, so transitions on different requests proceed in parallel.
const numShards = 128

// defaultTxTimeout bounds a transition; these are short synchronous writes.
const defaultTxTimeout = 5 * time.Second

// ShardedTx is the in-memory transactional boundary.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	store   consent.Store
	timeout time.Duration
}

func NewShardedTx(store consent.Store) *ShardedTx {
	return &ShardedTx{store: store, timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store consent.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := hashKey(key) % numShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Re-check after acquiring the lock; the wait may have outlived the caller.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
