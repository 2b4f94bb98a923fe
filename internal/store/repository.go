package store

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . SwapRepository,TransactionRepository,WatermarkStore,NonceStore

import (
	"context"
	"errors"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/google/uuid"
)

// ErrDuplicateKey is returned by SwapRepository.Insert when the id exists.
var ErrDuplicateKey = errors.New("duplicate key")

// SwapRepository provides access to swap rows.
type SwapRepository interface {
	// Upsert inserts the swap or merges its lock columns into an existing
	// row. Status, secret and scheduled_at of an existing row are kept.
	Upsert(ctx context.Context, s *model.Swap) error
	Insert(ctx context.Context, s *model.Swap) error
	// FindByID returns nil, nil when the row does not exist.
	FindByID(ctx context.Context, id string) (*model.Swap, error)
	Update(ctx context.Context, id string, patch model.SwapPatch) error
	Delete(ctx context.Context, id string) error
	UpdateMany(ctx context.Context, ids []string, patch model.SwapPatch) error
	// FindEligible returns redeemed, unscheduled swaps whose reward timelock
	// is at or before windowEnd (unix seconds), oldest timelock first.
	FindEligible(ctx context.Context, windowEnd int64, limit int) ([]model.Swap, error)
}

// TransactionRepository provides access to claim transaction rows.
type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	Update(ctx context.Context, id uuid.UUID, patch model.TransactionPatch) error
	FindBySwapID(ctx context.Context, swapID string) ([]model.Transaction, error)
}

// WatermarkStore persists the last fully processed block per chain id.
type WatermarkStore interface {
	// GetWatermark reports ok=false when nothing was stored yet.
	GetWatermark(ctx context.Context, chainID int64) (block uint64, ok bool, err error)
	SetWatermark(ctx context.Context, chainID int64, block uint64) error
}

// NonceStore holds the cached wallet nonce and the lock serializing its use.
type NonceStore interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes the lock only when it is still held by token.
	ReleaseLock(ctx context.Context, key, token string) error
	GetNonce(ctx context.Context, key string) (nonce uint64, ok bool, err error)
	SetNonce(ctx context.Context, key string, nonce uint64) error
	DeleteNonce(ctx context.Context, key string) error
}
