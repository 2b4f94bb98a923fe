// Package memory holds map-backed store implementations for tests and
// single-process runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/google/uuid"
)

var (
	_ store.SwapRepository        = (*SwapRepo)(nil)
	_ store.TransactionRepository = (*TransactionRepo)(nil)
	_ store.WatermarkStore        = (*WatermarkStore)(nil)
	_ store.NonceStore            = (*NonceStore)(nil)
)

type SwapRepo struct {
	mu   sync.Mutex
	rows map[string]model.Swap
	now  func() time.Time
}

func NewSwapRepo() *SwapRepo {
	return &SwapRepo{rows: make(map[string]model.Swap), now: time.Now}
}

func (r *SwapRepo) Upsert(_ context.Context, s *model.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	existing, ok := r.rows[s.ID]
	if !ok {
		row := *s
		if row.Status == "" {
			row.Status = model.SwapStatusInProgress
		}
		row.CreatedAt, row.UpdatedAt = now, now
		r.rows[s.ID] = row
		return nil
	}

	mergeLockColumns(&existing, s)
	existing.UpdatedAt = now
	r.rows[s.ID] = existing
	return nil
}

func (r *SwapRepo) Insert(_ context.Context, s *model.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[s.ID]; ok {
		return fmt.Errorf("insert swap %s: %w", s.ID, store.ErrDuplicateKey)
	}
	row := *s
	if row.Status == "" {
		row.Status = model.SwapStatusInProgress
	}
	now := r.now()
	row.CreatedAt, row.UpdatedAt = now, now
	r.rows[s.ID] = row
	return nil
}

func (r *SwapRepo) FindByID(_ context.Context, id string) (*model.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *SwapRepo) Update(_ context.Context, id string, patch model.SwapPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil
	}
	applySwapPatch(&row, patch)
	row.UpdatedAt = r.now()
	r.rows[id] = row
	return nil
}

func (r *SwapRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *SwapRepo) UpdateMany(_ context.Context, ids []string, patch model.SwapPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, id := range ids {
		row, ok := r.rows[id]
		if !ok {
			continue
		}
		applySwapPatch(&row, patch)
		row.UpdatedAt = now
		r.rows[id] = row
	}
	return nil
}

func (r *SwapRepo) FindEligible(_ context.Context, windowEnd int64, limit int) ([]model.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Swap
	for _, row := range r.rows {
		if row.Status != model.SwapStatusRedeemed || row.ScheduledAt != nil {
			continue
		}
		if row.RewardTimelock == nil || *row.RewardTimelock > windowEnd {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if *out[i].RewardTimelock != *out[j].RewardTimelock {
			return *out[i].RewardTimelock < *out[j].RewardTimelock
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored rows.
func (r *SwapRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func mergeLockColumns(dst *model.Swap, src *model.Swap) {
	if src.SrcNetwork != nil {
		dst.SrcNetwork = src.SrcNetwork
	}
	if src.SrcAsset != nil {
		dst.SrcAsset = src.SrcAsset
	}
	if src.DstNetwork != nil {
		dst.DstNetwork = src.DstNetwork
	}
	if src.DstAsset != nil {
		dst.DstAsset = src.DstAsset
	}
	if src.Hashlock != nil {
		dst.Hashlock = src.Hashlock
	}
	if src.Timelock != nil {
		dst.Timelock = src.Timelock
	}
	if src.Reward != nil {
		dst.Reward = src.Reward
	}
	if src.RewardTimelock != nil {
		dst.RewardTimelock = src.RewardTimelock
	}
}

func applySwapPatch(row *model.Swap, patch model.SwapPatch) {
	if patch.Secret != nil {
		row.Secret = patch.Secret
	}
	if patch.Status != nil {
		row.Status = *patch.Status
	}
	if patch.ScheduledAt != nil {
		row.ScheduledAt = patch.ScheduledAt
	}
}

type TransactionRepo struct {
	mu   sync.Mutex
	rows []model.Transaction
}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{}
}

func (r *TransactionRepo) Create(_ context.Context, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	now := time.Now()
	tx.CreatedAt, tx.UpdatedAt = now, now
	r.rows = append(r.rows, *tx)
	return nil
}

func (r *TransactionRepo) Update(_ context.Context, id uuid.UUID, patch model.TransactionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.rows {
		if r.rows[i].ID != id {
			continue
		}
		if patch.Hash != nil {
			r.rows[i].Hash = patch.Hash
		}
		if patch.Status != nil {
			r.rows[i].Status = *patch.Status
		}
		if patch.Fee != nil {
			r.rows[i].Fee = *patch.Fee
		}
		if patch.Error != nil {
			r.rows[i].Error = patch.Error
		}
		r.rows[i].UpdatedAt = time.Now()
		return nil
	}
	return fmt.Errorf("transaction %s not found", id)
}

func (r *TransactionRepo) FindBySwapID(_ context.Context, swapID string) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Transaction
	for _, row := range r.rows {
		if row.SwapID == swapID {
			out = append(out, row)
		}
	}
	return out, nil
}

type WatermarkStore struct {
	mu     sync.Mutex
	blocks map[int64]uint64
}

func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{blocks: make(map[int64]uint64)}
}

func (s *WatermarkStore) GetWatermark(_ context.Context, chainID int64) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.blocks[chainID]
	return block, ok, nil
}

func (s *WatermarkStore) SetWatermark(_ context.Context, chainID int64, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[chainID] = block
	return nil
}

type lock struct {
	token   string
	expires time.Time
}

type NonceStore struct {
	mu     sync.Mutex
	locks  map[string]lock
	nonces map[string]uint64
	now    func() time.Time
}

func NewNonceStore() *NonceStore {
	return &NonceStore{
		locks:  make(map[string]lock),
		nonces: make(map[string]uint64),
		now:    time.Now,
	}
}

func (s *NonceStore) AcquireLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if held, ok := s.locks[key]; ok && now.Before(held.expires) {
		return false, nil
	}
	s.locks[key] = lock{token: token, expires: now.Add(ttl)}
	return true, nil
}

func (s *NonceStore) ReleaseLock(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[key]; ok && held.token == token {
		delete(s.locks, key)
	}
	return nil
}

func (s *NonceStore) GetNonce(_ context.Context, key string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nonce, ok := s.nonces[key]
	return nonce, ok, nil
}

func (s *NonceStore) SetNonce(_ context.Context, key string, nonce uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[key] = nonce
	return nil
}

func (s *NonceStore) DeleteNonce(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nonces, key)
	return nil
}
