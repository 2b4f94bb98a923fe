package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/emperorhan/htlc-reward-claimer/internal/store"
)

// WatermarkRepo stores ingestion watermarks in the watermarks table.
type WatermarkRepo struct {
	db *DB
}

var _ store.WatermarkStore = (*WatermarkRepo)(nil)

func NewWatermarkRepo(db *DB) *WatermarkRepo {
	return &WatermarkRepo{db: db}
}

func (r *WatermarkRepo) GetWatermark(ctx context.Context, chainID int64) (uint64, bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var block int64
	err := r.db.QueryRowContext(ctx, `SELECT block FROM watermarks WHERE chain_id = $1`, chainID).Scan(&block)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get watermark %d: %w", chainID, err)
	}
	return uint64(block), true, nil
}

// SetWatermark never moves a stored watermark backwards.
func (r *WatermarkRepo) SetWatermark(ctx context.Context, chainID int64, block uint64) error {
	if block > math.MaxInt64 {
		return fmt.Errorf("watermark %d out of range", block)
	}
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watermarks (chain_id, block)
		VALUES ($1, $2)
		ON CONFLICT (chain_id) DO UPDATE SET
			block = GREATEST(watermarks.block, EXCLUDED.block),
			updated_at = now()
	`, chainID, int64(block))
	if err != nil {
		return fmt.Errorf("set watermark %d: %w", chainID, err)
	}
	return nil
}
