package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/redis/go-redis/v9"
)

const watermarkKeyPrefix = "lastProcessedBlock:"

// WatermarkStore keeps one string key per chain id.
type WatermarkStore struct {
	client *redis.Client
}

var _ store.WatermarkStore = (*WatermarkStore)(nil)

func NewWatermarkStore(c *Client) *WatermarkStore {
	return &WatermarkStore{client: c.client}
}

func WatermarkKey(chainID int64) string {
	return watermarkKeyPrefix + strconv.FormatInt(chainID, 10)
}

func (s *WatermarkStore) GetWatermark(ctx context.Context, chainID int64) (uint64, bool, error) {
	raw, err := s.client.Get(ctx, WatermarkKey(chainID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get watermark %d: %w", chainID, err)
	}
	block, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse watermark %d %q: %w", chainID, raw, err)
	}
	return block, true, nil
}

func (s *WatermarkStore) SetWatermark(ctx context.Context, chainID int64, block uint64) error {
	if err := s.client.Set(ctx, WatermarkKey(chainID), strconv.FormatUint(block, 10), 0).Err(); err != nil {
		return fmt.Errorf("set watermark %d: %w", chainID, err)
	}
	return nil
}
