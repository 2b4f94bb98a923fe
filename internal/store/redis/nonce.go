package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock only while it still holds our token.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// NonceStore implements the nonce lease on plain string keys.
type NonceStore struct {
	client *redis.Client
}

var _ store.NonceStore = (*NonceStore)(nil)

func NewNonceStore(c *Client) *NonceStore {
	return &NonceStore{client: c.client}
}

func (s *NonceStore) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (s *NonceStore) ReleaseLock(ctx context.Context, key, token string) error {
	if err := releaseLockScript.Run(ctx, s.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

func (s *NonceStore) GetNonce(ctx context.Context, key string) (uint64, bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get nonce %s: %w", key, err)
	}
	nonce, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse nonce %s %q: %w", key, raw, err)
	}
	return nonce, true, nil
}

func (s *NonceStore) SetNonce(ctx context.Context, key string, nonce uint64) error {
	if err := s.client.Set(ctx, key, strconv.FormatUint(nonce, 10), 0).Err(); err != nil {
		return fmt.Errorf("set nonce %s: %w", key, err)
	}
	return nil
}

func (s *NonceStore) DeleteNonce(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete nonce %s: %w", key, err)
	}
	return nil
}
