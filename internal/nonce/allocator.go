// Package nonce serializes nonce assignment per (network, wallet) pair
// across concurrently running claim jobs and processes.
package nonce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/google/uuid"
)

const (
	DefaultLockTTL        = 2 * time.Second
	DefaultAcquireTimeout = 2 * time.Second
	defaultRetryInterval  = 50 * time.Millisecond
)

var ErrLockNotAcquired = errors.New("nonce lock not acquired")

// Source bootstraps the nonce from the chain's pending transaction count.
type Source interface {
	PendingNonce(ctx context.Context, address string) (uint64, error)
}

type Config struct {
	LockTTL        time.Duration
	AcquireTimeout time.Duration
}

type Allocator struct {
	store          store.NonceStore
	lockTTL        time.Duration
	acquireTimeout time.Duration
	retryInterval  time.Duration
	newToken       func() string
	logger         *slog.Logger
}

func New(st store.NonceStore, cfg Config, logger *slog.Logger) *Allocator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		store:          st,
		lockTTL:        cfg.LockTTL,
		acquireTimeout: cfg.AcquireTimeout,
		retryInterval:  defaultRetryInterval,
		newToken:       uuid.NewString,
		logger:         logger.With("component", "nonce"),
	}
}

// Key returns the cache key of a wallet's nonce on a network.
func Key(network model.Network, wallet string) string {
	return fmt.Sprintf("nonce:%s:%s", network, model.NormalizeAddress(wallet))
}

func lockKey(key string) string {
	return key + ":lock"
}

// Next returns the nonce for the wallet's next transaction: the chain's
// pending count on first use, the cached value plus one afterwards.
func (a *Allocator) Next(ctx context.Context, network model.Network, wallet string, source Source) (uint64, error) {
	key := Key(network, wallet)
	token := a.newToken()

	if err := a.acquire(ctx, network, key, token); err != nil {
		return 0, err
	}
	defer func() {
		if err := a.store.ReleaseLock(context.WithoutCancel(ctx), lockKey(key), token); err != nil {
			a.logger.Warn("release nonce lock failed", "key", key, "error", err)
		}
	}()

	cached, ok, err := a.store.GetNonce(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read nonce %s: %w", key, err)
	}

	var next uint64
	origin := "cache"
	if ok {
		next = cached + 1
	} else {
		next, err = source.PendingNonce(ctx, wallet)
		if err != nil {
			return 0, fmt.Errorf("bootstrap nonce %s: %w", key, err)
		}
		origin = "chain"
	}

	if err := a.store.SetNonce(ctx, key, next); err != nil {
		return 0, fmt.Errorf("persist nonce %s: %w", key, err)
	}
	metrics.NonceAllocations.WithLabelValues(network.String(), origin).Inc()
	a.logger.Debug("nonce allocated", "network", network, "wallet", model.NormalizeAddress(wallet), "nonce", next, "source", origin)
	return next, nil
}

// Reset clears the cached nonce so the next allocation re-bootstraps from
// the chain.
func (a *Allocator) Reset(ctx context.Context, network model.Network, wallet string) error {
	key := Key(network, wallet)
	if err := a.store.DeleteNonce(ctx, key); err != nil {
		return fmt.Errorf("reset nonce %s: %w", key, err)
	}
	metrics.NonceResets.WithLabelValues(network.String()).Inc()
	a.logger.Info("nonce reset", "network", network, "wallet", model.NormalizeAddress(wallet))
	return nil
}

func (a *Allocator) acquire(ctx context.Context, network model.Network, key, token string) error {
	deadline := time.Now().Add(a.acquireTimeout)
	for {
		ok, err := a.store.AcquireLock(ctx, lockKey(key), token, a.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire nonce lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if !time.Now().Add(a.retryInterval).Before(deadline) {
			metrics.NonceLockFailures.WithLabelValues(network.String()).Inc()
			return fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.retryInterval):
		}
	}
}
