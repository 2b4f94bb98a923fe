// Package scheduler turns redeemed swaps whose reward timelock is close
// into delayed claim jobs.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/emperorhan/htlc-reward-claimer/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultInterval    = 2 * time.Minute
	DefaultWindow      = 2 * time.Minute
	DefaultBatchSize   = 100
	DefaultClaimBuffer = 2 * time.Second
)

type Config struct {
	Window    time.Duration
	BatchSize int
	// ClaimBuffers is the per-network safety margin before the reward
	// timelock. Missing networks use DefaultClaimBuffer.
	ClaimBuffers map[model.Network]time.Duration
	Job          queue.EnqueueOptions // attempts and backoff of claim jobs
}

// Scheduler enqueues delayed claim jobs for redeemed swaps nearing their reward timelock.
type Scheduler struct {
	swaps  store.SwapRepository
	claims queue.Producer
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New returns a Scheduler over swaps that enqueues into claims.
func New(swaps store.SwapRepository, claims queue.Producer, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		swaps:  swaps,
		claims: claims,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "scheduler"),
	}
}

// WithClock replaces the scheduler clock; used by tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// ComputeDelay returns how long to wait before claiming a reward whose
// timelock is rewardTimelock (unix seconds). Past timelocks yield zero.
func ComputeDelay(rewardTimelock int64, buffer time.Duration, now time.Time) time.Duration {
	delayMS := rewardTimelock*1000 - buffer.Milliseconds() - now.UnixMilli()
	if delayMS <= 0 {
		return 0
	}
	return time.Duration(delayMS) * time.Millisecond
}

func (s *Scheduler) claimBuffer(network model.Network) time.Duration {
	if buffer, ok := s.cfg.ClaimBuffers[network]; ok && buffer > 0 {
		return buffer
	}
	return DefaultClaimBuffer
}

// Tick schedules one batch of eligible swaps.
func (s *Scheduler) Tick(ctx context.Context) (err error) {
	metrics.SchedulerScansTotal.Inc()
	ctx, span := tracing.Start(ctx, "scheduler", "scan")
	defer func() {
		if err != nil {
			metrics.SchedulerScanErrors.Inc()
		}
		tracing.End(span, err)
	}()

	now := s.now()
	windowEnd := now.Add(s.cfg.Window).Unix()
	swaps, err := s.swaps.FindEligible(ctx, windowEnd, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("find eligible swaps: %w", err)
	}
	span.SetAttributes(attribute.Int("eligible", len(swaps)))
	if len(swaps) == 0 {
		s.logger.Debug("no eligible swaps")
		return nil
	}

	scheduled := make([]string, 0, len(swaps))
	var enqueueErr error
	for i := range swaps {
		ok, err := s.schedule(ctx, &swaps[i], now)
		if err != nil {
			enqueueErr = err
			break
		}
		if ok {
			scheduled = append(scheduled, swaps[i].ID)
		}
	}

	if len(scheduled) > 0 {
		stamp := now
		if err := s.swaps.UpdateMany(ctx, scheduled, model.SwapPatch{ScheduledAt: &stamp}); err != nil {
			return fmt.Errorf("mark %d swaps scheduled: %w", len(scheduled), err)
		}
		s.logger.Info("claims scheduled", "count", len(scheduled), "eligible", len(swaps))
	}
	return enqueueErr
}

func (s *Scheduler) schedule(ctx context.Context, swap *model.Swap, now time.Time) (bool, error) {
	log := s.logger.With("swap_id", swap.ID)
	if !swap.HasSecret() || swap.DstNetwork == nil || *swap.DstNetwork == "" {
		metrics.SchedulerSwapsSkipped.WithLabelValues("invalid").Inc()
		log.Warn("eligible swap lacks secret or destination network")
		return false, nil
	}
	if swap.RewardTimelock == nil {
		metrics.SchedulerSwapsSkipped.WithLabelValues("invalid").Inc()
		log.Warn("eligible swap lacks reward timelock")
		return false, nil
	}

	jobID := model.ClaimJobID(swap.ID)
	live, err := s.claims.IsActiveOrDelayed(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("check claim job %s: %w", jobID, err)
	}
	if live {
		metrics.SchedulerSwapsSkipped.WithLabelValues("already_scheduled").Inc()
		log.Debug("claim job already live")
		return false, nil
	}

	network := *swap.DstNetwork
	payload, err := json.Marshal(model.ClaimJob{SwapID: swap.ID, Secret: *swap.Secret, Network: network})
	if err != nil {
		return false, fmt.Errorf("marshal claim job %s: %w", jobID, err)
	}

	opts := s.cfg.Job
	opts.ID = jobID
	opts.Delay = ComputeDelay(*swap.RewardTimelock, s.claimBuffer(network), now)
	added, err := s.claims.Enqueue(ctx, queue.JobProcessReward, payload, opts)
	if err != nil {
		return false, fmt.Errorf("enqueue claim job %s: %w", jobID, err)
	}
	if !added {
		metrics.SchedulerSwapsSkipped.WithLabelValues("already_scheduled").Inc()
		return false, nil
	}

	metrics.SchedulerJobsScheduled.WithLabelValues(network.String()).Inc()
	log.Debug("claim job scheduled", "network", network, "delay", opts.Delay)
	return true, nil
}
