// Package pipeline holds the pieces shared by the claimer's components:
// the periodic task runner and component health tracking.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/alert"
)

// TickFunc is one unit of periodic work. Tests call it directly.
type TickFunc func(ctx context.Context) error

// Periodic runs a tick immediately and then on every interval. A failed
// tick is logged and recorded on the health tracker; the loop keeps going.
type Periodic struct {
	name     string
	network  string
	interval time.Duration
	tick     TickFunc
	health   *ComponentHealth
	alerter  alert.Alerter
	logger   *slog.Logger
}

type PeriodicOption func(*Periodic)

// WithHealth records tick outcomes on h.
func WithHealth(h *ComponentHealth) PeriodicOption {
	return func(p *Periodic) {
		p.health = h
	}
}

// WithAlerter sends UNHEALTHY and RECOVERY alerts on health transitions.
func WithAlerter(a alert.Alerter) PeriodicOption {
	return func(p *Periodic) {
		p.alerter = a
	}
}

func NewPeriodic(name, network string, interval time.Duration, tick TickFunc, logger *slog.Logger, opts ...PeriodicOption) *Periodic {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Periodic{
		name:     name,
		network:  network,
		interval: interval,
		tick:     tick,
		alerter:  &alert.NoopAlerter{},
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Periodic) Run(ctx context.Context) error {
	p.logger.Info("periodic task started", "task", p.name, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("periodic task stopping", "task", p.name)
			return ctx.Err()
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single tick and records its outcome.
func (p *Periodic) RunOnce(ctx context.Context) {
	start := time.Now()
	err := p.tick(ctx)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("tick failed", "task", p.name, "duration", elapsed, "error", err)
	}
	if p.health == nil {
		return
	}

	switch p.health.Observe(elapsed, err) {
	case TransitionUnhealthy:
		p.sendAlert(ctx, alert.Alert{
			Type:      alert.AlertTypeUnhealthy,
			Component: p.name,
			Network:   p.network,
			Title:     fmt.Sprintf("%s unhealthy", p.name),
			Message:   err.Error(),
			Fields:    map[string]string{"consecutive_failures": strconv.Itoa(p.health.Snapshot().ConsecutiveFailures)},
		})
	case TransitionRecovered:
		p.sendAlert(ctx, alert.Alert{
			Type:      alert.AlertTypeRecovery,
			Component: p.name,
			Network:   p.network,
			Title:     fmt.Sprintf("%s recovered", p.name),
			Message:   "tick succeeded after repeated failures",
		})
	}
}

func (p *Periodic) sendAlert(ctx context.Context, a alert.Alert) {
	if err := p.alerter.Send(ctx, a); err != nil {
		p.logger.Warn("send alert failed", "task", p.name, "alert_type", a.Type, "error", err)
	}
}
