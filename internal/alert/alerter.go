package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
)

// AlertType categorizes the kind of alert.
type AlertType string

const (
	AlertTypeUnhealthy           AlertType = "UNHEALTHY"
	AlertTypeRecovery            AlertType = "RECOVERY"
	AlertTypeInsufficientBalance AlertType = "INSUFFICIENT_BALANCE"
	AlertTypeClaimFailed         AlertType = "CLAIM_FAILED"
	AlertTypeJobFailed           AlertType = "JOB_FAILED"
)

// SubjectField names the Fields entry that narrows cooldown below
// type/component/network, so failures of distinct swaps are all reported.
const SubjectField = "swap_id"

// Alert represents a single alert event.
type Alert struct {
	Type      AlertType
	Component string
	Network   string
	Title     string
	Message   string
	Fields    map[string]string
}

func (a Alert) cooldownKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", a.Type, a.Component, a.Network, a.Fields[SubjectField])
}

// Alerter is the interface for sending alerts.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// Channel is one delivery target.
type Channel interface {
	Alerter
	Name() string
}

// MultiAlerter fans out alerts to every channel and suppresses repeats of
// the same alert within the cooldown.
type MultiAlerter struct {
	channels []Channel
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, channels ...Channel) *MultiAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiAlerter{
		channels: channels,
		cooldown: cooldown,
		now:      time.Now,
		logger:   logger.With("component", "alerter"),
		lastSent: make(map[string]time.Time),
	}
}

// WithClock replaces the cooldown clock; used by tests.
func (m *MultiAlerter) WithClock(now func() time.Time) *MultiAlerter {
	m.now = now
	return m
}

// Send returns the first channel error; the remaining channels are still tried.
func (m *MultiAlerter) Send(ctx context.Context, alert Alert) error {
	if !m.admit(alert) {
		m.logger.Debug("alert suppressed by cooldown", "type", alert.Type, "network", alert.Network)
		for _, ch := range m.channels {
			metrics.AlertsCooldownSkipped.WithLabelValues(ch.Name(), string(alert.Type)).Inc()
		}
		return nil
	}

	var firstErr error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, alert); err != nil {
			m.logger.Warn("alert send failed", "channel", ch.Name(), "type", alert.Type, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", ch.Name(), err)
			}
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues(ch.Name(), string(alert.Type)).Inc()
	}
	return firstErr
}

func (m *MultiAlerter) admit(alert Alert) bool {
	key := alert.cooldownKey()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		return false
	}
	m.lastSent[key] = now
	return true
}

// NoopAlerter does nothing. Used when no alert channels are configured.
type NoopAlerter struct{}

func (n *NoopAlerter) Send(_ context.Context, _ Alert) error { return nil }

// New builds the alerter for the configured channels. With no channel it
// returns a NoopAlerter.
func New(slackWebhookURL, webhookURL string, cooldown time.Duration, logger *slog.Logger) Alerter {
	var channels []Channel
	if slackWebhookURL != "" {
		channels = append(channels, NewSlackAlerter(slackWebhookURL))
	}
	if webhookURL != "" {
		channels = append(channels, NewWebhookAlerter(webhookURL))
	}
	if len(channels) == 0 {
		return &NoopAlerter{}
	}
	return NewMultiAlerter(cooldown, logger, channels...)
}
