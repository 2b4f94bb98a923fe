package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
)

type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
)

const (
	// DefaultUnhealthyThreshold is the run of consecutive failures that
	// marks a component unhealthy.
	DefaultUnhealthyThreshold = 5

	// DefaultDegradedLatencyThreshold is the p95 over the latency window
	// above which a succeeding component reports degraded.
	DefaultDegradedLatencyThreshold = 30 * time.Second

	latencyWindowSize = 10
)

// Transition is the alert-worthy change caused by one observation.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionUnhealthy
	TransitionRecovered
)

// ComponentHealth tracks one component instance, e.g. the ingestor of a
// single network.
type ComponentHealth struct {
	component string
	network   string
	threshold int
	degraded  time.Duration
	now       func() time.Time

	mu          sync.RWMutex
	status      HealthStatus
	failures    int
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
	latencies   []time.Duration // ring buffer, oldest at next once full
	next        int
}

// NewComponentHealth creates a tracker. network is empty for components
// that are not bound to one network.
func NewComponentHealth(component, network string) *ComponentHealth {
	h := &ComponentHealth{
		component: component,
		network:   network,
		threshold: DefaultUnhealthyThreshold,
		degraded:  DefaultDegradedLatencyThreshold,
		now:       time.Now,
		latencies: make([]time.Duration, 0, latencyWindowSize),
	}
	h.setStatus(HealthStatusUnknown)
	return h
}

// Observe records the outcome of one tick. Latency only counts for
// successful ticks.
func (h *ComponentHealth) Observe(latency time.Duration, err error) Transition {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.failures++
		h.lastFailure = h.now()
		h.lastError = err.Error()
		if h.failures >= h.threshold && h.status != HealthStatusUnhealthy {
			h.setStatus(HealthStatusUnhealthy)
			return TransitionUnhealthy
		}
		return TransitionNone
	}

	wasUnhealthy := h.status == HealthStatusUnhealthy
	h.failures = 0
	h.lastSuccess = h.now()
	h.lastError = ""
	h.pushLatency(latency)
	if h.p95() > h.degraded {
		h.setStatus(HealthStatusDegraded)
	} else {
		h.setStatus(HealthStatusHealthy)
	}
	if wasUnhealthy {
		return TransitionRecovered
	}
	return TransitionNone
}

func (h *ComponentHealth) pushLatency(d time.Duration) {
	if len(h.latencies) < latencyWindowSize {
		h.latencies = append(h.latencies, d)
		return
	}
	h.latencies[h.next] = d
	h.next = (h.next + 1) % latencyWindowSize
}

// p95 is zero until two samples exist so a single slow first tick does
// not degrade a component.
func (h *ComponentHealth) p95() time.Duration {
	n := len(h.latencies)
	if n < 2 {
		return 0
	}
	sorted := slices.Clone(h.latencies)
	slices.Sort(sorted)
	idx := (95*n - 1) / 100
	return sorted[min(idx, n-1)]
}

func (h *ComponentHealth) setStatus(s HealthStatus) {
	h.status = s
	var v float64
	switch s {
	case HealthStatusHealthy, HealthStatusDegraded:
		v = 1
	case HealthStatusUnhealthy:
		v = 2
	}
	metrics.ComponentHealthStatus.WithLabelValues(h.component, h.network).Set(v)
}

// HealthSnapshot is the JSON view served by the admin API.
type HealthSnapshot struct {
	Component           string     `json:"component"`
	Network             string     `json:"network,omitempty"`
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	P95LatencyMS        int64      `json:"p95_latency_ms"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}

func (h *ComponentHealth) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		Component:           h.component,
		Network:             h.network,
		Status:              string(h.status),
		ConsecutiveFailures: h.failures,
		LastError:           h.lastError,
		P95LatencyMS:        h.p95().Milliseconds(),
		LastSuccessAt:       timePtr(h.lastSuccess),
		LastFailureAt:       timePtr(h.lastFailure),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
