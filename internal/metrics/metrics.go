package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "claimer"

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

var (
	// Ingestor
	IngestorTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "ticks_total",
		Help:      "Total ingestor ticks",
	}, []string{"network"})

	IngestorTickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "tick_errors_total",
		Help:      "Total ingestor ticks that failed before advancing the watermark",
	}, []string{"network"})

	IngestorTickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "tick_duration_seconds",
		Help:      "Ingestor tick duration",
		Buckets:   latencyBuckets,
	}, []string{"network"})

	IngestorEventsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "events_forwarded_total",
		Help:      "Total HTLC events forwarded to the event queue",
	}, []string{"network", "kind"})

	IngestorEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "events_dropped_total",
		Help:      "Total logs dropped as irrelevant or undecodable",
	}, []string{"network", "reason"})

	IngestorWatermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "watermark_block",
		Help:      "Last fully processed block height",
	}, []string{"network"})

	IngestorScanSpan = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ingestor",
		Name:      "scan_span_blocks",
		Help:      "Blocks scanned in the latest tick",
	}, []string{"network"})

	// Reconciler
	ReconcilerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciler",
		Name:      "transitions_total",
		Help:      "Swap state transitions applied, by event kind and action",
	}, []string{"kind", "action"})

	ReconcilerJobsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciler",
		Name:      "claim_jobs_cancelled_total",
		Help:      "Scheduled claim jobs cancelled after redeem-on-destination or refund",
	})

	// Scheduler
	SchedulerScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "scans_total",
		Help:      "Total eligibility scans",
	})

	SchedulerScanErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "scan_errors_total",
		Help:      "Total eligibility scans that failed",
	})

	SchedulerJobsScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "jobs_scheduled_total",
		Help:      "Claim jobs scheduled, by destination network",
	}, []string{"network"})

	SchedulerSwapsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "swaps_skipped_total",
		Help:      "Eligible swaps skipped, by reason",
	}, []string{"reason"})

	// Claimer
	ClaimOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claimer",
		Name:      "outcomes_total",
		Help:      "Claim attempt outcomes, by network and outcome",
	}, []string{"network", "outcome"})

	ClaimLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "claimer",
		Name:      "attempt_duration_seconds",
		Help:      "Claim attempt duration including confirmation wait",
		Buckets:   latencyBuckets,
	}, []string{"network"})

	ClaimFeeWei = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "claimer",
		Name:      "fee_wei",
		Help:      "Actual fee paid by confirmed claim transactions",
		Buckets:   prometheus.ExponentialBuckets(1e12, 4, 12),
	}, []string{"network"})

	ClaimGasEstimateFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claimer",
		Name:      "gas_estimate_fallbacks_total",
		Help:      "Gas estimations that fell back to the default gas limit",
	}, []string{"network"})

	// Nonce
	NonceAllocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "nonce",
		Name:      "allocations_total",
		Help:      "Nonce allocations, by source (chain bootstrap or cache)",
	}, []string{"network", "source"})

	NonceResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "nonce",
		Name:      "resets_total",
		Help:      "Nonce cache resets",
	}, []string{"network"})

	NonceLockFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "nonce",
		Name:      "lock_failures_total",
		Help:      "Nonce lock acquisitions that timed out",
	}, []string{"network"})

	// Queue
	QueueJobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "jobs_processed_total",
		Help:      "Jobs handled by queue workers, by result",
	}, []string{"queue", "result"})

	QueueJobLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "job_duration_seconds",
		Help:      "Job handler duration",
		Buckets:   latencyBuckets,
	}, []string{"queue"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Chain RPC calls, by method and status class",
	}, []string{"network", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "RPC calls delayed by the client-side rate limiter",
	}, []string{"network"})

	RPCCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "circuit_state",
		Help:      "RPC circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"network"})

	// Component health
	ComponentHealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "component",
		Name:      "health_status",
		Help:      "Component health status (0=UNKNOWN, 1=HEALTHY, 2=UNHEALTHY)",
	}, []string{"component", "network"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})

	// Admin
	AdminRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "admin",
		Name:      "rate_limited_total",
		Help:      "Admin requests rejected by the rate limiter, by endpoint rule",
	}, []string{"endpoint"})

	// DB pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "pool_open_connections",
		Help:      "Open database connections",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "pool_in_use_connections",
		Help:      "Database connections currently in use",
	})

	DBPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "pool_idle_connections",
		Help:      "Idle database connections",
	})

	DBPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "pool_wait_count",
		Help:      "Total connections waited for",
	})
)
