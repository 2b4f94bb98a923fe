// Package queue defines the durable job queue used between pipeline stages
// and a worker that drives handlers with retry and backoff.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventsQueue         = "events-queue"
	EligibleRewardQueue = "eligible-rewards-queue"

	JobProcessEvent  = "process-htlc-event"
	JobProcessReward = "process-evm-eligible-rewards"

	DefaultAttempts = 3
	DefaultBackoff  = time.Second
	DefaultLease    = 10 * time.Minute

	maxBackoff = time.Hour
)

type State string

const (
	StateWaiting State = "waiting"
	StateDelayed State = "delayed"
	StateActive  State = "active"
)

// Job is a unit of work. Completed and finally failed jobs are removed, so
// a job that exists is always live.
type Job struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	State       State           `json:"state"`
	Attempts    int             `json:"attempts"` // failed attempts so far
	MaxAttempts int             `json:"maxAttempts"`
	Backoff     time.Duration   `json:"backoff"`
	RunAt       time.Time       `json:"runAt"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type EnqueueOptions struct {
	// ID makes the enqueue idempotent: a live job with the same id is kept
	// and the new one is dropped. Empty means a generated id.
	ID       string
	Delay    time.Duration
	Attempts int
	Backoff  time.Duration
}

// WithDefaults fills unset attempts and backoff.
func (o EnqueueOptions) WithDefaults() EnqueueOptions {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	return o
}

type JobSpec struct {
	Name    string
	Payload []byte
	Options EnqueueOptions
}

// Producer is the enqueue side of a queue.
type Producer interface {
	// Enqueue reports added=false when a live job with opts.ID exists.
	Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (added bool, err error)
	EnqueueBulk(ctx context.Context, specs []JobSpec) error
	// GetByID returns nil, nil when no live job has the id.
	GetByID(ctx context.Context, id string) (*Job, error)
	// IsActiveOrDelayed reports whether a live job (waiting, delayed or
	// active) holds the id.
	IsActiveOrDelayed(ctx context.Context, id string) (bool, error)
	// RemoveIfExists removes a waiting or delayed job. Active jobs are left
	// alone and reported as not removed.
	RemoveIfExists(ctx context.Context, id string) (bool, error)
}

// Consumer is the processing side of a queue.
type Consumer interface {
	// Reserve leases the next ready job; nil, nil when nothing is ready.
	// A job whose lease expires is delivered again.
	Reserve(ctx context.Context, lease time.Duration) (*Job, error)
	Extend(ctx context.Context, job *Job, lease time.Duration) error
	Complete(ctx context.Context, job *Job) error
	// Fail records a failed attempt. The job is rescheduled with
	// exponential backoff, or removed (final=true) once attempts run out.
	Fail(ctx context.Context, job *Job, cause error) (final bool, err error)
	// Defer moves the job back to delayed without consuming an attempt.
	Defer(ctx context.Context, job *Job, until time.Time) error
	Remove(ctx context.Context, job *Job) error
}

type Queue interface {
	Name() string
	Producer
	Consumer
}

// NextBackoff returns the delay before retry number attempt (1-based):
// base, 2*base, 4*base, ... capped at one hour.
func NextBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
