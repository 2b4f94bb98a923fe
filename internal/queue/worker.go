package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"github.com/emperorhan/htlc-reward-claimer/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency  = 5
	DefaultPollInterval = 500 * time.Millisecond
)

// Disposition tells the worker what to do with a job whose handler
// returned without error.
type Disposition int

const (
	DispositionComplete Disposition = iota
	DispositionRemove
	DispositionDefer
)

func (d Disposition) String() string {
	switch d {
	case DispositionComplete:
		return "completed"
	case DispositionRemove:
		return "removed"
	case DispositionDefer:
		return "deferred"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// Result is the business outcome of a handled job.
type Result struct {
	Disposition Disposition
	Until       time.Time // DispositionDefer only
	Reason      string
}

func Done() Result { return Result{Disposition: DispositionComplete} }

// Drop removes the job without consuming retries.
func Drop(reason string) Result { return Result{Disposition: DispositionRemove, Reason: reason} }

// DeferUntil moves the job back to delayed without consuming an attempt.
func DeferUntil(until time.Time, reason string) Result {
	return Result{Disposition: DispositionDefer, Until: until, Reason: reason}
}

// Handler processes one job. A returned error is retried with backoff
// unless it is marked retry.Terminal.
type Handler func(ctx context.Context, job *Job) (Result, error)

// FinalFailureHook runs after a job exhausted its attempts and was removed.
type FinalFailureHook func(ctx context.Context, job *Job, err error)

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	Lease        time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Lease <= 0 {
		c.Lease = DefaultLease
	}
	return c
}

// Worker drives a Handler over a queue with N concurrent consumers.
type Worker struct {
	queue   Consumer
	name    string
	handler Handler
	cfg     WorkerConfig
	logger  *slog.Logger
	onFinal FinalFailureHook
}

type WorkerOption func(*Worker)

func WithFinalFailureHook(hook FinalFailureHook) WorkerOption {
	return func(w *Worker) {
		w.onFinal = hook
	}
}

func NewWorker(q Queue, handler Handler, cfg WorkerConfig, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		queue:   q,
		name:    q.Name(),
		handler: handler,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "worker", "queue", q.Name()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "concurrency", w.cfg.Concurrency)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		consumerID := i
		g.Go(func() error {
			return w.consume(gCtx, consumerID)
		})
	}

	err := g.Wait()
	w.logger.Info("worker stopped")
	return err
}

func (w *Worker) consume(ctx context.Context, consumerID int) error {
	log := w.logger.With("worker", consumerID)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warn("queue poll failed", "error", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// ProcessNext reserves and handles at most one job. It reports whether a
// job was reserved.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.Reserve(ctx, w.cfg.Lease)
	if err != nil {
		return false, fmt.Errorf("reserve: %w", err)
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	log := w.logger.With("job_id", job.ID, "job", job.Name, "attempt", job.Attempts+1)

	spanCtx, span := tracing.Start(ctx, "queue", "handle",
		attribute.String("queue", w.name),
		attribute.String("job_id", job.ID),
		attribute.Int("attempt", job.Attempts+1),
	)

	stopHeartbeat := w.heartbeat(spanCtx, log, job)
	start := time.Now()
	result, herr := w.handler(spanCtx, job)
	stopHeartbeat()
	metrics.QueueJobLatency.WithLabelValues(w.name).Observe(time.Since(start).Seconds())
	tracing.End(span, herr)

	if ctx.Err() != nil {
		// The lease runs out and the job is redelivered.
		log.Info("job interrupted by shutdown")
		w.count("interrupted")
		return
	}

	if herr != nil {
		w.handleError(ctx, log, job, herr)
		return
	}

	var err error
	switch result.Disposition {
	case DispositionComplete:
		err = w.queue.Complete(ctx, job)
	case DispositionRemove:
		err = w.queue.Remove(ctx, job)
		log.Info("job removed", "reason", result.Reason)
	case DispositionDefer:
		err = w.queue.Defer(ctx, job, result.Until)
		log.Info("job deferred", "until", result.Until, "reason", result.Reason)
	default:
		err = fmt.Errorf("unknown disposition %s", result.Disposition)
	}
	if err != nil {
		log.Error("settle job failed", "disposition", result.Disposition.String(), "error", err)
		w.count("settle_error")
		return
	}
	w.count(result.Disposition.String())
}

func (w *Worker) handleError(ctx context.Context, log *slog.Logger, job *Job, herr error) {
	if retry.IsMarkedTerminal(herr) {
		if err := w.queue.Remove(ctx, job); err != nil {
			log.Error("remove terminal job failed", "error", err)
		}
		log.Warn("job dropped on terminal error", "error", herr)
		w.count("dropped")
		return
	}

	final, err := w.queue.Fail(ctx, job, herr)
	if err != nil {
		log.Error("record job failure failed", "cause", herr, "error", err)
		w.count("settle_error")
		return
	}
	if !final {
		log.Warn("job failed, will retry", "attempts", job.Attempts, "max_attempts", job.MaxAttempts, "error", herr)
		w.count("retried")
		return
	}

	log.Error("job failed permanently", "attempts", job.Attempts, "error", herr)
	w.count("failed")
	if w.onFinal != nil {
		w.onFinal(ctx, job, herr)
	}
}

// heartbeat extends the lease while the handler runs.
func (w *Worker) heartbeat(ctx context.Context, log *slog.Logger, job *Job) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.cfg.Lease / 2)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := w.queue.Extend(hbCtx, job, w.cfg.Lease); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("extend lease failed", "error", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (w *Worker) count(result string) {
	metrics.QueueJobsProcessed.WithLabelValues(w.name, result).Inc()
}
