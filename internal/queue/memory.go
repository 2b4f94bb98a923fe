package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memJob struct {
	job        Job
	seq        uint64
	leaseUntil time.Time
}

// MemoryQueue is an in-process Queue with the same delivery semantics as
// the Redis queue. Contents are lost on restart.
type MemoryQueue struct {
	name string
	now  func() time.Time

	mu   sync.Mutex
	jobs map[string]*memJob
	seq  uint64
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemoryQueue(name string) *MemoryQueue {
	return &MemoryQueue{name: name, now: time.Now, jobs: make(map[string]*memJob)}
}

// WithClock replaces the queue clock; used by tests.
func (q *MemoryQueue) WithClock(now func() time.Time) *MemoryQueue {
	q.now = now
	return q
}

func (q *MemoryQueue) Name() string { return q.name }

func (q *MemoryQueue) Enqueue(_ context.Context, name string, payload []byte, opts EnqueueOptions) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueueLocked(name, payload, opts), nil
}

func (q *MemoryQueue) EnqueueBulk(_ context.Context, specs []JobSpec) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, spec := range specs {
		q.enqueueLocked(spec.Name, spec.Payload, spec.Options)
	}
	return nil
}

func (q *MemoryQueue) enqueueLocked(name string, payload []byte, opts EnqueueOptions) bool {
	opts = opts.WithDefaults()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := q.jobs[id]; ok {
		return false
	}

	now := q.now()
	job := Job{
		ID:          id,
		Name:        name,
		Payload:     append([]byte(nil), payload...),
		State:       StateWaiting,
		MaxAttempts: opts.Attempts,
		Backoff:     opts.Backoff,
		RunAt:       now,
		CreatedAt:   now,
	}
	if opts.Delay > 0 {
		job.State = StateDelayed
		job.RunAt = now.Add(opts.Delay)
	}
	q.seq++
	q.jobs[id] = &memJob{job: job, seq: q.seq}
	return true
}

func (q *MemoryQueue) GetByID(_ context.Context, id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mj, ok := q.jobs[id]
	if !ok {
		return nil, nil
	}
	job := mj.job
	return &job, nil
}

func (q *MemoryQueue) IsActiveOrDelayed(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.jobs[id]
	return ok, nil
}

func (q *MemoryQueue) RemoveIfExists(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mj, ok := q.jobs[id]
	if !ok || mj.job.State == StateActive {
		return false, nil
	}
	delete(q.jobs, id)
	return true, nil
}

func (q *MemoryQueue) Reserve(_ context.Context, lease time.Duration) (*Job, error) {
	if lease <= 0 {
		lease = DefaultLease
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next *memJob
	for _, mj := range q.jobs {
		if !mj.readyAt(now) {
			continue
		}
		if next == nil || mj.seq < next.seq {
			next = mj
		}
	}
	if next == nil {
		return nil, nil
	}
	next.job.State = StateActive
	next.leaseUntil = now.Add(lease)
	job := next.job
	return &job, nil
}

func (mj *memJob) readyAt(now time.Time) bool {
	switch mj.job.State {
	case StateWaiting:
		return true
	case StateDelayed:
		return !mj.job.RunAt.After(now)
	case StateActive:
		return !mj.leaseUntil.After(now)
	default:
		return false
	}
}

func (q *MemoryQueue) Extend(_ context.Context, job *Job, lease time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	mj, err := q.activeLocked(job.ID)
	if err != nil {
		return err
	}
	mj.leaseUntil = q.now().Add(lease)
	return nil
}

func (q *MemoryQueue) Complete(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, job.ID)
	return nil
}

func (q *MemoryQueue) Remove(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, job.ID)
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, job *Job, cause error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mj, err := q.activeLocked(job.ID)
	if err != nil {
		return false, err
	}
	mj.job.Attempts++
	if cause != nil {
		mj.job.LastError = cause.Error()
	}
	job.Attempts, job.LastError = mj.job.Attempts, mj.job.LastError

	if mj.job.Attempts >= mj.job.MaxAttempts {
		delete(q.jobs, job.ID)
		return true, nil
	}
	mj.job.State = StateDelayed
	mj.job.RunAt = q.now().Add(NextBackoff(mj.job.Backoff, mj.job.Attempts))
	return false, nil
}

func (q *MemoryQueue) Defer(_ context.Context, job *Job, until time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	mj, err := q.activeLocked(job.ID)
	if err != nil {
		return err
	}
	mj.job.State = StateDelayed
	mj.job.RunAt = until
	return nil
}

// Len returns the number of live jobs.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *MemoryQueue) activeLocked(id string) (*memJob, error) {
	mj, ok := q.jobs[id]
	if !ok || mj.job.State != StateActive {
		return nil, fmt.Errorf("%s: job %s is not active", q.name, id)
	}
	return mj, nil
}
