package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job hashes live at queue:<name>:job:<id>. A job id is in exactly one of
// the wait list, the delayed zset (score run-at ms) or the active zset
// (score lease-until ms).
var (
	enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local now = tonumber(ARGV[6])
local delay = tonumber(ARGV[7])
local state = 'waiting'
local runAt = now
if delay > 0 then
	state = 'delayed'
	runAt = now + delay
end
redis.call('HSET', KEYS[1],
	'id', ARGV[1], 'name', ARGV[2], 'payload', ARGV[3],
	'attempts', 0, 'max_attempts', ARGV[4], 'backoff_ms', ARGV[5],
	'created_at_ms', now, 'run_at_ms', runAt, 'state', state, 'last_error', '')
if delay > 0 then
	redis.call('ZADD', KEYS[3], runAt, ARGV[1])
else
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return 1
`)

	reserveScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', now)
for _, id in ipairs(due) do
	redis.call('ZREM', KEYS[2], id)
	redis.call('RPUSH', KEYS[1], id)
	redis.call('HSET', ARGV[3] .. id, 'state', 'waiting')
end
local expired = redis.call('ZRANGEBYSCORE', KEYS[3], '-inf', now)
for _, id in ipairs(expired) do
	redis.call('ZREM', KEYS[3], id)
	redis.call('LPUSH', KEYS[1], id)
	redis.call('HSET', ARGV[3] .. id, 'state', 'waiting')
end
while true do
	local id = redis.call('LPOP', KEYS[1])
	if not id then
		return false
	end
	local key = ARGV[3] .. id
	if redis.call('EXISTS', key) == 1 then
		redis.call('ZADD', KEYS[3], now + tonumber(ARGV[2]), id)
		redis.call('HSET', key, 'state', 'active')
		return redis.call('HGETALL', key)
	end
end
`)

	removeIfExistsScript = redis.NewScript(`
local state = redis.call('HGET', KEYS[1], 'state')
if not state or state == 'active' then
	return 0
end
redis.call('LREM', KEYS[2], 0, ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('DEL', KEYS[1])
return 1
`)

	// failScript returns {final, attempts}, or -1 when the job is not active.
	failScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[2], ARGV[1]) then
	return -1
end
redis.call('ZREM', KEYS[2], ARGV[1])
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local max = tonumber(redis.call('HGET', KEYS[1], 'max_attempts'))
if attempts >= max then
	redis.call('DEL', KEYS[1])
	return {1, attempts}
end
local runAt = tonumber(ARGV[3]) + tonumber(ARGV[4])
redis.call('HSET', KEYS[1], 'state', 'delayed', 'run_at_ms', runAt, 'last_error', ARGV[2])
redis.call('ZADD', KEYS[3], runAt, ARGV[1])
return {0, attempts}
`)

	deferScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[2], ARGV[1]) then
	return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[1], 'state', 'delayed', 'run_at_ms', ARGV[2])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return 1
`)

	extendScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
return 1
`)
)

// Queue is a durable queue.Queue on Redis lists, sorted sets and hashes.
type Queue struct {
	client *redis.Client
	name   string
	now    func() time.Time
}

var _ queue.Queue = (*Queue)(nil)

func NewQueue(c *Client, name string) *Queue {
	return &Queue{client: c.client, name: name, now: time.Now}
}

// WithClock replaces the queue clock; used by tests.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) prefix() string { return "queue:" + q.name + ":" }

func (q *Queue) jobPrefix() string { return q.prefix() + "job:" }

func (q *Queue) jobKey(id string) string { return q.jobPrefix() + id }

func (q *Queue) waitKey() string { return q.prefix() + "wait" }

func (q *Queue) delayedKey() string { return q.prefix() + "delayed" }

func (q *Queue) activeKey() string { return q.prefix() + "active" }

func (q *Queue) Enqueue(ctx context.Context, name string, payload []byte, opts queue.EnqueueOptions) (bool, error) {
	opts = opts.WithDefaults()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	added, err := enqueueScript.Run(ctx, q.client,
		[]string{q.jobKey(id), q.waitKey(), q.delayedKey()},
		id, name, string(payload), opts.Attempts, opts.Backoff.Milliseconds(),
		q.now().UnixMilli(), opts.Delay.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: enqueue %s: %w", q.name, id, err)
	}
	return added == 1, nil
}

func (q *Queue) EnqueueBulk(ctx context.Context, specs []queue.JobSpec) error {
	if len(specs) == 0 {
		return nil
	}
	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, spec := range specs {
			opts := spec.Options.WithDefaults()
			id := opts.ID
			if id == "" {
				id = uuid.NewString()
			}
			enqueueScript.Eval(ctx, pipe,
				[]string{q.jobKey(id), q.waitKey(), q.delayedKey()},
				id, spec.Name, string(spec.Payload), opts.Attempts, opts.Backoff.Milliseconds(),
				q.now().UnixMilli(), opts.Delay.Milliseconds(),
			)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: enqueue bulk (%d jobs): %w", q.name, len(specs), err)
	}
	return nil
}

func (q *Queue) GetByID(ctx context.Context, id string) (*queue.Job, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: get job %s: %w", q.name, id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeJob(fields)
}

func (q *Queue) IsActiveOrDelayed(ctx context.Context, id string) (bool, error) {
	n, err := q.client.Exists(ctx, q.jobKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: exists %s: %w", q.name, id, err)
	}
	return n > 0, nil
}

func (q *Queue) RemoveIfExists(ctx context.Context, id string) (bool, error) {
	removed, err := removeIfExistsScript.Run(ctx, q.client,
		[]string{q.jobKey(id), q.waitKey(), q.delayedKey()}, id,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: remove %s: %w", q.name, id, err)
	}
	return removed == 1, nil
}

func (q *Queue) Reserve(ctx context.Context, lease time.Duration) (*queue.Job, error) {
	if lease <= 0 {
		lease = queue.DefaultLease
	}
	res, err := reserveScript.Run(ctx, q.client,
		[]string{q.waitKey(), q.delayedKey(), q.activeKey()},
		q.now().UnixMilli(), lease.Milliseconds(), q.jobPrefix(),
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reserve: %w", q.name, err)
	}
	fields := make(map[string]string, len(res)/2)
	for i := 0; i+1 < len(res); i += 2 {
		fields[res[i]] = res[i+1]
	}
	return decodeJob(fields)
}

func (q *Queue) Extend(ctx context.Context, job *queue.Job, lease time.Duration) error {
	ok, err := extendScript.Run(ctx, q.client,
		[]string{q.activeKey()}, job.ID, q.now().Add(lease).UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("%s: extend %s: %w", q.name, job.ID, err)
	}
	if ok == 0 {
		return fmt.Errorf("%s: job %s is not active", q.name, job.ID)
	}
	return nil
}

func (q *Queue) Complete(ctx context.Context, job *queue.Job) error {
	return q.delete(ctx, job.ID)
}

func (q *Queue) Remove(ctx context.Context, job *queue.Job) error {
	return q.delete(ctx, job.ID)
}

func (q *Queue) delete(ctx context.Context, id string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.activeKey(), id)
		pipe.ZRem(ctx, q.delayedKey(), id)
		pipe.LRem(ctx, q.waitKey(), 0, id)
		pipe.Del(ctx, q.jobKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: delete %s: %w", q.name, id, err)
	}
	return nil
}

func (q *Queue) Fail(ctx context.Context, job *queue.Job, cause error) (bool, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	delay := queue.NextBackoff(job.Backoff, job.Attempts+1)
	res, err := failScript.Run(ctx, q.client,
		[]string{q.jobKey(job.ID), q.activeKey(), q.delayedKey()},
		job.ID, msg, q.now().UnixMilli(), delay.Milliseconds(),
	).Result()
	if err != nil {
		return false, fmt.Errorf("%s: fail %s: %w", q.name, job.ID, err)
	}
	out, ok := res.([]interface{})
	if !ok || len(out) != 2 {
		return false, fmt.Errorf("%s: job %s is not active", q.name, job.ID)
	}
	final, _ := out[0].(int64)
	attempts, _ := out[1].(int64)
	job.Attempts = int(attempts)
	job.LastError = msg
	return final == 1, nil
}

func (q *Queue) Defer(ctx context.Context, job *queue.Job, until time.Time) error {
	ok, err := deferScript.Run(ctx, q.client,
		[]string{q.jobKey(job.ID), q.activeKey(), q.delayedKey()},
		job.ID, until.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("%s: defer %s: %w", q.name, job.ID, err)
	}
	if ok == 0 {
		return fmt.Errorf("%s: job %s is not active", q.name, job.ID)
	}
	return nil
}

func decodeJob(fields map[string]string) (*queue.Job, error) {
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("decode job %s attempts: %w", fields["id"], err)
	}
	maxAttempts, err := strconv.Atoi(fields["max_attempts"])
	if err != nil {
		return nil, fmt.Errorf("decode job %s max_attempts: %w", fields["id"], err)
	}
	backoffMS, _ := strconv.ParseInt(fields["backoff_ms"], 10, 64)
	runAtMS, _ := strconv.ParseInt(fields["run_at_ms"], 10, 64)
	createdAtMS, _ := strconv.ParseInt(fields["created_at_ms"], 10, 64)

	job := &queue.Job{
		ID:          fields["id"],
		Name:        fields["name"],
		State:       queue.State(fields["state"]),
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		Backoff:     time.Duration(backoffMS) * time.Millisecond,
		RunAt:       time.UnixMilli(runAtMS),
		LastError:   fields["last_error"],
		CreatedAt:   time.UnixMilli(createdAtMS),
	}
	if payload := fields["payload"]; payload != "" {
		job.Payload = []byte(payload)
	}
	return job, nil
}
