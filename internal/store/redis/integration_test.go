//go:build integration

package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redis.NewClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestWatermarkStore(t *testing.T) {
	ctx := context.Background()
	s := redis.NewWatermarkStore(setupRedis(t))

	_, ok, err := s.GetWatermark(ctx, 11155111)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetWatermark(ctx, 11155111, 1650))
	block, ok, err := s.GetWatermark(ctx, 11155111)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1650), block)
	assert.Equal(t, "lastProcessedBlock:11155111", redis.WatermarkKey(11155111))
}

func TestNonceStore_LockIsExclusiveAndTokenChecked(t *testing.T) {
	ctx := context.Background()
	s := redis.NewNonceStore(setupRedis(t))
	key := "nonce:ETHEREUM_SEPOLIA:0xabc:lock"

	ok, err := s.AcquireLock(ctx, key, "token-a", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLock(ctx, key, "token-b", 2*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseLock(ctx, key, "token-b"))
	ok, err = s.AcquireLock(ctx, key, "token-b", 2*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "foreign token must not release the lock")

	require.NoError(t, s.ReleaseLock(ctx, key, "token-a"))
	ok, err = s.AcquireLock(ctx, key, "token-b", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonceStore_LockExpires(t *testing.T) {
	ctx := context.Background()
	s := redis.NewNonceStore(setupRedis(t))
	key := "nonce:OPTIMISM:0xabc:lock"

	ok, err := s.AcquireLock(ctx, key, "a", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		ok, err := s.AcquireLock(ctx, key, "b", time.Second)
		return err == nil && ok
	}, 2*time.Second, 50*time.Millisecond)
}

func TestNonceStore_Value(t *testing.T) {
	ctx := context.Background()
	s := redis.NewNonceStore(setupRedis(t))
	key := "nonce:OPTIMISM:0xabc"

	_, ok, err := s.GetNonce(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetNonce(ctx, key, 7))
	n, ok, err := s.GetNonce(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), n)

	require.NoError(t, s.DeleteNonce(ctx, key))
	_, ok, err = s.GetNonce(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestQueue_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	q := redis.NewQueue(setupRedis(t), queue.EligibleRewardQueue).WithClock(c.now)

	added, err := q.Enqueue(ctx, queue.JobProcessReward, []byte(`{"swapId":"0x01"}`),
		queue.EnqueueOptions{ID: "swap:0x01", Delay: 93 * time.Second})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = q.Enqueue(ctx, queue.JobProcessReward, []byte(`{}`), queue.EnqueueOptions{ID: "swap:0x01"})
	require.NoError(t, err)
	assert.False(t, added, "live job with the same id is kept")

	job, err := q.GetByID(ctx, "swap:0x01")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, queue.StateDelayed, job.State)
	assert.Equal(t, c.t.Add(93*time.Second).UnixMilli(), job.RunAt.UnixMilli())
	assert.JSONEq(t, `{"swapId":"0x01"}`, string(job.Payload))

	reserved, err := q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, reserved, "delayed job not due")

	c.t = c.t.Add(93 * time.Second)
	reserved, err = q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, reserved)
	assert.Equal(t, "swap:0x01", reserved.ID)
	assert.Equal(t, queue.StateActive, reserved.State)

	removed, err := q.RemoveIfExists(ctx, "swap:0x01")
	require.NoError(t, err)
	assert.False(t, removed, "active job is not removed")

	require.NoError(t, q.Complete(ctx, reserved))
	live, err := q.IsActiveOrDelayed(ctx, "swap:0x01")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestQueue_FailBackoffAndFinal(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	q := redis.NewQueue(setupRedis(t), queue.EventsQueue).WithClock(c.now)

	_, err := q.Enqueue(ctx, queue.JobProcessEvent, []byte(`{}`),
		queue.EnqueueOptions{ID: "evt", Attempts: 2, Backoff: time.Second})
	require.NoError(t, err)

	job, err := q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	final, err := q.Fail(ctx, job, errors.New("rpc unavailable"))
	require.NoError(t, err)
	assert.False(t, final)
	assert.Equal(t, 1, job.Attempts)

	stored, err := q.GetByID(ctx, "evt")
	require.NoError(t, err)
	assert.Equal(t, queue.StateDelayed, stored.State)
	assert.Equal(t, "rpc unavailable", stored.LastError)
	assert.Equal(t, c.t.Add(time.Second).UnixMilli(), stored.RunAt.UnixMilli())

	c.t = c.t.Add(time.Second)
	job, err = q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	final, err = q.Fail(ctx, job, errors.New("rpc unavailable"))
	require.NoError(t, err)
	assert.True(t, final)

	stored, err = q.GetByID(ctx, "evt")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestQueue_DeferAndLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	q := redis.NewQueue(setupRedis(t), queue.EligibleRewardQueue).WithClock(c.now)

	_, err := q.Enqueue(ctx, queue.JobProcessReward, nil, queue.EnqueueOptions{ID: "swap:0x02"})
	require.NoError(t, err)

	job, err := q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	require.NoError(t, q.Defer(ctx, job, c.t.Add(2*time.Minute)))

	c.t = c.t.Add(2 * time.Minute)
	job, err = q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 0, job.Attempts)

	c.t = c.t.Add(30 * time.Second)
	require.NoError(t, q.Extend(ctx, job, time.Minute))
	c.t = c.t.Add(45 * time.Second)
	again, err := q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, again)

	c.t = c.t.Add(time.Minute)
	again, err = q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, "swap:0x02", again.ID)
}

func TestQueue_EnqueueBulkAndRemoveIfExists(t *testing.T) {
	ctx := context.Background()
	q := redis.NewQueue(setupRedis(t), queue.EventsQueue)

	require.NoError(t, q.EnqueueBulk(ctx, []queue.JobSpec{
		{Name: queue.JobProcessEvent, Payload: []byte(`1`), Options: queue.EnqueueOptions{ID: "a"}},
		{Name: queue.JobProcessEvent, Payload: []byte(`2`), Options: queue.EnqueueOptions{ID: "b", Delay: time.Hour}},
	}))

	for _, id := range []string{"a", "b"} {
		removed, err := q.RemoveIfExists(ctx, id)
		require.NoError(t, err)
		assert.True(t, removed, id)
	}

	job, err := q.Reserve(ctx, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job)
}
