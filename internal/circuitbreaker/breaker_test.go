package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTimeout  = errors.New("i/o timeout")
	errReverted = errors.New("execution reverted")
)

func onlyTimeouts(err error) bool { return errors.Is(err, errTimeout) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg.Now = clock.Now
	return New(cfg), clock
}

func fail(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Do(func() error { return errTimeout }, onlyTimeouts)
	}
}

func succeed(b *Breaker) error {
	return b.Do(func() error { return nil }, onlyTimeouts)
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, StateClosed, b.GetState())
	assert.Equal(t, 5, b.cfg.FailureThreshold)
	assert.Equal(t, 2, b.cfg.SuccessThreshold)
	assert.Equal(t, 30*time.Second, b.cfg.OpenTimeout)
	assert.Equal(t, 1, b.cfg.MaxProbes)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, OpenTimeout: time.Hour})

	fail(b, 2)
	require.NoError(t, succeed(b))
	fail(b, 2)
	assert.Equal(t, StateClosed, b.GetState(), "a success resets the run")

	fail(b, 1)
	assert.Equal(t, StateOpen, b.GetState())

	called := false
	err := b.Do(func() error { called = true; return nil }, onlyTimeouts)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_UncountedErrorsPassThrough(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 2, OpenTimeout: time.Hour})

	for i := 0; i < 10; i++ {
		err := b.Do(func() error { return errReverted }, onlyTimeouts)
		assert.ErrorIs(t, err, errReverted)
	}
	assert.Equal(t, StateClosed, b.GetState())

	fail(b, 1)
	_ = b.Do(func() error { return errReverted }, onlyTimeouts)
	fail(b, 1)
	assert.Equal(t, StateClosed, b.GetState(), "uncounted errors reset the failure run")
}

func TestBreaker_NilCountableCountsEverything(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1, OpenTimeout: time.Hour})
	_ = b.Do(func() error { return errReverted }, nil)
	assert.Equal(t, StateOpen, b.GetState())
}

func TestBreaker_HalfOpenLifecycle(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Second})
	fail(b, 1)

	clock.Advance(9 * time.Second)
	assert.ErrorIs(t, succeed(b), ErrCircuitOpen)

	clock.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.GetState())
	require.NoError(t, succeed(b))
	assert.Equal(t, StateHalfOpen, b.GetState())
	require.NoError(t, succeed(b))
	assert.Equal(t, StateClosed, b.GetState())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, OpenTimeout: time.Second})
	fail(b, 1)
	clock.Advance(time.Second)
	require.Equal(t, StateHalfOpen, b.GetState())

	fail(b, 1)
	assert.Equal(t, StateOpen, b.GetState())

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, StateOpen, b.GetState(), "the open timeout restarts on reopen")
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Second})
	fail(b, 1)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		}, onlyTimeouts)
	}()
	<-started

	assert.ErrorIs(t, succeed(b), ErrCircuitOpen, "second probe is rejected while the first is in flight")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.GetState())
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	b, clock := newTestBreaker(Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	fail(b, 1)
	clock.Advance(time.Minute)
	require.NoError(t, succeed(b))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_ConcurrentCalls(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1000, OpenTimeout: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			fail(b, 1)
		}()
		go func() {
			defer wg.Done()
			_ = b.Do(func() error { return errReverted }, onlyTimeouts)
		}()
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.GetState())
}
