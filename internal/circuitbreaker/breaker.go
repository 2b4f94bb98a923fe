// Package circuitbreaker stops calling an RPC endpoint after a run of
// endpoint faults and probes it again after a cool-off.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

type Config struct {
	// FailureThreshold is the run of counted failures that opens the
	// breaker. Default 5.
	FailureThreshold int
	// SuccessThreshold is the number of successful probes that closes a
	// half-open breaker. Default 2.
	SuccessThreshold int
	// OpenTimeout is how long the breaker rejects calls before probing.
	// Default 30s.
	OpenTimeout time.Duration
	// MaxProbes caps concurrent calls while half-open. Default 1.
	MaxProbes     int
	OnStateChange func(from, to State)
	Now           func() time.Time
}

func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.MaxProbes <= 0 {
		c.MaxProbes = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

func New(cfg Config) *Breaker {
	cfg.applyDefaults()
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Do runs fn if the breaker admits it. An error from fn counts against the
// endpoint only when countable reports true (nil countable counts every
// error); uncounted errors settle the call as a success.
func (b *Breaker) Do(fn func() error, countable func(error) bool) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.settle(err != nil && (countable == nil || countable(err)), probe)
	return err
}

func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	switch b.state {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if b.probes >= b.cfg.MaxProbes {
			return false, ErrCircuitOpen
		}
		b.probes++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) settle(failed, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if probe && b.probes > 0 {
		b.probes--
	}

	if failed {
		b.failures++
		b.successes = 0
		if b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.cfg.FailureThreshold) {
			b.openedAt = b.cfg.Now()
			b.transitionLocked(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen && probe {
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}
	}
}

// refreshLocked moves an open breaker to half-open once OpenTimeout passed.
func (b *Breaker) refreshLocked() {
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transitionLocked(StateHalfOpen)
	}
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	b.probes = 0
	if to == StateClosed {
		b.failures = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
