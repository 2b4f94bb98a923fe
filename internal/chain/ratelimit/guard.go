package ratelimit

import (
	"context"
	"fmt"

	"github.com/emperorhan/htlc-reward-claimer/internal/circuitbreaker"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
)

// Guard throttles and circuit-breaks every RPC call made to one network.
type Guard struct {
	network string
	limiter *Limiter
	breaker *circuitbreaker.Breaker
}

func NewGuard(network string, rps float64, burst int) *Guard {
	gauge := metrics.RPCCircuitState.WithLabelValues(network)
	gauge.Set(float64(circuitbreaker.StateClosed))
	return &Guard{
		network: network,
		limiter: NewLimiter(rps, burst, network),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			OnStateChange: func(_, to circuitbreaker.State) {
				gauge.Set(float64(to))
			},
		}),
	}
}

// Call runs fn under the rate limiter and breaker. Only transient errors
// (timeouts, 5xx, throttling) count against the endpoint.
func (g *Guard) Call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	err := g.breaker.Do(func() error { return fn(ctx) }, countsAgainstEndpoint)
	recordCall(g.network, method, err)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// State exposes the breaker state for health reporting.
func (g *Guard) State() circuitbreaker.State {
	return g.breaker.GetState()
}

func countsAgainstEndpoint(err error) bool {
	return retry.Classify(err).IsTransient()
}
