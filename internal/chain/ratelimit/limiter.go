package ratelimit

import (
	"context"

	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/retry"
	"golang.org/x/time/rate"
)

// Limiter is the per-network token bucket in front of the RPC endpoint.
type Limiter struct {
	bucket  *rate.Limiter
	network string
}

func NewLimiter(rps float64, burst int, network string) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst), network: network}
}

// Wait takes a token, blocking until one is available or ctx is done.
// Calls that had to wait are counted.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.bucket.Allow() {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(l.network).Inc()
	return l.bucket.Wait(ctx)
}

// callStatus is the status label of rpc calls_total: "ok" or the
// classification reason of the failure.
func callStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return retry.Classify(err).Reason
}

func recordCall(network, method string, err error) {
	metrics.RPCCallsTotal.WithLabelValues(network, method, callStatus(err)).Inc()
}
