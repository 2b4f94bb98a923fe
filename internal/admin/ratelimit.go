package admin

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL = 10 * time.Minute
	sweepInterval = time.Minute
)

// LimitRule grants each client Burst requests and then one request per
// Every on routes matching Method and Prefix. Empty fields match anything.
type LimitRule struct {
	Name   string
	Method string
	Prefix string
	Every  time.Duration
	Burst  int
}

func (r LimitRule) matches(method, path string) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, method) {
		return false
	}
	return strings.HasPrefix(path, r.Prefix)
}

// retryAfter is the whole number of seconds until one more token accrues.
func (r LimitRule) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(r.Every.Seconds())))
}

// adminRules is checked in order; the last rule catches everything.
var adminRules = []LimitRule{
	{Name: "nonce_reset", Method: http.MethodPost, Prefix: "/admin/v1/nonces", Every: 6 * time.Second, Burst: 3},
	{Name: "default", Every: time.Second, Burst: 5},
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per rule and client IP. Idle buckets
// are swept on the request path, so there is nothing to stop.
type RateLimiter struct {
	rules  []LimitRule
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewRateLimiter(rules []LimitRule, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		rules:   rules,
		now:     time.Now,
		logger:  logger,
		buckets: make(map[string]*bucket),
	}
}

// Handler rejects requests over budget with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, ok := rl.ruleFor(r.Method, r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		client := clientIP(r)
		if rl.take(rule, client) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.AdminRateLimited.WithLabelValues(rule.Name).Inc()
		rl.logger.Warn("admin request rate limited",
			"rule", rule.Name,
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", client,
		)
		w.Header().Set("Retry-After", rule.retryAfter())
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
}

func (rl *RateLimiter) ruleFor(method, path string) (LimitRule, bool) {
	for _, rule := range rl.rules {
		if rule.matches(method, path) {
			return rule, true
		}
	}
	return LimitRule{}, false
}

func (rl *RateLimiter) take(rule LimitRule, client string) bool {
	now := rl.now()
	key := rule.Name + "|" + client

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweepLocked(now)
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(rule.Every), rule.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > bucketIdleTTL {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
