// Package admin serves the health, metrics and operator endpoints.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthProvider reports component health. Satisfied by *pipeline.Registry.
type HealthProvider interface {
	Snapshots() []pipeline.HealthSnapshot
	Healthy() bool
}

// NonceResetter clears a cached wallet nonce. Satisfied by *nonce.Allocator.
type NonceResetter interface {
	Reset(ctx context.Context, network model.Network, wallet string) error
}

type Server struct {
	health  HealthProvider
	swaps   store.SwapRepository
	txs     store.TransactionRepository
	claims  queue.Producer
	nonces  NonceResetter
	wallets map[model.Network]string
	limiter *RateLimiter
	logger  *slog.Logger
}

type ServerOption func(*Server)

// WithSwapLookup enables the swap and claim job endpoints.
func WithSwapLookup(swaps store.SwapRepository, txs store.TransactionRepository, claims queue.Producer) ServerOption {
	return func(s *Server) {
		s.swaps, s.txs, s.claims = swaps, txs, claims
	}
}

// WithNonceReset enables the nonce reset endpoint for the given wallets.
func WithNonceReset(nonces NonceResetter, wallets map[model.Network]string) ServerOption {
	return func(s *Server) {
		s.nonces, s.wallets = nonces, wallets
	}
}

func NewServer(health HealthProvider, logger *slog.Logger, opts ...ServerOption) *Server {
	logger = logger.With("component", "admin")
	s := &Server{
		health:  health,
		limiter: NewRateLimiter(adminRules, logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler mounts health and metrics, plus the admin API when admin is true.
func (s *Server) Handler(admin bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	if admin {
		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Use(Audit(s.logger))

			r.Get("/status", s.handleStatus)
			r.Get("/swaps/{id}", s.handleGetSwap)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Post("/nonces/{network}/reset", s.handleResetNonce)
		})
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func healthLabel(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "unhealthy"
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if s.health == nil || s.health.Healthy() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"status":     "unhealthy",
		"components": s.health.Snapshots(),
	})
}

type statusResponse struct {
	Status     string                    `json:"status"`
	Components []pipeline.HealthSnapshot `json:"components"`
	Wallets    map[string]string         `json:"wallets,omitempty"`
	Networks   []string                  `json:"networks,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: "ok", Components: []pipeline.HealthSnapshot{}}
	if s.health != nil {
		resp.Status = healthLabel(s.health.Healthy())
		resp.Components = s.health.Snapshots()
	}
	if len(s.wallets) > 0 {
		resp.Wallets = make(map[string]string, len(s.wallets))
		for network, wallet := range s.wallets {
			resp.Wallets[network.String()] = wallet
			resp.Networks = append(resp.Networks, network.String())
		}
		sort.Strings(resp.Networks)
	}
	writeJSON(w, http.StatusOK, resp)
}

type swapResponse struct {
	Swap         *model.Swap         `json:"swap"`
	Transactions []model.Transaction `json:"transactions"`
	ClaimJob     *queue.Job          `json:"claim_job,omitempty"`
}

func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	if s.swaps == nil {
		writeError(w, http.StatusNotImplemented, "swap lookup not configured")
		return
	}
	id := model.NormalizeAddress(chi.URLParam(r, "id"))
	ctx := r.Context()

	swap, err := s.swaps.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("find swap", "swap_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if swap == nil {
		writeError(w, http.StatusNotFound, "swap not found")
		return
	}

	resp := swapResponse{Swap: swap, Transactions: []model.Transaction{}}
	if s.txs != nil {
		txs, err := s.txs.FindBySwapID(ctx, id)
		if err != nil {
			s.logger.Error("find transactions", "swap_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if txs != nil {
			resp.Transactions = txs
		}
	}
	if s.claims != nil {
		job, err := s.claims.GetByID(ctx, model.ClaimJobID(id))
		if err != nil {
			s.logger.Warn("claim job lookup failed", "swap_id", id, "error", err)
		}
		resp.ClaimJob = redactJob(job)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetJob accepts either a job id ("swap:<id>") or a bare swap id.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.claims == nil {
		writeError(w, http.StatusNotImplemented, "job lookup not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := model.SwapIDFromClaimJobID(id); !ok {
		id = model.ClaimJobID(model.NormalizeAddress(id))
	}

	job, err := s.claims.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("get job", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, redactJob(job))
}

// redactJob strips the payload, which carries the swap secret.
func redactJob(job *queue.Job) *queue.Job {
	if job == nil {
		return nil
	}
	out := *job
	out.Payload = nil
	return &out
}

func (s *Server) handleResetNonce(w http.ResponseWriter, r *http.Request) {
	if s.nonces == nil {
		writeError(w, http.StatusNotImplemented, "nonce reset not configured")
		return
	}
	network := model.NormalizeNetwork(chi.URLParam(r, "network"))
	wallet, ok := s.wallets[network]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown network")
		return
	}

	if err := s.nonces.Reset(r.Context(), network, wallet); err != nil {
		s.logger.Error("reset nonce", "network", network, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.logger.Info("nonce reset by operator", "network", network, "wallet", wallet)
	writeJSON(w, http.StatusOK, map[string]any{
		"network": network,
		"wallet":  model.NormalizeAddress(wallet),
		"reset":   true,
	})
}
