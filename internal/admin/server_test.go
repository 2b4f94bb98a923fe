package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSwapID = "0x00000000000000000000000000000000000000000000000000000000000000aa"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingResetter struct {
	calls []string
	err   error
}

func (r *recordingResetter) Reset(_ context.Context, network model.Network, wallet string) error {
	r.calls = append(r.calls, network.String()+"|"+wallet)
	return r.err
}

type env struct {
	registry *pipeline.Registry
	swaps    *memory.SwapRepo
	txs      *memory.TransactionRepo
	claims   *queue.MemoryQueue
	nonces   *recordingResetter
	handler  http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		registry: pipeline.NewRegistry(),
		swaps:    memory.NewSwapRepo(),
		txs:      memory.NewTransactionRepo(),
		claims:   queue.NewMemoryQueue(queue.EligibleRewardQueue),
		nonces:   &recordingResetter{},
	}
	srv := NewServer(e.registry, testLogger(),
		WithSwapLookup(e.swaps, e.txs, e.claims),
		WithNonceReset(e.nonces, map[model.Network]string{model.NetworkOptimism: "0xABC"}),
	)
	e.handler = srv.Handler(true)
	return e
}

func (e *env) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	h := e.registry.Track("ingestor", "OPTIMISM")

	rec := e.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < pipeline.DefaultUnhealthyThreshold; i++ {
		h.Observe(0, errors.New("rpc down"))
	}
	rec = e.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatus(t *testing.T) {
	e := newEnv(t)
	e.registry.Track("scheduler", "").Observe(time.Second, nil)

	rec := e.do(t, http.MethodGet, "/admin/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[statusResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Components, 1)
	assert.Equal(t, "scheduler", resp.Components[0].Component)
	assert.Equal(t, []string{"OPTIMISM"}, resp.Networks)
}

func TestAdminRoutesDisabled(t *testing.T) {
	srv := NewServer(pipeline.NewRegistry(), testLogger())

	rec := httptest.NewRecorder()
	srv.Handler(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSwap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	secret := "42"
	require.NoError(t, e.swaps.Insert(ctx, &model.Swap{ID: testSwapID, Secret: &secret, Status: model.SwapStatusRedeemed}))
	require.NoError(t, e.txs.Create(ctx, &model.Transaction{SwapID: testSwapID, Network: model.NetworkOptimism, Status: model.TxStatusPending, Fee: "1"}))
	_, err := e.claims.Enqueue(ctx, queue.JobProcessReward, []byte(`{"secret":"42"}`), queue.EnqueueOptions{ID: model.ClaimJobID(testSwapID), Delay: time.Minute})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/admin/v1/swaps/"+testSwapID)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[swapResponse](t, rec)
	assert.Equal(t, testSwapID, resp.Swap.ID)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, model.TxStatusPending, resp.Transactions[0].Status)
	require.NotNil(t, resp.ClaimJob)
	assert.Equal(t, queue.StateDelayed, resp.ClaimJob.State)
	assert.NotContains(t, string(resp.ClaimJob.Payload), "42")
}

func TestGetSwap_NotFound(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/admin/v1/swaps/0x01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJob(t *testing.T) {
	e := newEnv(t)
	_, err := e.claims.Enqueue(context.Background(), queue.JobProcessReward, nil, queue.EnqueueOptions{ID: model.ClaimJobID(testSwapID)})
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"job id", "/admin/v1/jobs/" + model.ClaimJobID(testSwapID), http.StatusOK},
		{"bare swap id", "/admin/v1/jobs/" + testSwapID, http.StatusOK},
		{"missing", "/admin/v1/jobs/swap:0x02", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, tc.path)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestResetNonce(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/admin/v1/nonces/optimism/reset")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"OPTIMISM|0xABC"}, e.nonces.calls)

	rec = e.do(t, http.MethodPost, "/admin/v1/nonces/SOLANA/reset")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e.nonces.err = errors.New("redis down")
	rec = e.do(t, http.MethodPost, "/admin/v1/nonces/OPTIMISM/reset")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
