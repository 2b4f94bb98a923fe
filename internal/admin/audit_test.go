package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func auditLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})), &buf
}

func TestAudit_LogsMutatingRequests(t *testing.T) {
	logger, buf := auditLogger()
	handler := Audit(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/v1/nonces/OPTIMISM/reset", strings.NewReader(`{"why":"stuck"}`)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	out := buf.String()
	assert.Contains(t, out, "admin API audit")
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, "/admin/v1/nonces/OPTIMISM/reset")
	assert.Contains(t, out, `"response_status":202`)
	assert.Contains(t, out, "stuck")
}

func TestAudit_SkipsReads(t *testing.T) {
	logger, buf := auditLogger()
	handler := Audit(logger)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/v1/status", nil))
	assert.Zero(t, buf.Len())
}

func TestAudit_TruncatesLargeBody(t *testing.T) {
	logger, buf := auditLogger()
	var seen int
	handler := Audit(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		seen = b.Len()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/v1/nonces/X/reset", strings.NewReader(strings.Repeat("x", 2000))))
	assert.Contains(t, buf.String(), "truncated")
	assert.Equal(t, 2000, seen, "downstream still reads the whole body")
	assert.Contains(t, buf.String(), `"response_status":200`)
}
