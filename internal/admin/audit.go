package admin

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const maxAuditBodyBytes = 1024

// Audit logs every mutating admin request with its outcome.
func Audit(logger *slog.Logger) func(http.Handler) http.Handler {
	auditLogger := logger.With("component", "admin_audit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			user, _, _ := r.BasicAuth()

			var bodySummary string
			if r.Body != nil {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBodyBytes+1))
				if err == nil {
					if len(body) > maxAuditBodyBytes {
						bodySummary = string(body[:maxAuditBodyBytes]) + "...(truncated)"
					} else {
						bodySummary = string(body)
					}
					r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), r.Body), Closer: r.Body}
				}
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			auditLogger.Info("admin API audit",
				"request_id", middleware.GetReqID(r.Context()),
				"user", user,
				"remote_addr", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
				"body_summary", bodySummary,
				"response_status", status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
