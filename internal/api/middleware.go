package api

import (
	"context"
	"net/http"
	"time"

	"NEAR-Swarm/internal/auth"
	"NEAR-Swarm/internal/observability/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// route 依次套上指标、认证与超时。
func (s *Server) route(name string, perms map[string][]string, handler http.HandlerFunc) http.Handler {
	var next http.Handler = handler
	if s.auth.Enabled() {
		next = s.auth.Middleware(auth.MiddlewareConfig{RequiredPermissions: perms, AuditEvent: name})(next)
	}
	return s.instrument(name, next)
}

// instrument 为处理器附加超时与请求指标。
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requestTimeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
			defer cancel()
			r = r.WithContext(ctx)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		if s.metrics {
			metrics.ObserveHTTPRequest(name, r.Method, rec.status, time.Since(start))
		}
		s.logger.Debug("HTTP 请求", "handler", name, "method", r.Method, "status", rec.status, "duration", time.Since(start))
	})
}
