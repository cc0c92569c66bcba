package api

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// limitScanRequests rejects scan triggers from a client that exceeds the
// scan request rate with 429.
func (s *Server) limitScanRequests(ctx huma.Context, next func(huma.Context)) {
	key := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(key); err == nil {
		key = host
	}
	if !s.scanLimiter.Allow(key) {
		s.logger.Warn("scan request rate limited", "client", key)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many scan requests, try again later")
		return
	}
	next(ctx)
}
