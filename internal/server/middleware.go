package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/asolanog/conversia/internal/auth"
	"github.com/asolanog/conversia/internal/metrics"
	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/service"
)

// maxQueryLogLen is the maximum length for logged query strings before truncation.
const maxQueryLogLen = 200

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 100 * time.Millisecond

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs all requests with timing. Slow requests (>100ms)
// are logged at WARN level. Query strings are truncated to 200 characters.
func LoggingMiddleware(logger *slog.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			if collector != nil {
				collector.RecordTiming(metrics.OpHTTPRequest, duration)
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
			}
			if q := r.URL.RawQuery; q != "" {
				attrs = append(attrs, "query", truncate(q, maxQueryLogLen))
			}

			switch {
			case rec.status >= 500:
				logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}
		})
	}
}

type sessionKey struct{}

// SessionFromContext returns the request's session, nil when anonymous.
func SessionFromContext(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return s
}

// AuthMiddleware parses an optional bearer token and attaches the session to
// the request context. Invalid tokens are rejected; absent tokens pass
// through anonymously so handlers decide what requires auth.
func AuthMiddleware(tokens *auth.TokenService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			session, err := tokens.Parse(raw)
			if err != nil {
				logger.Debug("rejected bearer token", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on a minimum role. The session's effective
// role comes from the datastore, not the token, so revocations apply
// immediately.
func (s *Server) RequireRole(required models.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if !session.Authenticated() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		if err := s.users.RequireRole(r.Context(), session.UserID, required); err != nil {
			if !errors.Is(err, service.ErrForbidden) {
				s.logger.Error("role check errored",
					"user_id", session.UserID, "required", required, "error", err)
				writeError(w, http.StatusInternalServerError, "role check unavailable")
				return
			}
			s.logger.Warn("role check failed",
				"user_id", session.UserID, "required", required, "error", err)
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		next(w, r)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
