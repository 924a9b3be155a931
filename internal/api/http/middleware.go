package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/security"
)

// ContextResolver turns a verified uid into its authorization context.
type ContextResolver interface {
	Resolve(ctx context.Context, uid string) (authz.Context, error)
}

type AuthMiddleware struct {
	verifier security.TokenVerifier
	resolver ContextResolver
}

func NewAuthMiddleware(verifier security.TokenVerifier, resolver ContextResolver) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, resolver: resolver}
}

// Middleware authenticates requests according to the security level of the
// matched route. Public routes accept anonymous callers; a valid token on a
// public route still resolves the caller.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.GetSecurityLevel(routeName(r))
		public := level == config.SecurityPublic

		token := bearerToken(r)
		if token == "" {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, apperr.Unauthenticated("authorization token is not provided"))
			return
		}

		ident, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, apperr.Unauthenticated("invalid token: %v", err))
			return
		}

		ac, err := m.resolver.Resolve(r.Context(), ident.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), ident, ac)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps server-sent event streams working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingMiddleware writes one log line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", routeName(r),
			"status", rec.status,
			"duration", time.Since(start),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("HTTP request", args...)
			return
		}
		logger.Info("HTTP request", args...)
	})
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Handler panicked", "path", r.URL.Path, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
				writeError(w, fmt.Errorf("panic: %v", p))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
