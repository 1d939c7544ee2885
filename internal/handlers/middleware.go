package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"storynest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ReaderContextKey carries the authenticated reader's ID
const ReaderContextKey ContextKey = "reader"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	verifier *security.TokenVerifier
	limiter  *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(verifier *security.TokenVerifier, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		verifier: verifier,
		limiter:  limiter,
	}
}

// RequireReader is middleware that requires a valid reader bearer token
func (m *Middleware) RequireReader(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing bearer token", "", nil)
			return
		}

		readerID, err := m.verifier.VerifyReaderToken(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), ReaderContextKey, readerID)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects clients that exceed the configured request budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// ReaderFromContext retrieves the authenticated reader ID from the request
// context, returning 0 when the request was not authenticated
func ReaderFromContext(ctx context.Context) int64 {
	readerID, ok := ctx.Value(ReaderContextKey).(int64)
	if !ok {
		return 0
	}
	return readerID
}
