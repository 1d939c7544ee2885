package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storynest/internal/security"
)

func newTestMiddleware() (*Middleware, *security.TokenVerifier) {
	verifier := security.NewTokenVerifier("test-secret")
	limiter := security.NewRateLimiter(2, time.Minute)
	return NewMiddleware(verifier, limiter), verifier
}

func TestRequireReader(t *testing.T) {
	m, verifier := newTestMiddleware()

	var gotReaderID int64
	handler := m.RequireReader(func(w http.ResponseWriter, r *http.Request) {
		gotReaderID = ReaderFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("ValidToken", func(t *testing.T) {
		token, err := verifier.SignReaderToken(42, nil)
		if err != nil {
			t.Fatalf("SignReaderToken() error = %v", err)
		}
		r := httptest.NewRequest("GET", "/api/books", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %v, want %v", w.Code, http.StatusOK)
		}
		if gotReaderID != 42 {
			t.Errorf("reader ID = %v, want 42", gotReaderID)
		}
	})

	t.Run("MissingHeader", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/books", nil)
		w := httptest.NewRecorder()

		handler(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %v, want %v", w.Code, http.StatusUnauthorized)
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("error responses should be JSON: %v", err)
		}
		if body["error"] == "" {
			t.Error("error response should carry an error message")
		}
	})

	t.Run("NotBearerScheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/books", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		handler(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %v, want %v", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/books", nil)
		r.Header.Set("Authorization", "Bearer not-a-real-token")
		w := httptest.NewRecorder()

		handler(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %v, want %v", w.Code, http.StatusUnauthorized)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	m, _ := newTestMiddleware()

	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	request := func() int {
		r := httptest.NewRequest("PUT", "/api/books/1/checkpoint", nil)
		r.RemoteAddr = "203.0.113.7:50000"
		w := httptest.NewRecorder()
		handler(w, r)
		return w.Code
	}

	if code := request(); code != http.StatusNoContent {
		t.Fatalf("first request status = %v, want %v", code, http.StatusNoContent)
	}
	if code := request(); code != http.StatusNoContent {
		t.Fatalf("second request status = %v, want %v", code, http.StatusNoContent)
	}
	if code := request(); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %v, want %v", code, http.StatusTooManyRequests)
	}
}

func TestReaderFromContextUnauthenticated(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if id := ReaderFromContext(r.Context()); id != 0 {
		t.Errorf("ReaderFromContext() = %v, want 0 for unauthenticated requests", id)
	}
}
