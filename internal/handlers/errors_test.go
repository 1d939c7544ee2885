package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	respondWithError(w, http.StatusNotFound, "Book not found", "", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %v, want %v", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "Book not found" {
		t.Errorf("error = %q, want %q", body["error"], "Book not found")
	}
}

func TestRespondJSON(t *testing.T) {
	t.Run("WithPayload", func(t *testing.T) {
		w := httptest.NewRecorder()
		respondJSON(w, http.StatusOK, map[string]int{"count": 3})

		if w.Code != http.StatusOK {
			t.Errorf("status = %v, want %v", w.Code, http.StatusOK)
		}
		var body map[string]int
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["count"] != 3 {
			t.Errorf("count = %v, want 3", body["count"])
		}
	})

	t.Run("NilPayloadWritesNoBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		respondJSON(w, http.StatusNoContent, nil)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %v, want %v", w.Code, http.StatusNoContent)
		}
		if w.Body.Len() != 0 {
			t.Errorf("body = %q, want empty", w.Body.String())
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		PageNumber int `json:"pageNumber"`
	}

	t.Run("Valid", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/", strings.NewReader(`{"pageNumber": 4}`))
		var p payload
		if err := decodeJSON(r, &p); err != nil {
			t.Fatalf("decodeJSON() error = %v", err)
		}
		if p.PageNumber != 4 {
			t.Errorf("PageNumber = %v, want 4", p.PageNumber)
		}
	})

	t.Run("UnknownFieldRejected", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/", strings.NewReader(`{"pageNumbr": 4}`))
		var p payload
		if err := decodeJSON(r, &p); err == nil {
			t.Error("decodeJSON() should reject unknown fields")
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/", strings.NewReader(`{`))
		var p payload
		if err := decodeJSON(r, &p); err == nil {
			t.Error("decodeJSON() should reject malformed JSON")
		}
	})
}
