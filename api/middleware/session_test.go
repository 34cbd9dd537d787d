package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestCartSessionKeepsClientID(t *testing.T) {
	var seen string
	handler := CartSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Id", "sess_0123456789")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "sess_0123456789" {
		t.Fatalf("expected client session id, got %q", seen)
	}
	if rec.Header().Get("X-Session-Id") != "sess_0123456789" {
		t.Fatalf("expected session id echoed, got %q", rec.Header().Get("X-Session-Id"))
	}
}

func TestCartSessionGeneratesWhenMissingOrMalformed(t *testing.T) {
	for _, header := range []string{"", "short", "has spaces in it!"} {
		var seen string
		handler := CartSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		if header != "" {
			req.Header.Set("X-Session-Id", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("header %q: expected generated uuid, got %q", header, seen)
		}
		if rec.Header().Get("X-Session-Id") != seen {
			t.Fatalf("header %q: echoed id mismatch", header)
		}
	}
}
