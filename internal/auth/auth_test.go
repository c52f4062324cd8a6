package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if wantUser == "" {
			if ok {
				t.Errorf("expected no user in context, got %q", user.UserID)
			}
		} else if !ok || user.UserID != wantUser {
			t.Errorf("expected user %q in context, got %q (ok=%v)", wantUser, user.UserID, ok)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(verifier)(okHandler(t, ""))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectionBodyIsJSONEnvelope(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(verifier)(okHandler(t, ""))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected application/json content type, got %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["error"] != "authorization header missing" {
		t.Fatalf("unexpected error message: %q", body["error"])
	}
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(verifier)(okHandler(t, ""))
	for _, header := range []string{"Bearer", "Basic abc", "Bearer  "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestMiddlewarePassesVerifiedUser(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(verifier)(okHandler(t, "user-42"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestOptionalMiddlewareAllowsAnonymous(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatal(err)
	}

	handler := OptionalMiddleware(verifier)(okHandler(t, ""))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous request, got %d", rec.Code)
	}
}

func TestOptionalMiddlewareAttachesUserWhenPresent(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatal(err)
	}

	handler := OptionalMiddleware(verifier)(okHandler(t, "user-7"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestNewVerifierUnknownMode(t *testing.T) {
	if _, err := NewVerifier(Config{Mode: "saml"}); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}
