package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestRequireAllowsValidToken(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{
		UID: "uid-123",
		Claims: map[string]interface{}{
			"email":          "user@example.com",
			"email_verified": true,
			"name":           "Jane Doe",
		},
		Firebase: firebaseauth.FirebaseInfo{SignInProvider: "password"},
	}}

	var got *Identity
	handler := NewAuthenticator(verifier).Require()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me/card", nil)
	req.Header.Set("Authorization", "Bearer token-value")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if verifier.received != "token-value" {
		t.Fatalf("verifier received %q", verifier.received)
	}
	if got == nil || got.UID != "uid-123" || got.Email != "user@example.com" || !got.EmailVerified || got.Name != "Jane Doe" || got.Provider != "password" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if got.Token() == nil {
		t.Fatalf("expected token on identity")
	}
}

func TestRequireRejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
		code   string
	}{
		{name: "missing header", header: "", code: "unauthenticated"},
		{name: "wrong scheme", header: "Basic abc", code: "unauthenticated"},
		{name: "empty token", header: "Bearer   ", code: "unauthenticated"},
		{name: "verification failure", header: "Bearer bad", err: errors.New("boom"), code: "invalid_token"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			verifier := &stubTokenVerifier{err: tc.err, token: &firebaseauth.Token{UID: "x"}}
			called := false
			handler := NewAuthenticator(verifier).Require()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called {
				t.Fatalf("handler should not run")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, body["error"])
			}
		})
	}
}

func TestRequireWithoutVerifier(t *testing.T) {
	handler := NewAuthenticator(nil).Require()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
