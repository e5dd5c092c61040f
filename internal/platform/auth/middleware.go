package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/platform/requestctx"
)

const defaultVerifyTimeout = 5 * time.Second

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Authenticator turns bearer ID tokens into an Identity on the request.
type Authenticator struct {
	verifier TokenVerifier
	timeout  time.Duration
}

// Option customises Authenticator.
type Option func(*Authenticator)

// WithVerificationTimeout bounds token verification.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator builds an Authenticator around verifier.
func NewAuthenticator(verifier TokenVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{verifier: verifier, timeout: defaultVerifyTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Require rejects requests without a valid Firebase ID token.
func (a *Authenticator) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authorization header missing or invalid", http.StatusUnauthorized))
				return
			}
			if a == nil || a.verifier == nil {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authorization service unavailable", http.StatusUnauthorized))
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
			token, err := a.verifier.VerifyIDToken(ctx, raw)
			cancel()
			if err != nil {
				requestctx.Logger(r.Context()).Debug("id token rejected", zap.Error(err))
				httpx.WriteError(r.Context(), w, verificationError(err))
				return
			}

			identity := identityFromToken(token)
			logger := requestctx.Logger(r.Context()).With(zap.String("user_id", identity.UID))
			ctx = requestctx.WithLogger(WithIdentity(r.Context(), identity), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verificationError(err error) *httpx.Error {
	switch {
	case firebaseauth.IsIDTokenExpired(err):
		return httpx.NewError("token_expired", "firebase id token expired", http.StatusUnauthorized)
	case firebaseauth.IsIDTokenRevoked(err):
		return httpx.NewError("token_revoked", "firebase id token revoked", http.StatusUnauthorized)
	case firebaseauth.IsIDTokenInvalid(err):
		return httpx.NewError("invalid_token", "firebase id token invalid", http.StatusUnauthorized)
	}
	return httpx.NewError("invalid_token", "firebase id token verification failed", http.StatusUnauthorized)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
