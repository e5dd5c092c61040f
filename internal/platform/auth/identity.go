// Package auth verifies Firebase ID tokens and Google-signed push tokens
// and talks to the Identity Toolkit for password and federated sign-in.
package auth

import (
	"context"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// Identity is the authenticated end user behind a request.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Provider      string

	token *firebaseauth.Token
}

// Token exposes the decoded ID token.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

type identityKey struct{}

// WithIdentity stores identity on ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity set by the middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

func identityFromToken(token *firebaseauth.Token) *Identity {
	id := &Identity{
		UID:           token.UID,
		Email:         claimString(token.Claims, "email"),
		EmailVerified: claimBool(token.Claims, "email_verified"),
		Name:          claimString(token.Claims, "name"),
		Picture:       claimString(token.Claims, "picture"),
		Provider:      token.Firebase.SignInProvider,
		token:         token,
	}
	return id
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}

func claimBool(claims map[string]interface{}, key string) bool {
	v, _ := claims[key].(bool)
	return v
}
