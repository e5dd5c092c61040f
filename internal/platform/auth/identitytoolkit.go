package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// continueURI is required by createAuthUri and verifyAssertion even though
// no redirect happens server side.
const continueURI = "http://localhost"

var (
	// ErrIncorrectPassword covers a wrong password or unknown account.
	ErrIncorrectPassword = errors.New("incorrect current password")
	// ErrAccountDisabled is returned for disabled users.
	ErrAccountDisabled = errors.New("auth: account disabled")
	// ErrTooManyAttempts is the provider's brute-force lockout.
	ErrTooManyAttempts = errors.New("auth: too many attempts")
	// ErrWeakPassword rejects a new password below the provider minimum.
	ErrWeakPassword = errors.New("auth: weak password")
)

// SignInResult is the session the provider issued.
type SignInResult struct {
	UID          string        `json:"uid"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"displayName,omitempty"`
	PhotoURL     string        `json:"photoURL,omitempty"`
	IDToken      string        `json:"idToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresIn    time.Duration `json:"-"`
}

// IdentityToolkit performs the sign-in flows the Admin SDK does not cover.
type IdentityToolkit struct {
	svc *identitytoolkit.Service
}

// NewIdentityToolkit builds a client keyed by the project's web API key.
// Extra options are appended, which lets tests point at a local server.
func NewIdentityToolkit(ctx context.Context, apiKey string, opts ...option.ClientOption) (*IdentityToolkit, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("auth: identity toolkit api key is required")
	}
	svc, err := identitytoolkit.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("auth: identity toolkit: %w", err)
	}
	return &IdentityToolkit{svc: svc}, nil
}

// SignInWithPassword exchanges email and password for tokens.
func (t *IdentityToolkit) SignInWithPassword(ctx context.Context, email, password string) (SignInResult, error) {
	resp, err := t.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return SignInResult{}, mapToolkitError(err)
	}
	return SignInResult{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoUrl,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// SignInWithGoogle exchanges a Google id_token for Firebase tokens,
// creating the account on first use.
func (t *IdentityToolkit) SignInWithGoogle(ctx context.Context, googleIDToken string) (SignInResult, error) {
	resp, err := t.svc.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          "id_token=" + googleIDToken + "&providerId=google.com",
		RequestUri:        continueURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return SignInResult{}, mapToolkitError(err)
	}
	return SignInResult{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoUrl,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// EmailExists reports whether an account is registered for email.
func (t *IdentityToolkit) EmailExists(ctx context.Context, email string) (bool, error) {
	resp, err := t.svc.Relyingparty.CreateAuthUri(&identitytoolkit.IdentitytoolkitRelyingpartyCreateAuthUriRequest{
		Identifier:  email,
		ContinueUri: continueURI,
	}).Context(ctx).Do()
	if err != nil {
		return false, mapToolkitError(err)
	}
	return resp.Registered, nil
}

// ChangePassword re-authenticates with the current password and then sets
// the new one. A wrong current password yields ErrIncorrectPassword.
func (t *IdentityToolkit) ChangePassword(ctx context.Context, email, current, next string) error {
	session, err := t.SignInWithPassword(ctx, email, current)
	if err != nil {
		return err
	}
	_, err = t.svc.Relyingparty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:  session.IDToken,
		Password: next,
	}).Context(ctx).Do()
	if err != nil {
		return mapToolkitError(err)
	}
	return nil
}

func mapToolkitError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	code, _, _ := strings.Cut(gerr.Message, " ")
	switch code {
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "EMAIL_NOT_FOUND":
		return ErrIncorrectPassword
	case "USER_DISABLED":
		return ErrAccountDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrTooManyAttempts
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	}
	if gerr.Code == http.StatusBadRequest {
		return fmt.Errorf("auth: identity toolkit rejected request: %s", gerr.Message)
	}
	return fmt.Errorf("auth: identity toolkit: %w", err)
}
