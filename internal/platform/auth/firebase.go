package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/cardify/api/internal/platform/config"
)

const defaultAdminTimeout = 5 * time.Second

// ErrUserNotFound is returned by the admin lookups.
var ErrUserNotFound = errors.New("auth: user not found")

var errAdminUninitialised = errors.New("auth: firebase admin client not initialised")

// FirebaseAdmin wraps the Admin SDK auth client with bounded calls.
type FirebaseAdmin struct {
	client       *firebaseauth.Client
	timeout      time.Duration
	checkRevoked bool
}

// FirebaseOption customises FirebaseAdmin.
type FirebaseOption func(*FirebaseAdmin)

// WithAdminTimeout bounds each Admin SDK call.
func WithAdminTimeout(d time.Duration) FirebaseOption {
	return func(a *FirebaseAdmin) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRevocationCheck makes VerifyIDToken reject tokens issued before the
// last sign-out.
func WithRevocationCheck() FirebaseOption {
	return func(a *FirebaseAdmin) { a.checkRevoked = true }
}

// NewFirebaseAdmin initialises the Admin SDK for cfg.ProjectID.
func NewFirebaseAdmin(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*FirebaseAdmin, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("auth: firebase project id is required")
	}
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase auth client: %w", err)
	}
	a := &FirebaseAdmin{client: client, timeout: defaultAdminTimeout}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// VerifyIDToken implements TokenVerifier.
func (a *FirebaseAdmin) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if a == nil || a.client == nil {
		return nil, errAdminUninitialised
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if a.checkRevoked {
		return a.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	}
	return a.client.VerifyIDToken(ctx, idToken)
}

// GetUser loads a user record by uid.
func (a *FirebaseAdmin) GetUser(ctx context.Context, uid string) (*firebaseauth.UserRecord, error) {
	if a == nil || a.client == nil {
		return nil, errAdminUninitialised
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	user, err := a.client.GetUser(ctx, uid)
	return user, mapAdminError(err)
}

// GetUserByEmail loads a user record by email.
func (a *FirebaseAdmin) GetUserByEmail(ctx context.Context, email string) (*firebaseauth.UserRecord, error) {
	if a == nil || a.client == nil {
		return nil, errAdminUninitialised
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	user, err := a.client.GetUserByEmail(ctx, email)
	return user, mapAdminError(err)
}

// ProfileUpdate lists the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// UpdateProfile applies update to uid.
func (a *FirebaseAdmin) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*firebaseauth.UserRecord, error) {
	if a == nil || a.client == nil {
		return nil, errAdminUninitialised
	}
	params := &firebaseauth.UserToUpdate{}
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	user, err := a.client.UpdateUser(ctx, uid, params)
	return user, mapAdminError(err)
}

// RevokeRefreshTokens signs uid out of every session.
func (a *FirebaseAdmin) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if a == nil || a.client == nil {
		return errAdminUninitialised
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return mapAdminError(a.client.RevokeRefreshTokens(ctx, uid))
}

func mapAdminError(err error) error {
	if err != nil && firebaseauth.IsUserNotFound(err) {
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	}
	return err
}
