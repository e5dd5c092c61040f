package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/cardify/api/internal/platform/auth"
)

var (
	// ErrAccountInvalidInput indicates the caller provided invalid arguments.
	ErrAccountInvalidInput = errors.New("account: invalid input")
	// ErrAccountNotFound indicates the user record does not exist.
	ErrAccountNotFound = errors.New("account: not found")
)

const minPasswordLength = 6

// IdentityAdmin is the privileged identity-provider surface.
type IdentityAdmin interface {
	GetUser(ctx context.Context, uid string) (*firebaseauth.UserRecord, error)
	UpdateProfile(ctx context.Context, uid string, update auth.ProfileUpdate) (*firebaseauth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// PasswordProvider performs end-user sign-in flows.
type PasswordProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (auth.SignInResult, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (auth.SignInResult, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ChangePassword(ctx context.Context, email, current, next string) error
}

// UpdateProfileCommand lists profile changes. PhotoUpload, when set, is an
// image payload stored through the upload service and used as the photo URL.
type UpdateProfileCommand struct {
	DisplayName *string
	PhotoURL    *string
	PhotoUpload string
}

// AccountServiceDeps wires dependencies for the account service.
type AccountServiceDeps struct {
	Admin     IdentityAdmin
	Passwords PasswordProvider
	Uploads   UploadService
}

type accountService struct {
	admin     IdentityAdmin
	passwords PasswordProvider
	uploads   UploadService
}

// NewAccountService constructs an AccountService.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.Admin == nil {
		return nil, errors.New("account service: identity admin is required")
	}
	if deps.Passwords == nil {
		return nil, errors.New("account service: password provider is required")
	}
	return &accountService{admin: deps.Admin, passwords: deps.Passwords, uploads: deps.Uploads}, nil
}

func (s *accountService) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return SignInResult{}, fmt.Errorf("%w: email and password are required", ErrAccountInvalidInput)
	}
	return s.passwords.SignInWithPassword(ctx, email, password)
}

func (s *accountService) SignInWithGoogle(ctx context.Context, googleIDToken string) (SignInResult, error) {
	if strings.TrimSpace(googleIDToken) == "" {
		return SignInResult{}, fmt.Errorf("%w: id token is required", ErrAccountInvalidInput)
	}
	return s.passwords.SignInWithGoogle(ctx, strings.TrimSpace(googleIDToken))
}

// SignOut revokes every refresh token of uid. Outstanding ID tokens are
// rejected by the revocation-checking verifier.
func (s *accountService) SignOut(ctx context.Context, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("%w: uid is required", ErrAccountInvalidInput)
	}
	return s.mapError(s.admin.RevokeRefreshTokens(ctx, uid))
}

func (s *accountService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, fmt.Errorf("%w: email is required", ErrAccountInvalidInput)
	}
	return s.passwords.EmailExists(ctx, email)
}

func (s *accountService) Profile(ctx context.Context, uid string) (UserProfile, error) {
	rec, err := s.admin.GetUser(ctx, uid)
	if err != nil {
		return UserProfile{}, s.mapError(err)
	}
	return toProfile(rec), nil
}

func (s *accountService) UpdateProfile(ctx context.Context, uid string, cmd UpdateProfileCommand) (UserProfile, error) {
	update := auth.ProfileUpdate{DisplayName: trimmedPtr(cmd.DisplayName), PhotoURL: trimmedPtr(cmd.PhotoURL)}
	if cmd.PhotoUpload != "" {
		if s.uploads == nil {
			return UserProfile{}, fmt.Errorf("%w: photo uploads are not enabled", ErrAccountInvalidInput)
		}
		uploaded, err := s.uploads.Upload(ctx, uid, cmd.PhotoUpload)
		if err != nil {
			return UserProfile{}, err
		}
		update.PhotoURL = &uploaded.URL
	}
	if update.DisplayName == nil && update.PhotoURL == nil {
		return UserProfile{}, fmt.Errorf("%w: nothing to update", ErrAccountInvalidInput)
	}
	rec, err := s.admin.UpdateProfile(ctx, uid, update)
	if err != nil {
		return UserProfile{}, s.mapError(err)
	}
	return toProfile(rec), nil
}

// ChangePassword re-authenticates with current before setting next.
func (s *accountService) ChangePassword(ctx context.Context, uid, current, next string) error {
	if current == "" || len(next) < minPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", ErrAccountInvalidInput, minPasswordLength)
	}
	rec, err := s.admin.GetUser(ctx, uid)
	if err != nil {
		return s.mapError(err)
	}
	email := ""
	if rec.UserInfo != nil {
		email = rec.Email
	}
	if email == "" {
		return fmt.Errorf("%w: account has no password sign-in", ErrAccountInvalidInput)
	}
	return s.passwords.ChangePassword(ctx, email, current, next)
}

func (s *accountService) mapError(err error) error {
	if errors.Is(err, auth.ErrUserNotFound) {
		return fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	}
	return err
}

func toProfile(rec *firebaseauth.UserRecord) UserProfile {
	if rec == nil || rec.UserInfo == nil {
		return UserProfile{}
	}
	profile := UserProfile{
		UID:           rec.UID,
		Email:         rec.Email,
		DisplayName:   rec.DisplayName,
		PhotoURL:      rec.PhotoURL,
		EmailVerified: rec.EmailVerified,
	}
	for _, info := range rec.ProviderUserInfo {
		if info != nil && info.ProviderID != "" {
			profile.Providers = append(profile.Providers, info.ProviderID)
		}
	}
	return profile
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
