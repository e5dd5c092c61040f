package services

import (
	"context"
	"encoding/json"

	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/export"
	"github.com/cardify/api/internal/platform/auth"
	"github.com/cardify/api/internal/platform/storage"
	"github.com/cardify/api/internal/session"
	"github.com/cardify/api/internal/templates"
	"github.com/cardify/api/internal/wizard"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	CardData     = domain.CardData
	StoredCard   = domain.StoredCard
	VCardDetails = domain.VCardDetails
	Feedback     = domain.Feedback
	UserProfile  = domain.UserProfile
	SignInResult = auth.SignInResult
	SignedURL    = storage.SignedURL

	SystemHealthReport = domain.SystemHealthReport
)

// EditorState is what the editor endpoints return.
type EditorState struct {
	Card        CardData
	DataVersion int64
	Step        wizard.Step
	Errors      map[string]string
	SavePending bool
	SaveError   string
}

// CardSource returns the caller's current card, including unsaved edits.
type CardSource interface {
	Current(ctx context.Context, uid string) (StoredCard, error)
}

// SessionSource also hands out the caller's editing session.
type SessionSource interface {
	CardSource
	Session(ctx context.Context, uid string) (*session.Session, error)
}

// EditorService owns per-user editing sessions.
type EditorService interface {
	SessionSource
	State(ctx context.Context, uid string) (EditorState, error)
	Replace(ctx context.Context, uid string, card CardData, expectedVersion int64) (EditorState, error)
	UpdateFields(ctx context.Context, uid string, fields map[string]json.RawMessage) (EditorState, error)
	Validate(ctx context.Context, uid string, step int) (EditorState, error)
	Next(ctx context.Context, uid string) (EditorState, error)
	Back(ctx context.Context, uid string) (EditorState, error)
	GoTo(ctx context.Context, uid string, step int) (EditorState, error)
	ApplyContactDetails(ctx context.Context, uid string, details VCardDetails) (EditorState, error)
	Close() error
}

// CardService derives artifacts from the current card.
type CardService interface {
	Templates(ctx context.Context) ([]templates.Entry, error)
	ContactRecord(ctx context.Context, uid string) (ContactRecord, error)
	QRCode(ctx context.Context, uid string, size int) (QRImage, error)
}

// ExportService produces PNG and PDF artifacts.
type ExportService interface {
	Export(ctx context.Context, cmd ExportCommand) (ExportOutput, error)
}

// AccountService covers sign-in and profile operations.
type AccountService interface {
	SignIn(ctx context.Context, email, password string) (SignInResult, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (SignInResult, error)
	SignOut(ctx context.Context, uid string) error
	EmailExists(ctx context.Context, email string) (bool, error)
	Profile(ctx context.Context, uid string) (UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, cmd UpdateProfileCommand) (UserProfile, error)
	ChangePassword(ctx context.Context, uid, current, next string) error
}

// UploadService stores user images.
type UploadService interface {
	Upload(ctx context.Context, uid, payload string) (UploadResult, error)
	export.GalleryAssetResolver
}

// FeedbackService records feedback and fans out notifications.
type FeedbackService interface {
	Submit(ctx context.Context, cmd FeedbackCommand) (Feedback, error)
}

// SystemService exposes health and readiness reporting.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	Ready(ctx context.Context) (SystemHealthReport, bool, error)
}
