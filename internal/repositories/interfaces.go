package repositories

import (
	"context"
	"errors"

	domain "github.com/cardify/api/internal/domain"
)

// ErrVersionConflict is returned by CardRepository.Replace when the stored
// dataVersion no longer matches the caller's.
var ErrVersionConflict = errors.New("card repository: stale data version")

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CardRepository stores one card per user. Get and Set satisfy session.Store;
// Set leaves the data version untouched.
type CardRepository interface {
	Get(ctx context.Context, uid string) (domain.StoredCard, bool, error)
	Set(ctx context.Context, uid string, card domain.CardData) error
	// Replace swaps the whole card if the stored version equals expected and
	// returns the card with its incremented version.
	Replace(ctx context.Context, uid string, card domain.CardData, expected int64) (domain.StoredCard, error)
}

// FeedbackRepository stores feedback submissions.
type FeedbackRepository interface {
	Insert(ctx context.Context, feedback domain.Feedback) (domain.Feedback, error)
}

// HealthRepository reports dependency health for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// IsNotFound reports whether err is a RepositoryError for a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a version or precondition conflict.
func IsConflict(err error) bool {
	if errors.Is(err, ErrVersionConflict) {
		return true
	}
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err is a transient backend failure.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
