package firestore

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/cardify/api/internal/domain"
	pfirestore "github.com/cardify/api/internal/platform/firestore"
	"github.com/cardify/api/internal/repositories"
)

const defaultFeedbackCollection = "feedback"

type feedbackDocument struct {
	OwnerID   string    `firestore:"ownerId"`
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email,omitempty"`
	Phone     string    `firestore:"phone,omitempty"`
	Rating    string    `firestore:"rating"`
	Comment   string    `firestore:"comment,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// FeedbackRepository appends feedback documents with ULID ids.
type FeedbackRepository struct {
	feedback *pfirestore.Collection[feedbackDocument]
	now      func() time.Time
	newID    func(time.Time) string
}

var _ repositories.FeedbackRepository = (*FeedbackRepository)(nil)

// NewFeedbackRepository constructs a Firestore-backed feedback repository.
func NewFeedbackRepository(provider *pfirestore.Provider, collection string) (*FeedbackRepository, error) {
	if provider == nil {
		return nil, errors.New("feedback repository requires firestore provider")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultFeedbackCollection
	}
	return &FeedbackRepository{
		feedback: pfirestore.NewCollection[feedbackDocument](provider, collection),
		now:      func() time.Time { return time.Now().UTC() },
		newID: func(t time.Time) string {
			return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
		},
	}, nil
}

// Insert stores fb under a fresh id and returns it with id and timestamp set.
func (r *FeedbackRepository) Insert(ctx context.Context, fb domain.Feedback) (domain.Feedback, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = r.now()
	}
	if fb.ID == "" {
		fb.ID = r.newID(fb.CreatedAt)
	}
	_, err := r.feedback.Create(ctx, fb.ID, feedbackDocument{
		OwnerID:   fb.OwnerID,
		Name:      fb.Name,
		Email:     fb.Email,
		Phone:     fb.Phone,
		Rating:    string(fb.Rating),
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
	})
	if err != nil {
		return domain.Feedback{}, err
	}
	return fb, nil
}
