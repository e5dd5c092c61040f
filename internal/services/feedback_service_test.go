package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/notifications"
)

type memoryFeedbackRepo struct {
	saved []domain.Feedback
	err   error
}

func (r *memoryFeedbackRepo) Insert(_ context.Context, fb domain.Feedback) (domain.Feedback, error) {
	if r.err != nil {
		return domain.Feedback{}, r.err
	}
	fb.ID = "fb-1"
	r.saved = append(r.saved, fb)
	return fb, nil
}

type recordingNotifier struct {
	jobs []notifications.Job
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, jobs ...notifications.Job) error {
	n.jobs = append(n.jobs, jobs...)
	return n.err
}

func feedbackFixture(t *testing.T, notifier notifications.Notifier) (FeedbackService, *memoryFeedbackRepo) {
	t.Helper()
	repo := &memoryFeedbackRepo{}
	card := completeCard()
	svc, err := NewFeedbackService(FeedbackServiceDeps{
		Feedback: repo,
		Cards:    staticCards{stored: domain.StoredCard{OwnerID: "u1", Card: card}},
		Notifier: notifier,
		Recipients: notifications.Recipients{
			EmailTemplate: "feedback",
			AdminEmail:    "admin@cardify.app",
			AdminPhone:    "+15550100",
		},
		Clock: func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewFeedbackService: %v", err)
	}
	return svc, repo
}

func TestFeedbackSubmitStoresAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, repo := feedbackFixture(t, notifier)

	fb, err := svc.Submit(context.Background(), FeedbackCommand{UID: "u1", Name: "Jane", Email: "jane@acme.io", Rating: "Awesome", Comment: " Great "})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if fb.ID != "fb-1" || fb.Rating != domain.RatingAwesome || fb.Comment != "Great" {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if len(repo.saved) != 1 || repo.saved[0].Phone != "+91 98765 43210" {
		t.Fatalf("unexpected stored feedback %+v", repo.saved)
	}
	if len(notifier.jobs) != 3 {
		t.Fatalf("expected admin email, admin text and thank-you text, got %d jobs", len(notifier.jobs))
	}
}

func TestFeedbackSubmitIgnoresNotifyFailure(t *testing.T) {
	svc, repo := feedbackFixture(t, &recordingNotifier{err: errors.New("smtp down")})
	if _, err := svc.Submit(context.Background(), FeedbackCommand{UID: "u1", Rating: "happy"}); err != nil {
		t.Fatalf("notify failure must not fail submit, got %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected feedback to be stored")
	}
}

func TestFeedbackSubmitValidates(t *testing.T) {
	svc, repo := feedbackFixture(t, nil)
	if _, err := svc.Submit(context.Background(), FeedbackCommand{UID: "u1", Rating: "meh"}); !errors.Is(err, ErrFeedbackInvalidInput) {
		t.Fatalf("expected invalid rating, got %v", err)
	}
	long := make([]rune, maxFeedbackComment+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := svc.Submit(context.Background(), FeedbackCommand{UID: "u1", Rating: "happy", Comment: string(long)}); !errors.Is(err, ErrFeedbackInvalidInput) {
		t.Fatalf("expected oversized comment, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatalf("invalid feedback must not be stored")
	}
}

func TestFeedbackSubmitReturnsStoreError(t *testing.T) {
	svc, repo := feedbackFixture(t, nil)
	repo.err = errors.New("firestore unavailable")
	if _, err := svc.Submit(context.Background(), FeedbackCommand{UID: "u1", Rating: "neutral"}); err == nil {
		t.Fatalf("expected store error")
	}
}
