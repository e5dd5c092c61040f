package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/notifications"
	"github.com/cardify/api/internal/repositories"
)

// ErrFeedbackInvalidInput indicates an unknown rating or oversized comment.
var ErrFeedbackInvalidInput = errors.New("feedback: invalid input")

const maxFeedbackComment = 2000

// FeedbackCommand is one feedback submission.
type FeedbackCommand struct {
	UID     string
	Name    string
	Email   string
	Rating  string
	Comment string
}

// FeedbackServiceDeps wires dependencies for the feedback service.
type FeedbackServiceDeps struct {
	Feedback   repositories.FeedbackRepository
	Cards      CardSource
	Notifier   notifications.Notifier
	Recipients notifications.Recipients
	Clock      func() time.Time
	Logger     *zap.Logger
}

type feedbackService struct {
	feedback   repositories.FeedbackRepository
	cards      CardSource
	notifier   notifications.Notifier
	recipients notifications.Recipients
	clock      func() time.Time
	logger     *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(deps FeedbackServiceDeps) (FeedbackService, error) {
	if deps.Feedback == nil {
		return nil, errors.New("feedback service: feedback repository is required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feedbackService{
		feedback:   deps.Feedback,
		cards:      deps.Cards,
		notifier:   notifier,
		recipients: deps.Recipients,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

// Submit stores the feedback and then notifies. Notification failures are
// logged and never fail the submission.
func (s *feedbackService) Submit(ctx context.Context, cmd FeedbackCommand) (Feedback, error) {
	rating := domain.Rating(strings.ToLower(strings.TrimSpace(cmd.Rating)))
	if !rating.IsValid() {
		return Feedback{}, fmt.Errorf("%w: unknown rating %q", ErrFeedbackInvalidInput, cmd.Rating)
	}
	comment := strings.TrimSpace(cmd.Comment)
	if utf8.RuneCountInString(comment) > maxFeedbackComment {
		return Feedback{}, fmt.Errorf("%w: comment exceeds %d characters", ErrFeedbackInvalidInput, maxFeedbackComment)
	}

	var card CardData
	if s.cards != nil {
		stored, err := s.cards.Current(ctx, cmd.UID)
		if err != nil {
			s.logger.Warn("feedback: load card", zap.String("uid", cmd.UID), zap.Error(err))
		} else {
			card = stored.Card
		}
	}

	fb, err := s.feedback.Insert(ctx, Feedback{
		OwnerID:   strings.TrimSpace(cmd.UID),
		Name:      strings.TrimSpace(cmd.Name),
		Email:     strings.TrimSpace(cmd.Email),
		Phone:     ownerPhoneOf(card),
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.clock(),
	})
	if err != nil {
		return Feedback{}, err
	}

	jobs, err := notifications.FeedbackJobs(fb, card, s.recipients, fb.CreatedAt)
	if err != nil {
		s.logger.Warn("feedback: build notifications", zap.String("feedback_id", fb.ID), zap.Error(err))
		return fb, nil
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), jobs...); err != nil {
		s.logger.Warn("feedback: notify", zap.String("feedback_id", fb.ID), zap.Int("jobs", len(jobs)), zap.Error(err))
	}
	return fb, nil
}

func ownerPhoneOf(card CardData) string {
	if len(card.ContactDetails) == 0 || card.ContactDetails[0].Phone == "" {
		return ""
	}
	return strings.TrimSpace(card.ContactDetails[0].CountryCode + " " + card.ContactDetails[0].Phone)
}
