package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/services"
)

const (
	defaultFeedbackLimit  = 5
	defaultFeedbackWindow = time.Hour
)

// FeedbackHandlers accepts feedback from the post-export prompt.
type FeedbackHandlers struct {
	feedback services.FeedbackService
	limiter  *feedbackLimiter
	clock    func() time.Time
}

// FeedbackOption customises FeedbackHandlers.
type FeedbackOption func(*FeedbackHandlers)

// WithFeedbackRateLimit bounds submissions per user. A non-positive limit disables limiting.
func WithFeedbackRateLimit(limit int, window time.Duration) FeedbackOption {
	return func(h *FeedbackHandlers) {
		h.limiter = newFeedbackLimiter(limit, window, h.now)
	}
}

// WithFeedbackClock overrides the clock used by the rate limiter.
func WithFeedbackClock(clock func() time.Time) FeedbackOption {
	return func(h *FeedbackHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewFeedbackHandlers constructs the feedback endpoint.
func NewFeedbackHandlers(feedback services.FeedbackService, opts ...FeedbackOption) *FeedbackHandlers {
	h := &FeedbackHandlers{feedback: feedback, clock: time.Now}
	h.limiter = newFeedbackLimiter(defaultFeedbackLimit, defaultFeedbackWindow, h.now)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *FeedbackHandlers) now() time.Time { return h.clock() }

// Routes wires POST /me/feedback.
func (h *FeedbackHandlers) Routes(r chi.Router) {
	r.Post("/feedback", h.submit)
}

type feedbackRequest struct {
	Name    string `json:"name" validate:"omitempty,max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Rating  string `json:"rating" validate:"required"`
	Comment string `json:"comment"`
}

type feedbackPayload struct {
	ID        string    `json:"id"`
	Rating    string    `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *FeedbackHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.feedback == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	if ok, retryAfter := h.limiter.admit(identity.UID); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many feedback submissions", http.StatusTooManyRequests))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = identity.Name
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = identity.Email
	}
	fb, err := h.feedback.Submit(ctx, services.FeedbackCommand{
		UID:     identity.UID,
		Name:    name,
		Email:   email,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, feedbackPayload{
		ID:        fb.ID,
		Rating:    string(fb.Rating),
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
	})
}
