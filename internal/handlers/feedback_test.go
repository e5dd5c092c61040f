package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardify/api/internal/services"
)

func newFeedbackRouter(h *FeedbackHandlers) chi.Router {
	r := chi.NewRouter()
	r.Route("/me", h.Routes)
	return r
}

func TestFeedbackHandlersSubmit(t *testing.T) {
	feedback := &stubFeedback{}
	router := newFeedbackRouter(NewFeedbackHandlers(feedback))

	rr := serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"rating":"good","comment":"Nice cards"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["id"] != "fb-1" || body["rating"] != "good" {
		t.Fatalf("unexpected body %v", body)
	}
	if len(feedback.cmds) != 1 {
		t.Fatalf("expected one submission, got %d", len(feedback.cmds))
	}
	cmd := feedback.cmds[0]
	if cmd.UID != "user-1" || cmd.Name != "Jane Doe" || cmd.Email != "jane@acme.io" {
		t.Fatalf("expected identity defaults, got %+v", cmd)
	}
}

func TestFeedbackHandlersExplicitContact(t *testing.T) {
	feedback := &stubFeedback{}
	router := newFeedbackRouter(NewFeedbackHandlers(feedback))

	rr := serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"name":"J. Doe","email":"j@doe.dev","rating":"average"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if cmd := feedback.cmds[0]; cmd.Name != "J. Doe" || cmd.Email != "j@doe.dev" {
		t.Fatalf("explicit contact overwritten: %+v", cmd)
	}
}

func TestFeedbackHandlersValidation(t *testing.T) {
	feedback := &stubFeedback{}
	router := newFeedbackRouter(NewFeedbackHandlers(feedback))

	rr := serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"comment":"no rating"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without rating, got %d", rr.Code)
	}

	feedback.err = fmt.Errorf("%w: unknown rating", services.ErrFeedbackInvalidInput)
	rr = serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"rating":"superb"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown rating, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "invalid_request" {
		t.Fatalf("expected invalid_request, got %v", body["error"])
	}
}

func TestFeedbackHandlersRateLimit(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	router := newFeedbackRouter(NewFeedbackHandlers(&stubFeedback{},
		WithFeedbackRateLimit(1, time.Hour),
		WithFeedbackClock(clock),
	))

	rr := serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"rating":"good"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected first submission to pass, got %d", rr.Code)
	}
	rr = serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"rating":"good"}`))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error"] != "rate_limited" {
		t.Fatalf("expected rate_limited, got %v", body["error"])
	}
	if got := rr.Header().Get("Retry-After"); got != "3600" {
		t.Fatalf("expected Retry-After 3600, got %q", got)
	}

	now = now.Add(time.Hour + time.Second)
	rr = serve(router, authedRequest(http.MethodPost, "/me/feedback", `{"rating":"good"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected window reset, got %d", rr.Code)
	}
}

func TestFeedbackLimiterTracksUsersSeparately(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := newFeedbackLimiter(2, time.Minute, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if ok, _ := l.admit("user-1"); !ok {
			t.Fatalf("submission %d should be admitted", i+1)
		}
	}
	now = now.Add(10 * time.Second)
	ok, retry := l.admit("user-1")
	if ok || retry < 20*time.Second-time.Millisecond || retry > 20*time.Second+time.Millisecond {
		t.Fatalf("expected refusal with 20s retry, got ok=%v retry=%s", ok, retry)
	}
	if ok, _ := l.admit("user-2"); !ok {
		t.Fatalf("other users keep their own bucket")
	}

	now = now.Add(21 * time.Second)
	if ok, _ := l.admit("user-1"); !ok {
		t.Fatalf("a token should have refilled")
	}
	if ok, _ := l.admit("user-1"); ok {
		t.Fatalf("only one token should have refilled")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.admit("user-3"); !ok {
		t.Fatalf("new user should be admitted")
	}
	if len(l.users) != 1 {
		t.Fatalf("idle buckets should be dropped, got %v", l.users)
	}
}

func TestFeedbackLimiterDisabled(t *testing.T) {
	if l := newFeedbackLimiter(0, time.Minute, time.Now); l != nil {
		t.Fatalf("non-positive limit should disable limiting")
	}
	var l *feedbackLimiter
	if ok, _ := l.admit("user-1"); !ok {
		t.Fatalf("nil limiter admits everything")
	}
}
