package handlers

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// feedbackLimiter gives every user a token bucket of limit submissions that
// refills over window.
type feedbackLimiter struct {
	every  rate.Limit
	burst  int
	window time.Duration
	clock  func() time.Time

	mu    sync.Mutex
	users map[string]*userBucket
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newFeedbackLimiter returns nil when limit or window is non-positive, which
// disables limiting.
func newFeedbackLimiter(limit int, window time.Duration, clock func() time.Time) *feedbackLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &feedbackLimiter{
		every:  rate.Every(window / time.Duration(limit)),
		burst:  limit,
		window: window,
		clock:  clock,
		users:  make(map[string]*userBucket),
	}
}

// admit records a submission by uid. When the user is out of tokens it
// reports false and how long until the next one.
func (l *feedbackLimiter) admit(uid string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.users[uid]
	if !ok {
		l.dropIdleLocked(now)
		b = &userBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.users[uid] = b
	}
	b.lastSeen = now
	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// dropIdleLocked forgets users whose bucket has refilled completely.
func (l *feedbackLimiter) dropIdleLocked(now time.Time) {
	for uid, b := range l.users {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.users, uid)
		}
	}
}
