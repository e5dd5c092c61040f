package services

import (
	"context"
	"sync"
	"time"

	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/repositories"
	"github.com/cardify/api/internal/session"
	"github.com/cardify/api/internal/wizard"
)

type memoryCardRepo struct {
	mu     sync.Mutex
	cards  map[string]domain.StoredCard
	sets   int
	getErr error
}

func newMemoryCardRepo() *memoryCardRepo {
	return &memoryCardRepo{cards: make(map[string]domain.StoredCard)}
}

func (r *memoryCardRepo) Get(_ context.Context, uid string) (domain.StoredCard, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.StoredCard{}, false, r.getErr
	}
	stored, ok := r.cards[uid]
	return stored, ok, nil
}

func (r *memoryCardRepo) Set(_ context.Context, uid string, card domain.CardData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.cards[uid]
	stored.OwnerID = uid
	stored.Card = card.Clone()
	r.cards[uid] = stored
	r.sets++
	return nil
}

func (r *memoryCardRepo) Replace(_ context.Context, uid string, card domain.CardData, expected int64) (domain.StoredCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.cards[uid]
	if stored.DataVersion != expected {
		return domain.StoredCard{}, repositories.ErrVersionConflict
	}
	stored = domain.StoredCard{OwnerID: uid, Card: card.Clone(), DataVersion: expected + 1}
	r.cards[uid] = stored
	return stored, nil
}

func (r *memoryCardRepo) stored(uid string) domain.StoredCard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cards[uid]
}

func (r *memoryCardRepo) setCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, fn func()) wizard.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

type staticCards struct {
	stored domain.StoredCard
	err    error
}

func (s staticCards) Current(context.Context, string) (StoredCard, error) {
	return s.stored, s.err
}

func (s staticCards) Session(_ context.Context, uid string) (*session.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return session.New(session.Identity{UID: uid}, s)
}

func (s staticCards) Get(context.Context, string) (StoredCard, bool, error) {
	return s.stored, true, s.err
}

func (s staticCards) Set(context.Context, string, CardData) error { return nil }

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryObjects) Put(_ context.Context, bucket, object, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := bucket + "/" + object
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func completeCard() domain.CardData {
	card := domain.DefaultCardData()
	card.CompanyName = "Acme"
	card.ContactPersonName = "Jane Doe"
	card.Designation = "Founder"
	card.Address = "1 Main St"
	card.ContactDetails[0].Phone = "98765 43210"
	return card
}
