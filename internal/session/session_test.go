package session

import (
	"context"
	"errors"
	"testing"

	"github.com/cardify/api/internal/domain"
)

type memoryStore struct {
	cards map[string]domain.CardData
	err   error
}

func (m *memoryStore) Get(_ context.Context, uid string) (domain.StoredCard, bool, error) {
	if m.err != nil {
		return domain.StoredCard{}, false, m.err
	}
	card, ok := m.cards[uid]
	return domain.StoredCard{Card: card}, ok, nil
}

func (m *memoryStore) Set(_ context.Context, uid string, card domain.CardData) error {
	if m.cards == nil {
		m.cards = map[string]domain.CardData{}
	}
	m.cards[uid] = card
	return nil
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Identity{UID: " "}, &memoryStore{}); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
	if _, err := New(Identity{UID: "u1"}, nil); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestLoadDefaultsAndSave(t *testing.T) {
	store := &memoryStore{}
	sess, err := New(Identity{UID: "u1"}, store)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	stored, err := sess.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.OwnerID != "u1" || stored.Card.Template != domain.DefaultTemplate {
		t.Fatalf("expected defaults, got %+v", stored)
	}

	card := domain.DefaultCardData()
	card.CompanyName = "Acme"
	if err := sess.Save(context.Background(), card); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, _ = sess.Load(context.Background())
	if stored.Card.CompanyName != "Acme" {
		t.Fatalf("expected saved card, got %+v", stored.Card)
	}

	store.err = errors.New("unavailable")
	if _, err := sess.Load(context.Background()); err == nil {
		t.Fatalf("expected store error")
	}
}
