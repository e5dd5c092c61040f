// Package session carries the signed-in identity and its card store explicitly.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/cardify/api/internal/domain"
)

var (
	// ErrNoIdentity is returned when a session is built without a user id.
	ErrNoIdentity = errors.New("session: identity is required")
	// ErrNoStore is returned when a session is built without a store.
	ErrNoStore = errors.New("session: store is required")
)

// Identity is the authenticated user a session acts for.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Store persists one card per user. Get reports found=false for users that
// never saved a card.
type Store interface {
	Get(ctx context.Context, uid string) (card domain.StoredCard, found bool, err error)
	Set(ctx context.Context, uid string, card domain.CardData) error
}

// Session binds an identity to its store.
type Session struct {
	Identity Identity
	Store    Store
}

// New validates and returns a session.
func New(identity Identity, store Store) (*Session, error) {
	identity.UID = strings.TrimSpace(identity.UID)
	if identity.UID == "" {
		return nil, ErrNoIdentity
	}
	if store == nil {
		return nil, ErrNoStore
	}
	return &Session{Identity: identity, Store: store}, nil
}

// UID returns the session user id.
func (s *Session) UID() string { return s.Identity.UID }

// Load returns the stored card, or defaults when none exists.
func (s *Session) Load(ctx context.Context) (domain.StoredCard, error) {
	stored, found, err := s.Store.Get(ctx, s.Identity.UID)
	if err != nil {
		return domain.StoredCard{}, err
	}
	if !found {
		return domain.StoredCard{OwnerID: s.Identity.UID, Card: domain.DefaultCardData()}, nil
	}
	stored.OwnerID = s.Identity.UID
	return stored, nil
}

// Save persists card for the session user.
func (s *Session) Save(ctx context.Context, card domain.CardData) error {
	return s.Store.Set(ctx, s.Identity.UID, card)
}
