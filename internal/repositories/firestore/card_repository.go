package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/cardify/api/internal/domain"
	pfirestore "github.com/cardify/api/internal/platform/firestore"
	"github.com/cardify/api/internal/repositories"
)

const defaultCardCollection = "cards"

type cardDocument struct {
	Card        domain.CardData `firestore:"card"`
	DataVersion int64           `firestore:"dataVersion"`
	UpdatedAt   time.Time       `firestore:"updatedAt"`
}

// CardRepository persists one card document per user, keyed by uid.
type CardRepository struct {
	cards    *pfirestore.Collection[cardDocument]
	provider *pfirestore.Provider
	now      func() time.Time
}

var _ repositories.CardRepository = (*CardRepository)(nil)

// CardOption customises the card repository.
type CardOption func(*CardRepository)

// WithCardClock injects the clock used for updatedAt.
func WithCardClock(clock func() time.Time) CardOption {
	return func(r *CardRepository) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewCardRepository constructs a Firestore-backed card repository.
func NewCardRepository(provider *pfirestore.Provider, collection string, opts ...CardOption) (*CardRepository, error) {
	if provider == nil {
		return nil, errors.New("card repository requires firestore provider")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultCardCollection
	}
	r := &CardRepository{
		cards:    pfirestore.NewCollection[cardDocument](provider, collection),
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Get loads the user's card. found is false when the user never saved one.
func (r *CardRepository) Get(ctx context.Context, uid string) (domain.StoredCard, bool, error) {
	doc, err := r.cards.Get(ctx, uid)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return domain.StoredCard{}, false, nil
		}
		return domain.StoredCard{}, false, err
	}
	return toStoredCard(uid, doc), true, nil
}

// Set overwrites the card field only; dataVersion is left as stored.
func (r *CardRepository) Set(ctx context.Context, uid string, card domain.CardData) error {
	ref, err := r.cards.Ref(ctx, uid)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, map[string]any{
		"card":      card,
		"updatedAt": r.now(),
	}, firestore.Merge([]string{"card"}, []string{"updatedAt"}))
	return pfirestore.WrapError(r.cards.Name()+".set", err)
}

// Replace swaps the card inside a transaction when the stored dataVersion
// equals expected. A missing document counts as version zero.
func (r *CardRepository) Replace(ctx context.Context, uid string, card domain.CardData, expected int64) (domain.StoredCard, error) {
	ref, err := r.cards.Ref(ctx, uid)
	if err != nil {
		return domain.StoredCard{}, err
	}

	var saved cardDocument
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			doc, err := pfirestore.Decode[cardDocument](snap)
			if err != nil {
				return err
			}
			current = doc.Data.DataVersion
		case pfirestore.IsNotFound(pfirestore.WrapError("get", err)):
		default:
			return err
		}
		if current != expected {
			return repositories.ErrVersionConflict
		}
		saved = cardDocument{Card: card, DataVersion: current + 1, UpdatedAt: r.now()}
		return tx.Set(ref, saved)
	})
	if err != nil {
		return domain.StoredCard{}, err
	}
	return domain.StoredCard{
		OwnerID:     uid,
		Card:        saved.Card,
		DataVersion: saved.DataVersion,
		UpdatedAt:   saved.UpdatedAt,
	}, nil
}

func toStoredCard(uid string, doc pfirestore.Document[cardDocument]) domain.StoredCard {
	updated := doc.Data.UpdatedAt
	if updated.IsZero() {
		updated = doc.UpdateTime
	}
	return domain.StoredCard{
		OwnerID:     uid,
		Card:        doc.Data.Card,
		DataVersion: doc.Data.DataVersion,
		UpdatedAt:   updated,
	}
}
