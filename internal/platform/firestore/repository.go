package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Document is a decoded snapshot with its timestamps.
type Document[T any] struct {
	ID         string
	Data       T
	CreateTime time.Time
	UpdateTime time.Time
}

// Collection gives typed access to one Firestore collection.
type Collection[T any] struct {
	provider *Provider
	name     string
}

// NewCollection binds a typed collection.
func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Ref returns the document reference for id.
func (c *Collection[T]) Ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(c.op("doc"), errors.New("firestore: document id is required"))
	}
	if c.provider == nil || c.name == "" {
		return nil, WrapError(c.op("doc"), errors.New("firestore: collection not configured"))
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name).Doc(id), nil
}

// Get loads and decodes id.
func (c *Collection[T]) Get(ctx context.Context, id string) (Document[T], error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(c.op("get"), err)
	}
	return Decode[T](snap)
}

// Set upserts value under id.
func (c *Collection[T]) Set(ctx context.Context, id string, value T) (time.Time, error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	res, err := ref.Set(ctx, value)
	if err != nil {
		return time.Time{}, WrapError(c.op("set"), err)
	}
	return res.UpdateTime, nil
}

// Create writes value under id, failing if it exists.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) (time.Time, error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	res, err := ref.Create(ctx, value)
	if err != nil {
		return time.Time{}, WrapError(c.op("create"), err)
	}
	return res.UpdateTime, nil
}

// Query runs build against the collection and decodes every match.
func (c *Collection[T]) Query(ctx context.Context, build func(firestore.Query) firestore.Query) ([]Document[T], error) {
	if c.provider == nil || c.name == "" {
		return nil, WrapError(c.op("query"), errors.New("firestore: collection not configured"))
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	q := client.Collection(c.name).Query
	if build != nil {
		q = build(q)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Document[T]
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, WrapError(c.op("query"), err)
		}
		doc, err := Decode[T](snap)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
}

// Decode converts a snapshot into a typed document.
func Decode[T any](snap *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("firestore: decode %s: %w", snap.Ref.ID, err)
	}
	return Document[T]{ID: snap.Ref.ID, Data: data, CreateTime: snap.CreateTime, UpdateTime: snap.UpdateTime}, nil
}

func (c *Collection[T]) op(action string) string {
	return c.name + "." + action
}
