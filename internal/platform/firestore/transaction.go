package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	defaultTxAttempts = 5
	defaultTxTimeout  = 15 * time.Second
)

// TxFunc runs inside a transaction.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// TxOption customises RunTransaction.
type TxOption func(*txConfig)

type txConfig struct {
	attempts int
	timeout  time.Duration
}

// WithTxAttempts overrides the retry budget.
func WithTxAttempts(n int) TxOption {
	return func(c *txConfig) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// RunTransaction runs fn with retries and a bounded context. Errors returned
// by fn are passed through so callers can use sentinel values.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc, opts ...TxOption) error {
	if client == nil {
		return errors.New("firestore: client is nil")
	}
	cfg := txConfig{attempts: defaultTxAttempts, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > cfg.timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	var fnErr error
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = fn(ctx, tx)
		return fnErr
	}, firestore.MaxAttempts(cfg.attempts))
	if err != nil && fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return WrapError("transaction", err)
}
