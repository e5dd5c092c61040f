package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Emailer sends one templated email and returns the provider message id.
type Emailer interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// Texter sends one text message and returns the provider message id.
type Texter interface {
	SendText(ctx context.Context, msg TextMessage) (string, error)
}

// Publisher enqueues a job for asynchronous delivery.
type Publisher interface {
	PublishNotification(ctx context.Context, job Job) (string, error)
}

// Notifier accepts jobs on behalf of a triggering action.
type Notifier interface {
	Notify(ctx context.Context, jobs ...Job) error
}

// ErrChannelDisabled is returned when a job targets a channel without a sender.
var ErrChannelDisabled = errors.New("notifications: channel not configured")

// Deliverer sends jobs over the configured channels.
type Deliverer struct {
	email  Emailer
	text   Texter
	logger *zap.Logger
}

// DelivererOption customises a Deliverer.
type DelivererOption func(*Deliverer)

// WithEmailer enables the email channel.
func WithEmailer(e Emailer) DelivererOption {
	return func(d *Deliverer) { d.email = e }
}

// WithTexter enables the text channel.
func WithTexter(t Texter) DelivererOption {
	return func(d *Deliverer) { d.text = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) DelivererOption {
	return func(d *Deliverer) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDeliverer returns a Deliverer. Channels without a sender reject jobs.
func NewDeliverer(opts ...DelivererOption) *Deliverer {
	d := &Deliverer{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Deliver sends a single job.
func (d *Deliverer) Deliver(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	var (
		id  string
		err error
	)
	switch job.Kind {
	case KindEmail:
		if d.email == nil {
			return fmt.Errorf("%w: %s", ErrChannelDisabled, job.Kind)
		}
		id, err = d.email.SendEmail(ctx, *job.Email)
	case KindText:
		if d.text == nil {
			return fmt.Errorf("%w: %s", ErrChannelDisabled, job.Kind)
		}
		id, err = d.text.SendText(ctx, *job.Text)
	}
	if err != nil {
		return fmt.Errorf("deliver %s: %w", job.ID, err)
	}
	d.logger.Info("notification delivered",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("topic", job.Topic),
		zap.String("message_id", id))
	return nil
}

// Notify delivers every job and returns the combined failures.
func (d *Deliverer) Notify(ctx context.Context, jobs ...Job) error {
	var errs error
	for _, job := range jobs {
		errs = multierr.Append(errs, d.Deliver(ctx, job))
	}
	return errs
}

// QueueNotifier publishes jobs for the notifier worker.
type QueueNotifier struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewQueueNotifier wraps a Publisher.
func NewQueueNotifier(p Publisher, logger *zap.Logger) (*QueueNotifier, error) {
	if p == nil {
		return nil, errors.New("notifications: publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueNotifier{publisher: p, logger: logger}, nil
}

// Notify enqueues every valid job and returns the combined failures.
func (q *QueueNotifier) Notify(ctx context.Context, jobs ...Job) error {
	var errs error
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		id, err := q.publisher.PublishNotification(ctx, job)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("enqueue %s: %w", job.ID, err))
			continue
		}
		q.logger.Debug("notification queued", zap.String("job_id", job.ID), zap.String("message_id", id))
	}
	return errs
}

// Discard drops every job. It backs the disabled mode.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, ...Job) error { return nil }
