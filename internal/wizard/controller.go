package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardify/api/internal/cardschema"
	"github.com/cardify/api/internal/contact"
	"github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/session"
)

const defaultSaveTimeout = 10 * time.Second

// ErrInvalidStep is returned by GoTo for steps outside the wizard.
var ErrInvalidStep = errors.New("wizard: invalid step")

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("wizard: closed")

// Option customises a Controller.
type Option func(*Controller)

// WithSaveDelay overrides the debounce window.
func WithSaveDelay(d time.Duration) Option {
	return func(c *Controller) { c.saveDelay = d }
}

// WithAfterFunc injects the debounce scheduler.
func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = f }
}

// WithSaveTimeout bounds each store write.
func WithSaveTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.saveTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the in-memory card for one editing session. It is the only
// writer; everything else reads snapshots.
type Controller struct {
	sess        *session.Session
	saveDelay   time.Duration
	afterFunc   AfterFunc
	saveTimeout time.Duration
	logger      *zap.Logger
	debouncer   *Debouncer

	mu          sync.Mutex
	card        domain.CardData
	version     int64
	step        Step
	lastErrors  *cardschema.Result
	lastSaveErr error
	closed      bool
}

// NewController starts a controller from a stored card.
func NewController(sess *session.Session, initial domain.StoredCard, opts ...Option) (*Controller, error) {
	if sess == nil {
		return nil, errors.New("wizard: session is required")
	}
	c := &Controller{
		sess:        sess,
		saveTimeout: defaultSaveTimeout,
		logger:      zap.NewNop(),
		card:        initial.Card.Clone(),
		version:     initial.DataVersion,
		step:        FirstStep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.debouncer = NewDebouncer(c.saveDelay, c.afterFunc)
	return c, nil
}

// Session returns the session the controller edits for.
func (c *Controller) Session() *session.Session { return c.sess }

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	Card          domain.CardData
	DataVersion   int64
	Step          Step
	Errors        *cardschema.Result
	LastSaveError error
	SavePending   bool
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Card:          c.card.Clone(),
		DataVersion:   c.version,
		Step:          c.step,
		Errors:        c.lastErrors,
		LastSaveError: c.lastSaveErr,
		SavePending:   c.debouncer.Pending(),
	}
}

// Card returns a copy of the current card.
func (c *Controller) Card() domain.CardData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.card.Clone()
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// DataVersion increments whenever the card is replaced wholesale.
func (c *Controller) DataVersion() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// LastSaveError returns the most recent store failure, cleared on success.
func (c *Controller) LastSaveError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaveErr
}

// Update applies an edit and schedules a debounced save. Edits are never
// rejected; validation only gates step changes.
func (c *Controller) Update(mutate func(*domain.CardData)) (domain.CardData, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.CardData{}, ErrClosed
	}
	next := c.card.Clone()
	if mutate != nil {
		mutate(&next)
	}
	c.card = next
	out := next.Clone()
	c.mu.Unlock()

	c.scheduleSave()
	return out, nil
}

// Next validates the current step and advances. On failure the step is
// unchanged and the error is a *cardschema.Result.
func (c *Controller) Next() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.validateLocked(c.step); err != nil {
		return c.step, err
	}
	if c.step < LastStep {
		c.step++
	}
	return c.step, nil
}

// Back moves one step back without validation.
func (c *Controller) Back() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step > FirstStep {
		c.step--
	}
	c.lastErrors = nil
	return c.step
}

// GoTo jumps to target. Moving forward validates every step passed through
// and stops at the first one that fails.
func (c *Controller) GoTo(target Step) (Step, error) {
	if !target.Valid() {
		return c.Step(), fmt.Errorf("%w: %d", ErrInvalidStep, int(target))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if target <= c.step {
		c.step = target
		c.lastErrors = nil
		return c.step, nil
	}
	for c.step < target {
		if err := c.validateLocked(c.step); err != nil {
			return c.step, err
		}
		c.step++
	}
	return c.step, nil
}

// ValidateStep checks one step's fields without moving.
func (c *Controller) ValidateStep(s Step) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, int(s))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked(s)
}

// Validate runs the finalize checks over the whole card.
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := cardschema.Validate(c.card)
	c.recordLocked(err)
	return err
}

func (c *Controller) validateLocked(s Step) error {
	fields := s.Fields()
	if len(fields) == 0 {
		c.lastErrors = nil
		return nil
	}
	err := cardschema.ValidateFields(c.card, fields...)
	c.recordLocked(err)
	return err
}

func (c *Controller) recordLocked(err error) {
	if res, ok := cardschema.AsResult(err); ok {
		c.lastErrors = res
		return
	}
	c.lastErrors = nil
}

// Reload replaces the buffer with a card from outside the editor. Any
// pending write of the old buffer is dropped.
func (c *Controller) Reload(card domain.CardData) int64 {
	c.debouncer.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.card = card.Clone()
	c.version++
	c.lastErrors = nil
	return c.version
}

// ApplyContactDetails copies contact-record fields into the card, bumps
// the data version, and schedules a save of the result.
func (c *Controller) ApplyContactDetails(details domain.VCardDetails) (domain.CardData, int64, error) {
	c.debouncer.Cancel()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.CardData{}, 0, ErrClosed
	}
	c.card = contact.Apply(c.card, details)
	c.version++
	out, version := c.card.Clone(), c.version
	c.mu.Unlock()

	c.scheduleSave()
	return out, version, nil
}

// Flush writes any pending edit now.
func (c *Controller) Flush() error {
	if !c.debouncer.Flush() {
		return nil
	}
	return c.LastSaveError()
}

// Close flushes pending edits and stops scheduling further writes.
func (c *Controller) Close() error {
	err := c.Flush()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.debouncer.Cancel()
	return err
}

func (c *Controller) scheduleSave() {
	c.debouncer.Schedule(c.save)
}

func (c *Controller) save() {
	c.mu.Lock()
	card := c.card.Clone()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()
	err := c.sess.Save(ctx, card)

	c.mu.Lock()
	c.lastSaveErr = err
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("wizard: save card", zap.String("uid", c.sess.UID()), zap.Error(err))
	}
}
