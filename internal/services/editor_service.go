package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/cardschema"
	"github.com/cardify/api/internal/repositories"
	"github.com/cardify/api/internal/session"
	"github.com/cardify/api/internal/wizard"
)

var (
	// ErrEditorInvalidInput indicates the caller provided invalid arguments.
	ErrEditorInvalidInput = errors.New("editor: invalid input")
	// ErrEditorConflict indicates the caller's dataVersion is stale.
	ErrEditorConflict = errors.New("editor: stale data version")
	// ErrEditorUnavailable signals that the card store is unavailable.
	ErrEditorUnavailable = errors.New("editor: repository unavailable")
)

// cardFields lists the JSON keys a field patch may carry.
var cardFields = func() map[string]struct{} {
	out := make(map[string]struct{})
	t := reflect.TypeOf(CardData{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = struct{}{}
		}
	}
	return out
}()

// EditorServiceDeps wires dependencies for the editor service.
type EditorServiceDeps struct {
	Cards       repositories.CardRepository
	SaveDelay   time.Duration
	SaveTimeout time.Duration
	AfterFunc   wizard.AfterFunc
	Logger      *zap.Logger
}

type editorService struct {
	cards       repositories.CardRepository
	saveDelay   time.Duration
	saveTimeout time.Duration
	afterFunc   wizard.AfterFunc
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*wizard.Controller
}

// NewEditorService constructs an EditorService keeping one wizard controller per user.
func NewEditorService(deps EditorServiceDeps) (EditorService, error) {
	if deps.Cards == nil {
		return nil, errors.New("editor service: card repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &editorService{
		cards:       deps.Cards,
		saveDelay:   deps.SaveDelay,
		saveTimeout: deps.SaveTimeout,
		afterFunc:   deps.AfterFunc,
		logger:      logger,
		sessions:    make(map[string]*wizard.Controller),
	}, nil
}

func (s *editorService) Current(ctx context.Context, uid string) (StoredCard, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return StoredCard{}, err
	}
	snap := ctrl.Snapshot()
	return StoredCard{OwnerID: strings.TrimSpace(uid), Card: snap.Card, DataVersion: snap.DataVersion}, nil
}

func (s *editorService) Session(ctx context.Context, uid string) (*session.Session, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return nil, err
	}
	return ctrl.Session(), nil
}

func (s *editorService) State(ctx context.Context, uid string) (EditorState, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	return stateOf(ctrl.Snapshot()), nil
}

// Replace swaps the whole card after draft validation. Pending edits of the
// previous buffer are dropped.
func (s *editorService) Replace(ctx context.Context, uid string, card CardData, expectedVersion int64) (EditorState, error) {
	if err := cardschema.ValidateDraft(card); err != nil {
		return EditorState{}, err
	}
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	stored, err := s.cards.Replace(ctx, strings.TrimSpace(uid), card, expectedVersion)
	if err != nil {
		return EditorState{}, s.mapRepositoryError(err)
	}
	ctrl.Reload(stored.Card)
	ctrl = s.resync(uid, ctrl, stored)
	return stateOf(ctrl.Snapshot()), nil
}

// UpdateFields merges top-level card fields into the buffer and schedules a
// debounced save. Edits are kept even when they fail draft validation; the
// failures are reported on the returned state.
func (s *editorService) UpdateFields(ctx context.Context, uid string, fields map[string]json.RawMessage) (EditorState, error) {
	if len(fields) == 0 {
		return EditorState{}, fmt.Errorf("%w: no fields", ErrEditorInvalidInput)
	}
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	merged, err := mergeFields(ctrl.Card(), fields)
	if err != nil {
		return EditorState{}, err
	}
	if _, err := ctrl.Update(func(c *CardData) { *c = merged }); err != nil {
		return EditorState{}, err
	}
	state := stateOf(ctrl.Snapshot())
	if res, ok := cardschema.AsResult(cardschema.ValidateDraft(merged)); ok {
		state.Errors = res.Messages()
	}
	return state, nil
}

// Validate checks one step, or the whole card when step is zero. Failures
// are reported on the state rather than as an error.
func (s *editorService) Validate(ctx context.Context, uid string, step int) (EditorState, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	if step == 0 {
		err = ctrl.Validate()
	} else {
		err = ctrl.ValidateStep(wizard.Step(step))
	}
	if errors.Is(err, wizard.ErrInvalidStep) {
		return EditorState{}, fmt.Errorf("%w: %v", ErrEditorInvalidInput, err)
	}
	state := stateOf(ctrl.Snapshot())
	if res, ok := cardschema.AsResult(err); ok {
		state.Errors = res.Messages()
	}
	return state, nil
}

// Next advances the wizard. A gating failure is returned as *cardschema.Result.
func (s *editorService) Next(ctx context.Context, uid string) (EditorState, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	_, err = ctrl.Next()
	return stateOf(ctrl.Snapshot()), err
}

func (s *editorService) Back(ctx context.Context, uid string) (EditorState, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	ctrl.Back()
	return stateOf(ctrl.Snapshot()), nil
}

// GoTo jumps to step, validating every step passed when moving forward.
func (s *editorService) GoTo(ctx context.Context, uid string, step int) (EditorState, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	_, err = ctrl.GoTo(wizard.Step(step))
	if errors.Is(err, wizard.ErrInvalidStep) {
		return EditorState{}, fmt.Errorf("%w: %v", ErrEditorInvalidInput, err)
	}
	return stateOf(ctrl.Snapshot()), err
}

// ApplyContactDetails copies contact-record fields into the card and
// persists the result with a bumped dataVersion.
func (s *editorService) ApplyContactDetails(ctx context.Context, uid string, details VCardDetails) (EditorState, error) {
	ctrl, err := s.controller(ctx, uid)
	if err != nil {
		return EditorState{}, err
	}
	prev := ctrl.DataVersion()
	card, _, err := ctrl.ApplyContactDetails(details)
	if err != nil {
		return EditorState{}, err
	}
	stored, err := s.cards.Replace(ctx, strings.TrimSpace(uid), card, prev)
	if err != nil {
		if repositories.IsConflict(err) {
			s.forget(uid, ctrl)
		}
		return EditorState{}, s.mapRepositoryError(err)
	}
	ctrl = s.resync(uid, ctrl, stored)
	return stateOf(ctrl.Snapshot()), nil
}

// Close flushes every open editing session.
func (s *editorService) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*wizard.Controller)
	s.mu.Unlock()

	var errs error
	for _, ctrl := range sessions {
		errs = multierr.Append(errs, ctrl.Close())
	}
	return errs
}

func (s *editorService) controller(ctx context.Context, uid string) (*wizard.Controller, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrEditorInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.sessions[uid]; ok {
		return ctrl, nil
	}

	sess, err := session.New(session.Identity{UID: uid}, s.cards)
	if err != nil {
		return nil, err
	}
	stored, err := sess.Load(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	ctrl, err := s.newController(sess, stored)
	if err != nil {
		return nil, err
	}
	s.sessions[uid] = ctrl
	return ctrl, nil
}

func (s *editorService) newController(sess *session.Session, stored StoredCard) (*wizard.Controller, error) {
	return wizard.NewController(sess, stored,
		wizard.WithSaveDelay(s.saveDelay),
		wizard.WithSaveTimeout(s.saveTimeout),
		wizard.WithAfterFunc(s.afterFunc),
		wizard.WithLogger(s.logger),
	)
}

// resync replaces ctrl when its version drifted from the stored one, which
// happens when another instance wrote the card in between.
func (s *editorService) resync(uid string, ctrl *wizard.Controller, stored StoredCard) *wizard.Controller {
	if ctrl.DataVersion() == stored.DataVersion {
		return ctrl
	}
	sess, err := session.New(session.Identity{UID: strings.TrimSpace(uid)}, s.cards)
	if err != nil {
		return ctrl
	}
	fresh, err := s.newController(sess, stored)
	if err != nil {
		return ctrl
	}
	s.mu.Lock()
	if s.sessions[sess.UID()] == ctrl {
		s.sessions[sess.UID()] = fresh
	}
	s.mu.Unlock()
	ctrl.Reload(stored.Card)
	_ = ctrl.Close()
	return fresh
}

// forget drops a controller whose buffer lost a version race.
func (s *editorService) forget(uid string, ctrl *wizard.Controller) {
	uid = strings.TrimSpace(uid)
	s.mu.Lock()
	if s.sessions[uid] == ctrl {
		delete(s.sessions, uid)
	}
	s.mu.Unlock()
	ctrl.Reload(ctrl.Card())
	_ = ctrl.Close()
}

func (s *editorService) mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrVersionConflict), repositories.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrEditorConflict, err)
	case repositories.IsUnavailable(err):
		return fmt.Errorf("%w: %v", ErrEditorUnavailable, err)
	}
	return err
}

func stateOf(snap wizard.Snapshot) EditorState {
	state := EditorState{
		Card:        snap.Card,
		DataVersion: snap.DataVersion,
		Step:        snap.Step,
		Errors:      snap.Errors.Messages(),
		SavePending: snap.SavePending,
	}
	if snap.LastSaveError != nil {
		state.SaveError = snap.LastSaveError.Error()
	}
	return state
}

// mergeFields overlays top-level JSON fields onto card.
func mergeFields(card CardData, fields map[string]json.RawMessage) (CardData, error) {
	var unknown []string
	for key := range fields {
		if _, ok := cardFields[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return CardData{}, fmt.Errorf("%w: unknown fields %s", ErrEditorInvalidInput, strings.Join(unknown, ", "))
	}

	raw, err := json.Marshal(card)
	if err != nil {
		return CardData{}, err
	}
	base := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &base); err != nil {
		return CardData{}, err
	}
	for key, value := range fields {
		base[key] = value
	}
	raw, err = json.Marshal(base)
	if err != nil {
		return CardData{}, err
	}

	var merged CardData
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&merged); err != nil {
		return CardData{}, fmt.Errorf("%w: %v", ErrEditorInvalidInput, err)
	}
	return merged, nil
}
