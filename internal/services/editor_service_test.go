package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cardify/api/internal/cardschema"
	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/wizard"
)

func newEditor(t *testing.T) (EditorService, *memoryCardRepo, *fakeScheduler) {
	t.Helper()
	repo := newMemoryCardRepo()
	sched := &fakeScheduler{}
	svc, err := NewEditorService(EditorServiceDeps{Cards: repo, AfterFunc: sched.AfterFunc})
	if err != nil {
		t.Fatalf("NewEditorService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, repo, sched
}

func TestNewEditorServiceRequiresRepository(t *testing.T) {
	if _, err := NewEditorService(EditorServiceDeps{}); err == nil {
		t.Fatalf("expected error without repository")
	}
}

func TestEditorStateStartsFromDefaults(t *testing.T) {
	svc, _, _ := newEditor(t)

	state, err := svc.State(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Step != wizard.StepCompany {
		t.Fatalf("expected first step, got %d", state.Step)
	}
	if state.DataVersion != 0 {
		t.Fatalf("expected version 0, got %d", state.DataVersion)
	}
	if state.Card.Template != domain.DefaultTemplate {
		t.Fatalf("expected default template, got %q", state.Card.Template)
	}

	if _, err := svc.State(context.Background(), "  "); !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid input for blank uid, got %v", err)
	}
}

func TestEditorUpdateFieldsDebouncesSave(t *testing.T) {
	svc, repo, sched := newEditor(t)
	ctx := context.Background()

	state, err := svc.UpdateFields(ctx, "user-1", map[string]json.RawMessage{
		"companyName": json.RawMessage(`"Acme"`),
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if state.Card.CompanyName != "Acme" {
		t.Fatalf("expected merged company name, got %q", state.Card.CompanyName)
	}
	if !state.SavePending {
		t.Fatalf("expected pending save")
	}
	if repo.setCount() != 0 {
		t.Fatalf("expected no write before the debounce fires")
	}

	sched.fireAll()
	if repo.setCount() != 1 {
		t.Fatalf("expected one write, got %d", repo.setCount())
	}
	if got := repo.stored("user-1").Card.CompanyName; got != "Acme" {
		t.Fatalf("expected stored company name, got %q", got)
	}
}

func TestEditorUpdateFieldsRejectsUnknownKeys(t *testing.T) {
	svc, _, _ := newEditor(t)
	_, err := svc.UpdateFields(context.Background(), "user-1", map[string]json.RawMessage{
		"companyName": json.RawMessage(`"Acme"`),
		"price":       json.RawMessage(`1`),
	})
	if !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.UpdateFields(context.Background(), "user-1", nil); !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid input for empty patch, got %v", err)
	}
}

func TestEditorUpdateFieldsKeepsDraftFailures(t *testing.T) {
	svc, _, _ := newEditor(t)
	state, err := svc.UpdateFields(context.Background(), "user-1", map[string]json.RawMessage{
		"logoShape": json.RawMessage(`"triangle"`),
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if state.Card.LogoShape != "triangle" {
		t.Fatalf("expected edit to be kept, got %q", state.Card.LogoShape)
	}
	if state.Errors["logoShape"] == "" {
		t.Fatalf("expected logoShape error, got %+v", state.Errors)
	}
}

func TestEditorNextGatesOnStepFields(t *testing.T) {
	svc, _, _ := newEditor(t)
	ctx := context.Background()

	state, err := svc.Next(ctx, "user-1")
	if _, ok := cardschema.AsResult(err); !ok {
		t.Fatalf("expected validation result, got %v", err)
	}
	if state.Step != wizard.StepCompany {
		t.Fatalf("expected to stay on first step, got %d", state.Step)
	}
	if state.Errors["companyName"] != "Company name is required." {
		t.Fatalf("expected inline error, got %+v", state.Errors)
	}

	if _, err := svc.UpdateFields(ctx, "user-1", map[string]json.RawMessage{"companyName": json.RawMessage(`"Acme"`)}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	state, err = svc.Next(ctx, "user-1")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if state.Step != wizard.StepContact {
		t.Fatalf("expected contact step, got %d", state.Step)
	}

	state, err = svc.Back(ctx, "user-1")
	if err != nil || state.Step != wizard.StepCompany {
		t.Fatalf("expected back to first step, got %d (%v)", state.Step, err)
	}
}

func TestEditorGoToAndValidate(t *testing.T) {
	svc, _, _ := newEditor(t)
	ctx := context.Background()

	if _, err := svc.GoTo(ctx, "user-1", 9); !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid step, got %v", err)
	}
	if _, err := svc.Validate(ctx, "user-1", 7); !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid step, got %v", err)
	}

	state, err := svc.GoTo(ctx, "user-1", int(wizard.StepFinalize))
	if _, ok := cardschema.AsResult(err); !ok {
		t.Fatalf("expected gating failure, got %v", err)
	}
	if state.Step != wizard.StepCompany {
		t.Fatalf("expected to stop at first failing step, got %d", state.Step)
	}

	state, err = svc.Validate(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, path := range []string{"companyName", "contactPersonName", "designation", "address", "contactDetails"} {
		if state.Errors[path] == "" {
			t.Errorf("expected error at %s", path)
		}
	}
}

func TestEditorReplaceChecksDataVersion(t *testing.T) {
	svc, repo, _ := newEditor(t)
	ctx := context.Background()

	state, err := svc.Replace(ctx, "user-1", completeCard(), 0)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if state.DataVersion != 1 || repo.stored("user-1").DataVersion != 1 {
		t.Fatalf("expected version 1, got state=%d stored=%d", state.DataVersion, repo.stored("user-1").DataVersion)
	}
	if state.Card.CompanyName != "Acme" {
		t.Fatalf("expected replaced card, got %q", state.Card.CompanyName)
	}

	if _, err := svc.Replace(ctx, "user-1", completeCard(), 0); !errors.Is(err, ErrEditorConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	bad := completeCard()
	bad.PrimaryColor = "blue"
	if _, err := svc.Replace(ctx, "user-1", bad, 1); err == nil {
		t.Fatalf("expected draft validation failure")
	}
}

func TestEditorApplyContactDetailsBumpsVersion(t *testing.T) {
	svc, repo, _ := newEditor(t)
	ctx := context.Background()

	state, err := svc.ApplyContactDetails(ctx, "user-1", VCardDetails{FirstName: "Jane", LastName: "Doe", Company: "Acme"})
	if err != nil {
		t.Fatalf("ApplyContactDetails: %v", err)
	}
	if state.DataVersion != 1 {
		t.Fatalf("expected version 1, got %d", state.DataVersion)
	}
	stored := repo.stored("user-1")
	if stored.Card.ContactPersonName != "Jane Doe" || stored.Card.CompanyName != "Acme" {
		t.Fatalf("unexpected stored card: %+v", stored.Card)
	}

	current, err := svc.Current(ctx, "user-1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.DataVersion != stored.DataVersion {
		t.Fatalf("expected editor and store versions to agree, got %d and %d", current.DataVersion, stored.DataVersion)
	}
}

func TestEditorSessionIsSharedWithController(t *testing.T) {
	svc, _, _ := newEditor(t)
	ctx := context.Background()

	first, err := svc.Session(ctx, " user-1 ")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if first.UID() != "user-1" {
		t.Fatalf("expected trimmed uid, got %q", first.UID())
	}
	second, err := svc.Session(ctx, "user-1")
	if err != nil || second != first {
		t.Fatalf("expected the same session for repeated calls, err=%v", err)
	}
	if _, err := svc.Session(ctx, ""); !errors.Is(err, ErrEditorInvalidInput) {
		t.Fatalf("expected invalid input for blank uid, got %v", err)
	}
}

func TestEditorCloseFlushesPendingEdits(t *testing.T) {
	repo := newMemoryCardRepo()
	sched := &fakeScheduler{}
	svc, err := NewEditorService(EditorServiceDeps{Cards: repo, AfterFunc: sched.AfterFunc})
	if err != nil {
		t.Fatalf("NewEditorService: %v", err)
	}
	if _, err := svc.UpdateFields(context.Background(), "user-1", map[string]json.RawMessage{"companySlogan": json.RawMessage(`"Fast"`)}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := repo.stored("user-1").Card.CompanySlogan; got != "Fast" {
		t.Fatalf("expected flushed slogan, got %q", got)
	}
}

func TestEditorMapsUnavailableStore(t *testing.T) {
	repo := newMemoryCardRepo()
	repo.getErr = &repoErr{err: errors.New("deadline"), unavailable: true}
	svc, err := NewEditorService(EditorServiceDeps{Cards: repo})
	if err != nil {
		t.Fatalf("NewEditorService: %v", err)
	}
	if _, err := svc.State(context.Background(), "user-1"); !errors.Is(err, ErrEditorUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

type repoErr struct {
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repoErr) Error() string       { return e.err.Error() }
func (e *repoErr) Unwrap() error       { return e.err }
func (e *repoErr) IsNotFound() bool    { return e.notFound }
func (e *repoErr) IsConflict() bool    { return e.conflict }
func (e *repoErr) IsUnavailable() bool { return e.unavailable }
