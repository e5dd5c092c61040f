package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/platform/auth"
	"github.com/cardify/api/internal/services"
	"github.com/cardify/api/internal/session"
	"github.com/cardify/api/internal/templates"
	"github.com/cardify/api/internal/wizard"
)

func authedRequest(method, target string, body string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-1", Email: "jane@acme.io", Name: "Jane Doe"}))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body, got %q: %v", rr.Body.String(), err)
	}
	return body
}

type stubSystemService struct {
	report services.SystemHealthReport
	ready  bool
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

func (s *stubSystemService) Ready(context.Context) (services.SystemHealthReport, bool, error) {
	return s.report, s.ready, s.err
}

type stubEditor struct {
	state    services.EditorState
	err      error
	lastUID  string
	lastCall string
	version  int64
	fields   map[string]json.RawMessage
	step     int
	details  services.VCardDetails
}

func (s *stubEditor) record(call, uid string) (services.EditorState, error) {
	s.lastCall = call
	s.lastUID = uid
	return s.state, s.err
}

func (s *stubEditor) Session(_ context.Context, uid string) (*session.Session, error) {
	s.lastUID = uid
	if s.err != nil {
		return nil, s.err
	}
	return session.New(session.Identity{UID: uid}, discardStore{})
}

type discardStore struct{}

func (discardStore) Get(context.Context, string) (domain.StoredCard, bool, error) {
	return domain.StoredCard{}, false, nil
}

func (discardStore) Set(context.Context, string, domain.CardData) error { return nil }

func (s *stubEditor) Current(_ context.Context, uid string) (services.StoredCard, error) {
	s.lastUID = uid
	return services.StoredCard{OwnerID: uid, Card: s.state.Card, DataVersion: s.state.DataVersion}, s.err
}

func (s *stubEditor) State(_ context.Context, uid string) (services.EditorState, error) {
	return s.record("state", uid)
}

func (s *stubEditor) Replace(_ context.Context, uid string, card services.CardData, expected int64) (services.EditorState, error) {
	s.version = expected
	s.state.Card = card
	return s.record("replace", uid)
}

func (s *stubEditor) UpdateFields(_ context.Context, uid string, fields map[string]json.RawMessage) (services.EditorState, error) {
	s.fields = fields
	return s.record("fields", uid)
}

func (s *stubEditor) Validate(_ context.Context, uid string, step int) (services.EditorState, error) {
	s.step = step
	return s.record("validate", uid)
}

func (s *stubEditor) Next(_ context.Context, uid string) (services.EditorState, error) {
	return s.record("next", uid)
}

func (s *stubEditor) Back(_ context.Context, uid string) (services.EditorState, error) {
	return s.record("back", uid)
}

func (s *stubEditor) GoTo(_ context.Context, uid string, step int) (services.EditorState, error) {
	s.step = step
	return s.record("goto", uid)
}

func (s *stubEditor) ApplyContactDetails(_ context.Context, uid string, details services.VCardDetails) (services.EditorState, error) {
	s.details = details
	return s.record("vcard", uid)
}

func (s *stubEditor) Close() error { return nil }

type stubCards struct {
	entries []templates.Entry
	record  services.ContactRecord
	qr      services.QRImage
	err     error
	size    int
}

func (s *stubCards) Templates(context.Context) ([]templates.Entry, error) {
	return s.entries, s.err
}

func (s *stubCards) ContactRecord(context.Context, string) (services.ContactRecord, error) {
	return s.record, s.err
}

func (s *stubCards) QRCode(_ context.Context, _ string, size int) (services.QRImage, error) {
	s.size = size
	return s.qr, s.err
}

type stubExports struct {
	out services.ExportOutput
	err error
	cmd services.ExportCommand
}

func (s *stubExports) Export(_ context.Context, cmd services.ExportCommand) (services.ExportOutput, error) {
	s.cmd = cmd
	return s.out, s.err
}

type stubAccounts struct {
	signIn   services.SignInResult
	profile  services.UserProfile
	exists   bool
	err      error
	signOut  string
	update   services.UpdateProfileCommand
	password [2]string
}

func (s *stubAccounts) SignIn(context.Context, string, string) (services.SignInResult, error) {
	return s.signIn, s.err
}

func (s *stubAccounts) SignInWithGoogle(context.Context, string) (services.SignInResult, error) {
	return s.signIn, s.err
}

func (s *stubAccounts) SignOut(_ context.Context, uid string) error {
	s.signOut = uid
	return s.err
}

func (s *stubAccounts) EmailExists(context.Context, string) (bool, error) {
	return s.exists, s.err
}

func (s *stubAccounts) Profile(context.Context, string) (services.UserProfile, error) {
	return s.profile, s.err
}

func (s *stubAccounts) UpdateProfile(_ context.Context, _ string, cmd services.UpdateProfileCommand) (services.UserProfile, error) {
	s.update = cmd
	return s.profile, s.err
}

func (s *stubAccounts) ChangePassword(_ context.Context, _ string, current, next string) error {
	s.password = [2]string{current, next}
	return s.err
}

type stubFeedback struct {
	cmds []services.FeedbackCommand
	err  error
}

func (s *stubFeedback) Submit(_ context.Context, cmd services.FeedbackCommand) (services.Feedback, error) {
	s.cmds = append(s.cmds, cmd)
	if s.err != nil {
		return services.Feedback{}, s.err
	}
	return services.Feedback{ID: "fb-1", OwnerID: cmd.UID, Rating: domain.Rating(cmd.Rating), Comment: cmd.Comment}, nil
}

type stubUploads struct {
	res     services.UploadResult
	err     error
	payload string
}

func (s *stubUploads) Upload(_ context.Context, _ string, payload string) (services.UploadResult, error) {
	s.payload = payload
	return s.res, s.err
}

func (s *stubUploads) ResolveGalleryAssets(_ context.Context, _ string, images []string, logo string) ([]string, string, error) {
	return images, logo, nil
}

func sampleState() services.EditorState {
	return services.EditorState{
		Card:        domain.DefaultCardData(),
		DataVersion: 3,
		Step:        wizard.StepCompany,
	}
}

var (
	_ services.SystemService   = (*stubSystemService)(nil)
	_ services.EditorService   = (*stubEditor)(nil)
	_ services.CardService     = (*stubCards)(nil)
	_ services.ExportService   = (*stubExports)(nil)
	_ services.AccountService  = (*stubAccounts)(nil)
	_ services.FeedbackService = (*stubFeedback)(nil)
	_ services.UploadService   = (*stubUploads)(nil)
)
