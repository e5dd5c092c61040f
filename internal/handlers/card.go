package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardify/api/internal/cardschema"
	domain "github.com/cardify/api/internal/domain"
	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/services"
	"github.com/cardify/api/internal/wizard"
)

// CardHandlers exposes the caller's card, its editor and derived artifacts.
type CardHandlers struct {
	editor  services.EditorService
	cards   services.CardService
	exports services.ExportService
}

// NewCardHandlers constructs the card endpoints. Any service may be nil, in
// which case its routes answer 503.
func NewCardHandlers(editor services.EditorService, cards services.CardService, exports services.ExportService) *CardHandlers {
	return &CardHandlers{editor: editor, cards: cards, exports: exports}
}

// PublicRoutes registers unauthenticated card endpoints.
func (h *CardHandlers) PublicRoutes(r chi.Router) {
	r.Get("/templates", h.listTemplates)
}

// Routes wires the /me/card endpoints. Authentication is applied by the group.
func (h *CardHandlers) Routes(r chi.Router) {
	r.Route("/card", func(r chi.Router) {
		r.Get("/", h.getCard)
		r.Put("/", h.replaceCard)
		r.Patch("/fields", h.updateFields)
		r.Post("/validate", h.validate)
		r.Get("/wizard", h.getCard)
		r.Post("/wizard/next", h.wizardNext)
		r.Post("/wizard/back", h.wizardBack)
		r.Post("/wizard/goto", h.wizardGoTo)
		r.Post("/vcard", h.applyContactDetails)
		r.Get("/contact.vcf", h.contactRecord)
		r.Get("/qr.png", h.qrCode)
		r.Post("/exports", h.createExport)
	})
}

type templatePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Family      string `json:"family,omitempty"`
	Accent      string `json:"accent,omitempty"`
}

type stepPayload struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

type editorStatePayload struct {
	Card        domain.CardData   `json:"card"`
	DataVersion int64             `json:"dataVersion"`
	Step        stepPayload       `json:"step"`
	Steps       []stepPayload     `json:"steps"`
	Errors      map[string]string `json:"errors,omitempty"`
	SavePending bool              `json:"savePending"`
	SaveError   string            `json:"saveError,omitempty"`
}

type replaceCardRequest struct {
	Card        *domain.CardData `json:"card" validate:"required"`
	DataVersion *int64           `json:"dataVersion" validate:"required,min=0"`
}

type validateRequest struct {
	Step int `json:"step" validate:"min=0,max=1280"`
}

type gotoRequest struct {
	Step int `json:"step" validate:"required,min=1"`
}

type exportRequest struct {
	Format        string  `json:"format" validate:"required,oneof=png pdf PNG PDF"`
	ViewportWidth float64 `json:"viewportWidth" validate:"min=0"`
	Delivery      string  `json:"delivery" validate:"omitempty,oneof=inline link"`
}

type exportLinkPayload struct {
	Delivery       string    `json:"delivery"`
	FileName       string    `json:"fileName"`
	ContentType    string    `json:"contentType"`
	Object         string    `json:"object"`
	URL            string    `json:"url"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	LinkCount      int       `json:"linkCount"`
	FeedbackPrompt bool      `json:"feedbackPrompt"`
}

func (h *CardHandlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cards == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	entries, err := h.cards.Templates(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]templatePayload, 0, len(entries))
	for _, e := range entries {
		items = append(items, templatePayload{ID: e.ID, Name: e.Name, Description: e.Description, Family: e.Family, Accent: e.Accent})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"templates": items})
}

func (h *CardHandlers) getCard(w http.ResponseWriter, r *http.Request) {
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.State(r.Context(), uid)
	})
}

func (h *CardHandlers) replaceCard(w http.ResponseWriter, r *http.Request) {
	var req replaceCardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.Replace(r.Context(), uid, *req.Card, *req.DataVersion)
	})
}

func (h *CardHandlers) updateFields(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFieldMap(r)
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.UpdateFields(r.Context(), uid, fields)
	})
}

func (h *CardHandlers) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if hasBody(r) {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(r.Context(), w, err)
			return
		}
	}
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.Validate(r.Context(), uid, req.Step)
	})
}

func (h *CardHandlers) wizardNext(w http.ResponseWriter, r *http.Request) {
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.Next(r.Context(), uid)
	})
}

func (h *CardHandlers) wizardBack(w http.ResponseWriter, r *http.Request) {
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.Back(r.Context(), uid)
	})
}

func (h *CardHandlers) wizardGoTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.GoTo(r.Context(), uid, req.Step)
	})
}

func (h *CardHandlers) applyContactDetails(w http.ResponseWriter, r *http.Request) {
	var details domain.VCardDetails
	if err := httpx.DecodeJSON(r, &details); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	if details.IsEmpty() {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid_request", "at least one contact field is required"))
		return
	}
	h.withEditor(w, r, func(uid string) (services.EditorState, error) {
		return h.editor.ApplyContactDetails(r.Context(), uid, details)
	})
}

// withEditor runs fn for the caller. A gating failure still returns the
// state alongside the field messages, with status 422.
func (h *CardHandlers) withEditor(w http.ResponseWriter, r *http.Request, fn func(uid string) (services.EditorState, error)) {
	ctx := r.Context()
	if h.editor == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	state, err := fn(identity.UID)
	if err != nil {
		if res, ok := cardschema.AsResult(err); ok && state.Step.Valid() {
			payload := editorPayload(state)
			payload.Errors = res.Messages()
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, payload)
			return
		}
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, editorPayload(state))
}

func editorPayload(state services.EditorState) editorStatePayload {
	steps := wizard.Steps()
	out := editorStatePayload{
		Card:        state.Card,
		DataVersion: state.DataVersion,
		Step:        stepPayload{Number: int(state.Step), Title: state.Step.Title()},
		Steps:       make([]stepPayload, 0, len(steps)),
		Errors:      state.Errors,
		SavePending: state.SavePending,
		SaveError:   state.SaveError,
	}
	for _, s := range steps {
		out.Steps = append(out.Steps, stepPayload{Number: int(s), Title: s.Title()})
	}
	return out
}

func (h *CardHandlers) contactRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cards == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	rec, err := h.cards.ContactRecord(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeAttachment(w, "text/vcard; charset=utf-8", rec.FileName, []byte(rec.Record))
}

func (h *CardHandlers) qrCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cards == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	size := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_size", "size must be a positive integer"))
			return
		}
		size = n
	}
	img, err := h.cards.QRCode(ctx, identity.UID, size)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.PNG)
}

func (h *CardHandlers) createExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.exports == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	var req exportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	out, err := h.exports.Export(ctx, services.ExportCommand{
		UID:           identity.UID,
		Format:        strings.ToLower(req.Format),
		ViewportWidth: req.ViewportWidth,
		Delivery:      req.Delivery,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeExport(w, out)
}

func writeExport(w http.ResponseWriter, out services.ExportOutput) {
	res := out.Result
	if out.Delivery == services.DeliveryLink && out.Link != nil {
		httpx.WriteJSON(w, http.StatusCreated, exportLinkPayload{
			Delivery:       out.Delivery,
			FileName:       res.FileName,
			ContentType:    res.ContentType,
			Object:         out.Object,
			URL:            out.Link.URL,
			ExpiresAt:      out.Link.ExpiresAt,
			Width:          res.PixelWidth,
			Height:         res.PixelHeight,
			LinkCount:      len(res.Links),
			FeedbackPrompt: res.FeedbackPrompt,
		})
		return
	}
	w.Header().Set("X-Export-Width", strconv.Itoa(res.PixelWidth))
	w.Header().Set("X-Export-Height", strconv.Itoa(res.PixelHeight))
	w.Header().Set("X-Export-Links", strconv.Itoa(len(res.Links)))
	w.Header().Set("X-Feedback-Prompt", strconv.FormatBool(res.FeedbackPrompt))
	writeAttachment(w, res.ContentType, res.FileName, res.Data)
}

func writeAttachment(w http.ResponseWriter, contentType, fileName string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if fileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// decodeFieldMap reads a partial card as raw top-level fields. Unknown
// field names are rejected by the editor service.
func decodeFieldMap(r *http.Request) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(io.LimitReader(r.Body, httpx.MaxBodyBytes))
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, httpx.BadRequest("invalid_json", "request body is empty")
		}
		return nil, httpx.BadRequest("invalid_json", "request body is not valid JSON")
	}
	if len(fields) == 0 {
		return nil, httpx.BadRequest("invalid_request", "no fields provided")
	}
	return fields, nil
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
