package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/services"
)

// UploadHandlers stores images picked in the editor.
type UploadHandlers struct {
	uploads services.UploadService
}

// NewUploadHandlers constructs the upload endpoint.
func NewUploadHandlers(uploads services.UploadService) *UploadHandlers {
	return &UploadHandlers{uploads: uploads}
}

// Routes wires POST /me/uploads.
func (h *UploadHandlers) Routes(r chi.Router) {
	r.Post("/uploads", h.upload)
}

// maxUploadBody covers a base64 encoded image at the service size limit.
const maxUploadBody = 8 << 20

type uploadRequest struct {
	Image string `json:"image" validate:"required"`
}

func (h *UploadHandlers) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.uploads == nil {
		httpx.WriteError(ctx, w, errServiceUnavailable)
		return
	}
	identity, ok := requireUID(w, r)
	if !ok {
		return
	}
	var req uploadRequest
	if err := httpx.DecodeJSONLimit(r, &req, maxUploadBody); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	res, err := h.uploads.Upload(ctx, identity.UID, req.Image)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}
