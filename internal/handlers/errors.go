package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cardify/api/internal/cardschema"
	"github.com/cardify/api/internal/export"
	"github.com/cardify/api/internal/platform/auth"
	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/platform/requestctx"
	"github.com/cardify/api/internal/services"
)

var errServiceUnavailable = httpx.NewError("service_unavailable", "service is unavailable", http.StatusServiceUnavailable)

// writeServiceError translates service errors into the JSON envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *httpx.Error
	if errors.As(err, &apiErr) {
		httpx.WriteError(ctx, w, apiErr)
		return
	}
	if res, ok := cardschema.AsResult(err); ok {
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", "card validation failed", http.StatusUnprocessableEntity).WithFields(res.Messages()))
		return
	}
	var precondition *export.ValidationError
	if errors.As(err, &precondition) {
		httpx.WriteError(ctx, w, httpx.NewError("export_precondition_failed", precondition.Message, http.StatusUnprocessableEntity).
			WithFields(map[string]string{precondition.Field: precondition.Message}))
		return
	}
	if export.IsCaptureError(err) {
		requestctx.Logger(ctx).Error("export capture failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("export_capture_failed", "failed to capture the card", http.StatusBadGateway))
		return
	}

	switch {
	case errors.Is(err, services.ErrEditorInvalidInput),
		errors.Is(err, services.ErrExportInvalidInput),
		errors.Is(err, services.ErrUploadInvalidInput),
		errors.Is(err, services.ErrFeedbackInvalidInput),
		errors.Is(err, services.ErrAccountInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", publicMessage(err)))
	case errors.Is(err, auth.ErrWeakPassword):
		httpx.WriteError(ctx, w, httpx.NewError("weak_password", "password does not meet requirements", http.StatusBadRequest))
	case errors.Is(err, auth.ErrIncorrectPassword):
		httpx.WriteError(ctx, w, httpx.NewError("incorrect_password", auth.ErrIncorrectPassword.Error(), http.StatusUnauthorized))
	case errors.Is(err, auth.ErrAccountDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("account_disabled", "account is disabled", http.StatusForbidden))
	case errors.Is(err, auth.ErrTooManyAttempts):
		httpx.WriteError(ctx, w, httpx.NewError("too_many_attempts", "too many attempts, try again later", http.StatusTooManyRequests))
	case errors.Is(err, services.ErrAccountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("account_not_found", "account not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCardNoContactRecord):
		httpx.WriteError(ctx, w, httpx.NewError("contact_record_not_found", "card has no contact record", http.StatusNotFound))
	case errors.Is(err, services.ErrCardNoQRTarget):
		httpx.WriteError(ctx, w, httpx.NewError("qr_target_not_found", "card has no qr target", http.StatusNotFound))
	case errors.Is(err, services.ErrEditorConflict):
		httpx.WriteError(ctx, w, httpx.NewError("card_conflict", "card was changed elsewhere; reload and retry", http.StatusConflict))
	case errors.Is(err, export.ErrExportInFlight):
		httpx.WriteError(ctx, w, httpx.NewError("export_in_flight", "an export is already running", http.StatusConflict))
	case errors.Is(err, services.ErrUploadUnsupportedType):
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_media_type", "image type is not supported", http.StatusUnsupportedMediaType))
	case errors.Is(err, services.ErrUploadTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "image exceeds the allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, services.ErrEditorUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("card_store_unavailable", "card store is unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrExportDeliveryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("export_delivery_unavailable", "link delivery is not configured", http.StatusServiceUnavailable))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, err)
	}
}

// publicMessage strips the package prefix of a wrapped sentinel.
func publicMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 && idx < 16 {
		msg = msg[idx+2:]
	}
	return msg
}

// requireUID returns the authenticated caller or writes a 401.
func requireUID(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.ErrUnauthenticated)
		return nil, false
	}
	return identity, true
}
