// Package httpx holds the JSON envelope helpers shared by every handler.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/platform/requestctx"
)

// Error is the JSON error envelope returned by the API.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError builds an Error. A zero status means 500.
func NewError(code, message string, status int) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// WithDetails merges metadata into the payload.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	out := *e
	out.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		out.Details[k] = v
	}
	for k, v := range details {
		out.Details[k] = v
	}
	return &out
}

// WithFields attaches per-field validation messages under "fields".
func (e *Error) WithFields(fields map[string]string) *Error {
	if len(fields) == 0 {
		return e
	}
	return e.WithDetails(map[string]any{"fields": fields})
}

// Common envelopes.
var (
	ErrUnauthenticated = NewError("unauthenticated", "authentication required", http.StatusUnauthorized)
	ErrNotFound        = NewError("not_found", "resource not found", http.StatusNotFound)
	ErrInternal        = NewError("internal_server_error", "internal server error", http.StatusInternalServerError)
)

// BadRequest is a 400 envelope with the given code.
func BadRequest(code, message string) *Error {
	return NewError(code, message, http.StatusBadRequest)
}

// WriteError encodes err. Errors that do not wrap *Error are logged and
// reported as a generic 500 so internals never leak.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr == nil {
		if err != nil {
			requestctx.Logger(ctx).Error("unhandled error", zap.Error(err))
		}
		apiErr = ErrInternal
	}

	requestID := apiErr.RequestID
	if requestID == "" {
		requestID = requestctx.RequestID(ctx)
	}
	if requestID == "" {
		requestID = middleware.GetReqID(ctx)
	}
	traceID := apiErr.TraceID
	if traceID == "" {
		traceID = requestctx.TraceID(ctx)
	}

	payload := map[string]any{
		"error":   apiErr.Code,
		"message": apiErr.Message,
		"status":  apiErr.Status,
	}
	if requestID != "" {
		payload["request_id"] = sanitize(requestID, 80)
	}
	if traceID != "" {
		payload["trace_id"] = sanitize(traceID, 64)
	}
	for k, v := range apiErr.Details {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	WriteJSON(w, apiErr.Status, payload)
}

// WriteJSON encodes body with status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func sanitize(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
