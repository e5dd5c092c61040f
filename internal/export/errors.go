package export

import (
	"errors"
	"fmt"
)

var (
	// ErrExportInFlight is returned when the owner already has an export running.
	ErrExportInFlight = errors.New("export: in flight")
	// ErrUnknownFormat is returned for formats other than png and pdf.
	ErrUnknownFormat = errors.New("export: unknown format")
	// ErrNoSession is returned when a request carries no session.
	ErrNoSession = errors.New("export: session is required")
)

// ValidationError reports a failed precondition. No capture was attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("export: %s: %s", e.Field, e.Message)
}

// CaptureError wraps a failure while rasterizing the card. No partial output
// is produced.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("export: capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
