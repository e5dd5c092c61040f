package export

import (
	"fmt"
	"strings"

	"github.com/cardify/api/internal/templates"
)

// Format selects the export artifact.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "png" and "pdf", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type of the artifact.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

func (f Format) mode() templates.ExportMode {
	if f == FormatPDF {
		return templates.ModeDocument
	}
	return templates.ModeRaster
}

// State is the pipeline state for one owner.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateProducingRaster
	StateProducingDocument
)

func (s State) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateProducingRaster:
		return "producing-raster"
	case StateProducingDocument:
		return "producing-document"
	}
	return "idle"
}
