package cardschema

import (
	"errors"
	"strings"
)

// FieldError is one field-path-scoped validation failure.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Rule    string `json:"rule"`
}

// Result collects validation failures. It implements error so callers can
// return it directly and unwrap it with errors.As.
type Result struct {
	Errors []FieldError
}

// Valid reports whether no failures were recorded.
func (r *Result) Valid() bool {
	return r == nil || len(r.Errors) == 0
}

// Error implements error.
func (r *Result) Error() string {
	if r.Valid() {
		return "cardschema: valid"
	}
	parts := make([]string, 0, len(r.Errors))
	for _, fe := range r.Errors {
		parts = append(parts, fe.Path+": "+fe.Message)
	}
	return "cardschema: " + strings.Join(parts, "; ")
}

// ForPath returns the failures recorded at path or below it.
func (r *Result) ForPath(path string) []FieldError {
	if r == nil {
		return nil
	}
	var out []FieldError
	for _, fe := range r.Errors {
		if fe.Path == path || strings.HasPrefix(fe.Path, path+".") {
			out = append(out, fe)
		}
	}
	return out
}

// Messages returns the first message per path, suitable for inline display.
func (r *Result) Messages() map[string]string {
	out := make(map[string]string)
	if r == nil {
		return out
	}
	for _, fe := range r.Errors {
		if _, ok := out[fe.Path]; !ok {
			out[fe.Path] = fe.Message
		}
	}
	return out
}

// AsResult extracts a *Result from err.
func AsResult(err error) (*Result, bool) {
	var res *Result
	if errors.As(err, &res) && res != nil {
		return res, true
	}
	return nil, false
}
