package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator exposes the shared instance for DTOs validated outside DecodeJSON.
func Validator() *validator.Validate {
	return validate
}

// DecodeJSON reads one JSON object into dst and runs struct validation.
// Failures come back as *Error with per-field messages.
func DecodeJSON(r *http.Request, dst any) error {
	return DecodeJSONLimit(r, dst, MaxBodyBytes)
}

// DecodeJSONLimit is DecodeJSON with a caller-chosen body limit.
func DecodeJSONLimit(r *http.Request, dst any, limit int64) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("invalid_json", "request body is empty")
		}
		return BadRequest("invalid_json", "request body is not valid JSON")
	}
	return ValidateStruct(dst)
}

// ValidateStruct runs validator tags on v.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest("invalid_request", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := strings.SplitN(fe.Namespace(), ".", 2)
		key := fe.Field()
		if len(path) == 2 {
			key = path[1]
		}
		fields[key] = describe(fe)
	}
	return BadRequest("validation_failed", "request validation failed").WithFields(fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}
