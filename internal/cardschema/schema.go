package cardschema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cardify/api/internal/domain"
)

//go:embed card.schema.json
var cardSchemaJSON []byte

// Rule identifiers reported on FieldError.
const (
	RuleRequired = "required"
	RuleFormat   = "format"
	RuleEnum     = "enum"
	RuleMaxItems = "max_items"
	RuleType     = "type"
	RulePhone    = "phone"
)

// MinPhoneDigits is the digit count a contact number needs on finalize.
const MinPhoneDigits = 10

// PathContactDetails is where the cross-field phone rule reports.
const PathContactDetails = "contactDetails"

const (
	msgPhoneMissing  = "At least one contact number is required."
	msgPhoneTooShort = "Phone number must be at least 10 digits."
	msgInvalidEmail  = "Invalid email address"
	msgInvalidURL    = "Invalid URL"
	msgInvalidColor  = "Invalid color"
)

var requiredMessages = map[string]string{
	"companyName":       "Company name is required.",
	"contactPersonName": "Name is required.",
	"designation":       "Designation is required.",
	"address":           "Address is required.",
}

// Mode selects how strictly a card is checked.
type Mode int

const (
	// ModeFinalize applies required fields and the phone rule.
	ModeFinalize Mode = iota
	// ModeDraft checks only shape and formats, allowing incomplete cards.
	ModeDraft
)

// Validator checks cards against the embedded JSON schema plus the cross-field rules.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the embedded card schema.
func New() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(cardSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("cardschema: compile: %w", err)
	}
	return &Validator{schema: schema}, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a lazily compiled process-wide validator.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = New()
	})
	return defaultValidator, defaultErr
}

// Validate checks a card in finalize mode. It returns nil or a *Result.
func Validate(card domain.CardData) error {
	v, err := Default()
	if err != nil {
		return err
	}
	return v.Validate(card, ModeFinalize)
}

// ValidateDraft checks only shape and formats.
func ValidateDraft(card domain.CardData) error {
	v, err := Default()
	if err != nil {
		return err
	}
	return v.Validate(card, ModeDraft)
}

// ValidateFields runs finalize checks restricted to the given paths. A path
// matches itself and any nested path below it.
func ValidateFields(card domain.CardData, paths ...string) error {
	v, err := Default()
	if err != nil {
		return err
	}
	return v.ValidateFields(card, paths...)
}

// Validate runs the schema and, in finalize mode, the phone rule.
func (v *Validator) Validate(card domain.CardData, mode Mode) error {
	result, err := v.check(card, mode)
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	return result
}

// ValidateFields is the step-scoped variant of Validate.
func (v *Validator) ValidateFields(card domain.CardData, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	result, err := v.check(card, ModeFinalize)
	if err != nil {
		return err
	}
	filtered := &Result{}
	for _, fe := range result.Errors {
		if matchesAny(fe.Path, paths) {
			filtered.Errors = append(filtered.Errors, fe)
		}
	}
	if filtered.Valid() {
		return nil
	}
	return filtered
}

func (v *Validator) check(card domain.CardData, mode Mode) (*Result, error) {
	if v == nil || v.schema == nil {
		return nil, fmt.Errorf("cardschema: validator not initialised")
	}
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(card))
	if err != nil {
		return nil, fmt.Errorf("cardschema: validate: %w", err)
	}

	out := &Result{}
	seen := make(map[string]struct{})
	for _, re := range res.Errors() {
		fe := translate(re)
		if mode == ModeDraft && fe.Rule == RuleRequired {
			continue
		}
		key := fe.Path + "\x00" + fe.Message
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Errors = append(out.Errors, fe)
	}

	if mode == ModeFinalize {
		if fe, ok := checkPhones(card.ContactDetails); !ok {
			out.Errors = append(out.Errors, fe)
		}
	}

	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Path < out.Errors[j].Path
	})
	return out, nil
}

// checkPhones enforces that at least one contact phone carries enough digits.
func checkPhones(details []domain.ContactDetail) (FieldError, bool) {
	partial := false
	for _, d := range details {
		if CountDigits(d.Phone) >= MinPhoneDigits {
			return FieldError{}, true
		}
		if strings.TrimSpace(d.Phone) != "" {
			partial = true
		}
	}
	msg := msgPhoneMissing
	if partial {
		msg = msgPhoneTooShort
	}
	return FieldError{Path: PathContactDetails, Message: msg, Rule: RulePhone}, false
}

// CountDigits returns the number of ASCII digits in s.
func CountDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func translate(re gojsonschema.ResultError) FieldError {
	path := normalizePath(re.Field())
	switch re.Type() {
	case "required":
		if prop, ok := re.Details()["property"].(string); ok && prop != "" {
			if path == "" {
				path = prop
			} else {
				path = path + "." + prop
			}
		}
		return FieldError{Path: path, Message: requiredMessage(path), Rule: RuleRequired}
	case "string_gte":
		return FieldError{Path: path, Message: requiredMessage(path), Rule: RuleRequired}
	case "pattern":
		if _, ok := requiredMessages[path]; ok {
			return FieldError{Path: path, Message: requiredMessage(path), Rule: RuleRequired}
		}
		return FieldError{Path: path, Message: formatMessage(path), Rule: RuleFormat}
	case "enum":
		return FieldError{Path: path, Message: "Invalid option", Rule: RuleEnum}
	case "array_max_items":
		return FieldError{Path: path, Message: fmt.Sprintf("At most %d entries are allowed.", domain.MaxContactDetails), Rule: RuleMaxItems}
	case "invalid_type":
		return FieldError{Path: path, Message: "Invalid value", Rule: RuleType}
	}
	return FieldError{Path: path, Message: re.Description(), Rule: re.Type()}
}

func normalizePath(field string) string {
	field = strings.TrimPrefix(field, "(root)")
	return strings.TrimPrefix(field, ".")
}

func requiredMessage(path string) string {
	if msg, ok := requiredMessages[path]; ok {
		return msg
	}
	return "This field is required."
}

func formatMessage(path string) string {
	switch {
	case strings.HasSuffix(path, "Color"):
		return msgInvalidColor
	case path == "links.email.value":
		return msgInvalidEmail
	case strings.HasPrefix(path, "vCardDetails.email"):
		return "Invalid email"
	}
	return msgInvalidURL
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}
	return false
}
