// Package wizard drives the multi-step card editor.
package wizard

import "fmt"

// Step is a 1-based editor step.
type Step int

const (
	StepCompany Step = iota + 1
	StepContact
	StepLinks
	StepAppearance
	StepFinalize

	FirstStep = StepCompany
	LastStep  = StepFinalize
)

var stepTitles = map[Step]string{
	StepCompany:    "Company Info",
	StepContact:    "Contact Person",
	StepLinks:      "Links & Actions",
	StepAppearance: "Appearance",
	StepFinalize:   "Finalize",
}

var stepFields = map[Step][]string{
	StepCompany: {"companyName"},
	StepContact: {"contactPersonName", "designation", "address", "contactDetails"},
}

// Title returns the step heading.
func (s Step) Title() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return fmt.Sprintf("Step %d", int(s))
}

// Fields lists the field paths that gate leaving the step.
func (s Step) Fields() []string {
	return append([]string(nil), stepFields[s]...)
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool { return s >= FirstStep && s <= LastStep }

// Steps lists every step in order.
func Steps() []Step {
	return []Step{StepCompany, StepContact, StepLinks, StepAppearance, StepFinalize}
}
