package onboarding

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field pairs a form field with its validation rule (validator tag
// syntax). Optional fields use omitempty rules.
type Field struct {
	Name string
	Rule string
}

// Step is one page of the wizard: a title and the fields it collects.
type Step struct {
	Title  string
	Fields []Field
}

// DefaultSteps is the profile wizard: personal details first, then role
// and preferences.
func DefaultSteps() []Step {
	return []Step{
		{
			Title: "Tell us about you",
			Fields: []Field{
				{Name: "firstName", Rule: "required"},
				{Name: "lastName", Rule: "required"},
				{Name: "agency", Rule: "required"},
				{Name: "profilePicture", Rule: "omitempty"},
			},
		},
		{
			Title: "Role & Preferences",
			Fields: []Field{
				{Name: "propertyType", Rule: "required,oneof=Residential Office Retail 'Industrial & Logistics' 'Hotel / Hospitality' 'Land / Rural' Other"},
				{Name: "state", Rule: "required,oneof=QLD NSW VIC SA WA TAS ACT NT"},
				{Name: "timezone", Rule: "omitempty"},
			},
		},
	}
}

// ValidationError carries the failing fields so forms can render inline
// messages.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", "))
}

// Wizard is the multi-step form state machine: an ordered step list
// driving a current index and the merged values collected so far.
type Wizard struct {
	steps    []Step
	index    int
	values   map[string]string
	validate *validator.Validate
}

func New(steps []Step) *Wizard {
	return &Wizard{
		steps:    steps,
		values:   make(map[string]string),
		validate: validator.New(),
	}
}

func (w *Wizard) StepIndex() int { return w.index }

func (w *Wizard) CurrentStep() Step { return w.steps[w.index] }

// OnFinalStep reports whether Next has run out of steps and Submit is the
// only way forward.
func (w *Wizard) OnFinalStep() bool { return w.index == len(w.steps)-1 }

// Values returns a copy of the merged form state.
func (w *Wizard) Values() map[string]string {
	out := make(map[string]string, len(w.values))
	for k, v := range w.values {
		out[k] = v
	}
	return out
}

func (w *Wizard) checkStep(step Step, values map[string]string) error {
	var failed []string
	for _, field := range step.Fields {
		value, ok := values[field.Name]
		if !ok {
			value = w.values[field.Name]
		}
		if err := w.validate.Var(value, field.Rule); err != nil {
			failed = append(failed, field.Name)
		}
	}
	if len(failed) > 0 {
		return &ValidationError{Fields: failed}
	}
	return nil
}

func (w *Wizard) merge(values map[string]string) {
	for k, v := range values {
		w.values[k] = v
	}
}

// SetValue records a single value out of band, for fields filled by side
// effects such as file uploads.
func (w *Wizard) SetValue(name, value string) {
	w.values[name] = value
}

// Next validates only the current step's fields; on success the values
// merge in and the wizard advances. Validation failure blocks advancement
// and leaves the merged state untouched.
func (w *Wizard) Next(values map[string]string) error {
	if err := w.checkStep(w.CurrentStep(), values); err != nil {
		return err
	}
	w.merge(values)
	if !w.OnFinalStep() {
		w.index++
	}
	return nil
}

// Back is unconditional and unvalidated.
func (w *Wizard) Back() {
	if w.index > 0 {
		w.index--
	}
}

// Submit re-validates the full merged rule set across every step and
// returns the merged record on success.
func (w *Wizard) Submit(values map[string]string) (map[string]string, error) {
	merged := w.Values()
	for k, v := range values {
		merged[k] = v
	}

	var failed []string
	for _, step := range w.steps {
		for _, field := range step.Fields {
			if err := w.validate.Var(merged[field.Name], field.Rule); err != nil {
				failed = append(failed, field.Name)
			}
		}
	}
	if len(failed) > 0 {
		return nil, &ValidationError{Fields: failed}
	}

	w.values = merged
	return merged, nil
}
