package onboarding

import (
	"errors"
	"testing"
)

func step1Values() map[string]string {
	return map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"agency":    "Lovelace Realty",
	}
}

func step2Values() map[string]string {
	return map[string]string{
		"propertyType": "Residential",
		"state":        "QLD",
	}
}

func TestNext_EmptyRequiredFieldBlocksAdvancement(t *testing.T) {
	w := New(DefaultSteps())

	values := step1Values()
	values["firstName"] = ""
	err := w.Next(values)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, f := range verr.Fields {
		if f == "firstName" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected firstName in failing fields, got %v", verr.Fields)
	}
	if w.StepIndex() != 0 {
		t.Fatalf("wizard must not advance, index %d", w.StepIndex())
	}
	if len(w.Values()) != 0 {
		t.Fatalf("failed step must not merge values, got %v", w.Values())
	}
}

func TestNext_ValidStepAdvancesAndMerges(t *testing.T) {
	w := New(DefaultSteps())

	if err := w.Next(step1Values()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if w.StepIndex() != 1 {
		t.Fatalf("expected index 1, got %d", w.StepIndex())
	}
	if w.Values()["firstName"] != "Ada" {
		t.Fatalf("expected merged values, got %v", w.Values())
	}
}

func TestNext_ValidatesOnlyCurrentStep(t *testing.T) {
	w := New(DefaultSteps())

	// step 2 fields are still empty; step 1 must pass on its own
	if err := w.Next(step1Values()); err != nil {
		t.Fatalf("advancing step 1 must not validate step 2 fields: %v", err)
	}
}

func TestBack_UnconditionalAndUnvalidated(t *testing.T) {
	w := New(DefaultSteps())
	if err := w.Next(step1Values()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	w.Back()
	if w.StepIndex() != 0 {
		t.Fatalf("expected index 0, got %d", w.StepIndex())
	}
	w.Back()
	if w.StepIndex() != 0 {
		t.Fatal("Back on the first step must stay put")
	}
}

func TestSubmit_RevalidatesMergedSchema(t *testing.T) {
	w := New(DefaultSteps())
	if err := w.Next(step1Values()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	// missing propertyType and state
	if _, err := w.Submit(map[string]string{"timezone": "Australia/Brisbane"}); err == nil {
		t.Fatal("expected full-schema validation failure")
	}

	record, err := w.Submit(step2Values())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if record["firstName"] != "Ada" || record["state"] != "QLD" {
		t.Fatalf("unexpected merged record %v", record)
	}
}

func TestSubmit_RejectsUnknownEnumValue(t *testing.T) {
	w := New(DefaultSteps())
	if err := w.Next(step1Values()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	values := step2Values()
	values["state"] = "ZZ"
	if _, err := w.Submit(values); err == nil {
		t.Fatal("expected enum validation failure")
	}
}

func TestSubmit_MultiWordEnumValue(t *testing.T) {
	w := New(DefaultSteps())
	if err := w.Next(step1Values()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	values := step2Values()
	values["propertyType"] = "Industrial & Logistics"
	if _, err := w.Submit(values); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestSessions_PerUserIsolation(t *testing.T) {
	sessions := NewSessions(DefaultSteps())

	a := sessions.Get("user-a")
	if err := a.Next(step1Values()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	b := sessions.Get("user-b")
	if b.StepIndex() != 0 {
		t.Fatal("sessions must be isolated per user")
	}
	if sessions.Get("user-a") != a {
		t.Fatal("expected the same wizard on repeat access")
	}

	sessions.Clear("user-a")
	if sessions.Get("user-a") == a {
		t.Fatal("expected a fresh wizard after Clear")
	}
}
