package validation_test

import (
	"strings"
	"testing"

	"github.com/km-arc/go-container/framework/http/validation"
)

func TestValidator_Passes(t *testing.T) {
	v := validation.Make(map[string]string{"id": "mailer", "resolved": "true"}, validation.Rules{
		"id":       "required|max:255",
		"resolved": "sometimes|boolean",
	})
	if v.Fails() {
		t.Fatalf("unexpected errors: %v", v.Errors().Bag)
	}
	if !v.Passes() {
		t.Error("Passes() should mirror Fails()")
	}
}

func TestValidator_Required(t *testing.T) {
	v := validation.Make(map[string]string{"id": "  "}, validation.Rules{"id": "required|max:3"})
	if !v.Fails() {
		t.Fatal("blank id should fail")
	}
	if got := v.Errors().First("id"); got != "The id field is required." {
		t.Errorf("First(id) = %q", got)
	}
	if n := len(v.Errors().Bag["id"]); n != 1 {
		t.Errorf("first failure should stop the field, got %d messages", n)
	}
}

func TestValidator_Max(t *testing.T) {
	v := validation.Make(map[string]string{"id": strings.Repeat("é", 4)}, validation.Rules{"id": "max:3"})
	if !v.Fails() {
		t.Error("4 runes should exceed max:3")
	}
	v = validation.Make(map[string]string{"id": strings.Repeat("é", 3)}, validation.Rules{"id": "max:3"})
	if v.Fails() {
		t.Error("max counts runes, not bytes")
	}
}

func TestValidator_SometimesSkipsAbsent(t *testing.T) {
	v := validation.Make(map[string]string{}, validation.Rules{"resolved": "sometimes|boolean"})
	if v.Fails() {
		t.Error("absent value should be skipped")
	}
	v = validation.Make(map[string]string{"resolved": "maybe"}, validation.Rules{"resolved": "sometimes|boolean"})
	if !v.Fails() {
		t.Error("non-boolean value should fail")
	}
}

func TestValidator_In(t *testing.T) {
	rules := validation.Rules{"state": "in:resolved, pending"}
	if validation.Make(map[string]string{"state": "pending"}, rules).Fails() {
		t.Error("listed option should pass")
	}
	if !validation.Make(map[string]string{"state": "gone"}, rules).Fails() {
		t.Error("unlisted option should fail")
	}
}

func TestValidator_NotRegex(t *testing.T) {
	rules := validation.Rules{"id": `not_regex:\s`}
	if validation.Make(map[string]string{"id": "env.HOME"}, rules).Fails() {
		t.Error("id without whitespace should pass")
	}
	if !validation.Make(map[string]string{"id": "two words"}, rules).Fails() {
		t.Error("id with whitespace should fail")
	}
}

func TestValidator_UnknownRulePasses(t *testing.T) {
	if validation.Make(map[string]string{"id": "x"}, validation.Rules{"id": "shiny"}).Fails() {
		t.Error("unknown rules should pass")
	}
}
