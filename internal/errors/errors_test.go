package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/canonica-labs/engarde/pkg/checks"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// TestEngardeError_Format verifies the human-readable rendering.
// Green-Flag: Message, reason, suggestion and cause are all present.
func TestEngardeError_Format(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewSourceUnavailable("warehouse", cause)

	msg := err.Error()
	for _, want := range []string{"source warehouse unavailable", "Reason:", "Suggestion:", "Caused by: connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable with errors.Is")
	}
}

func TestCodeOf(t *testing.T) {
	assertion := &checks.AssertionError{
		Check:     checks.NameWithinSet,
		Kind:      checks.CellLevel,
		Message:   "values outside allowed set",
		Locations: []frame.Location{{Row: int64(2), Column: "c"}},
	}

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"violation", NewContractViolated("orders", assertion), CodeViolation},
		{"bare assertion", assertion, CodeViolation},
		{"wrapped assertion", fmt.Errorf("run: %w", assertion), CodeViolation},
		{"contract", NewInvalidContract("name", "required"), CodeConfig},
		{"unknown check", NewUnknownCheck("nope", checks.Names()), CodeConfig},
		{"unknown source", NewUnknownSource("mysql", []string{"duckdb"}), CodeConfig},
		{"config", NewInvalidConfig("audit.driver", "unsupported"), CodeConfig},
		{"query", NewQueryRejected("DROP", "write", "use SELECT"), CodeConfig},
		{"source", fmt.Errorf("load: %w", NewSourceUnavailable("db", nil)), CodeSource},
		{"migration", NewMigrationFailed("001_init", nil), CodeInternal},
		{"plain", stderrors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// TestContractViolated_KeepsAssertion verifies the assertion is reachable.
// Red-Flag: Wrapping must not lose the violation report.
func TestContractViolated_KeepsAssertion(t *testing.T) {
	assertion := &checks.AssertionError{Check: checks.NameNoneMissing, Kind: checks.CellLevel, Message: "missing values"}
	err := NewContractViolated("orders", assertion)

	ae, ok := checks.AsAssertion(err)
	if !ok || ae != assertion {
		t.Fatalf("expected wrapped assertion, got %v", ae)
	}
	if err.Check != checks.NameNoneMissing {
		t.Errorf("expected check name, got %s", err.Check)
	}
}

func TestDetails(t *testing.T) {
	err := fmt.Errorf("run: %w", NewInvalidContract("checks[0].n", "must be positive"))

	base, ok := Details(err)
	if !ok {
		t.Fatal("expected details")
	}
	if base.Message != "invalid contract" || base.Suggestion == "" {
		t.Errorf("unexpected details: %+v", base)
	}

	if _, ok := Details(stderrors.New("plain")); ok {
		t.Error("plain errors carry no details")
	}
}
