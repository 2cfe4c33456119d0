package checks

import (
	"testing"

	"github.com/canonica-labs/engarde/pkg/frame"
)

func positive(t *frame.Table, args ...interface{}) []bool {
	return ColumnCompare("c", OpGt, 0)(t, args...)
}

// TestVerifyAll_StrictlyPositive verifies the elementwise predicate gate.
// Green-Flag: All-positive values pass; Red-Flag: a zero or negative value fails.
func TestVerifyAll_StrictlyPositive(t *testing.T) {
	good := mustTable(t, nil, frame.Column{Name: "c", Values: []interface{}{1, 2, 3}})
	if _, err := VerifyAll(good, positive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, bad := range []interface{}{0, -1} {
		tbl := mustTable(t, nil, frame.Column{Name: "c", Values: []interface{}{1, bad, 3}})
		_, err := VerifyAll(tbl, positive)
		ae := assertion(t, err)
		if ae.Check != NameVerifyAll {
			t.Errorf("expected %s, got %s", NameVerifyAll, ae.Check)
		}
	}
}

func TestVerifyAny(t *testing.T) {
	tbl := mustTable(t, nil, frame.Column{Name: "c", Values: []interface{}{-1, 0, 3}})
	if _, err := VerifyAny(tbl, positive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	none := mustTable(t, nil, frame.Column{Name: "c", Values: []interface{}{-1, 0}})
	if _, err := VerifyAny(none, positive); err == nil {
		t.Fatal("expected failure when no element is true")
	}
}

func TestVerifyAllAny_EmptyMask(t *testing.T) {
	tbl := mustTable(t, nil)
	empty := func(*frame.Table, ...interface{}) []bool { return nil }

	if _, err := VerifyAll(tbl, empty); err != nil {
		t.Fatalf("all of nothing should pass: %v", err)
	}
	if _, err := VerifyAny(tbl, empty); err == nil {
		t.Fatal("any of nothing should fail")
	}
}

func TestVerify_PassesArgs(t *testing.T) {
	tbl := complete(t)
	hasRows := func(t *frame.Table, args ...interface{}) bool {
		return t.NumRows() >= args[0].(int)
	}

	if _, err := Verify(tbl, hasRows, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Verify(tbl, hasRows, 5); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := Verify(tbl, nil); err == nil {
		t.Fatal("expected failure for nil predicate")
	}
}

func TestOp_Apply(t *testing.T) {
	tests := []struct {
		op   Op
		a, b interface{}
		want bool
	}{
		{OpEq, 1, 1.0, true},
		{OpNe, 1, 2, true},
		{OpNe, nil, 2, true},
		{OpLt, 1, 2, true},
		{OpLe, 2, 2, true},
		{OpGt, nil, 0, false},
		{OpGe, "b", "a", true},
		{OpGt, "b", 1, false},
	}
	for _, tt := range tests {
		if got := tt.op.Apply(tt.a, tt.b); got != tt.want {
			t.Errorf("%v %s %v: expected %v, got %v", tt.a, tt.op, tt.b, tt.want, got)
		}
	}

	if _, err := ParseOp("=~"); err == nil {
		t.Error("expected unknown operator to be rejected")
	}
}
