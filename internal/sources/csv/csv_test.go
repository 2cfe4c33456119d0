package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/viant/afs"

	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/pkg/frame"
)

const orders = `order_id,amount,paid,created_at,status
1,10.5,true,2024-01-01T00:00:00Z,open
2,20,false,2024-01-02T00:00:00Z,closed
3,,true,2024-01-03T00:00:00Z,
`

// TestParse_InfersColumnTypes verifies per-column type inference.
// Green-Flag: Each column takes the narrowest type that fits every cell.
func TestParse_InfersColumnTypes(t *testing.T) {
	tbl, err := Parse([]byte(orders))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]frame.DType{
		"order_id":   frame.Int64,
		"amount":     frame.Float64,
		"paid":       frame.Bool,
		"created_at": frame.Datetime,
		"status":     frame.String,
	}
	got := tbl.DTypes()
	for name, dtype := range want {
		if got[name] != dtype {
			t.Errorf("column %s: expected %s, got %s", name, dtype, got[name])
		}
	}

	amount := cell(t, tbl, 2, "amount")
	status := cell(t, tbl, 2, "status")
	if amount != nil || status != nil {
		t.Errorf("expected empty cells to be missing, got %v and %v", amount, status)
	}
	created := cell(t, tbl, 0, "created_at")
	if !created.(time.Time).Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected datetime: %v", created)
	}
}

// TestParse_BlankCellsAreMissing verifies whitespace-only cells are missing in
// every column type.
// Red-Flag: A blank text cell must not satisfy none_missing.
func TestParse_BlankCellsAreMissing(t *testing.T) {
	tbl, err := Parse([]byte("id,amount,status\n1,  ,  \n2,3.5, open \n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tbl.DTypes()["status"]; got != frame.String {
		t.Fatalf("expected string status, got %s", got)
	}
	if amount, status := cell(t, tbl, 0, "amount"), cell(t, tbl, 0, "status"); amount != nil || status != nil {
		t.Errorf("expected blank cells to be missing, got %q and %q", amount, status)
	}
	if status := cell(t, tbl, 1, "status"); status != " open " {
		t.Errorf("expected non-blank text to be kept as read, got %q", status)
	}

	mask, err := tbl.MissingMask("amount", "status")
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if !mask[0][0] || !mask[1][0] {
		t.Errorf("expected both blank cells in the missing mask, got %v", mask)
	}
}

// TestParse_Malformed proves structural problems are reported.
// Red-Flag: Ragged records and empty input are errors.
func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{"", "a,b\n1\n"} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestSource_LoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(orders), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := Open(context.Background(), sources.Config{Kind: Kind, Location: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if err := src.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	tbl, err := src.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.NumRows() != 3 || tbl.NumCols() != 5 {
		t.Errorf("unexpected shape: %dx%d", tbl.NumRows(), tbl.NumCols())
	}

	if _, err := src.Load(context.Background(), "SELECT 1"); err == nil {
		t.Error("expected csv source to reject a query")
	}
}

func TestSource_MissingFile(t *testing.T) {
	src, err := New(afs.New(), filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := src.Ping(context.Background()); err == nil {
		t.Error("expected ping to fail for a missing file")
	}
	if _, err := src.Load(context.Background(), ""); err == nil {
		t.Error("expected load to fail for a missing file")
	}
	if _, err := New(afs.New(), ""); err == nil {
		t.Error("expected empty location to be rejected")
	}
}

func cell(t *testing.T, tbl *frame.Table, row int, column string) interface{} {
	t.Helper()
	c, ok := tbl.Column(column)
	if !ok || row >= len(c.Values) {
		t.Fatalf("no cell (%d, %s)", row, column)
	}
	return c.Values[row]
}
