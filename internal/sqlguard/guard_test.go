package sqlguard

import (
	stderrors "errors"
	"testing"

	"github.com/canonica-labs/engarde/internal/errors"
)

// TestGuard_AdmitsSelect verifies parsed SELECT queries and their tables.
// Green-Flag: Read-only queries are admitted.
func TestGuard_AdmitsSelect(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		tables []string
	}{
		{"simple", "SELECT id, amount FROM orders WHERE amount > 0", []string{"orders"}},
		{"alias", "SELECT o.id FROM orders o", []string{"orders"}},
		{"join", "SELECT * FROM orders o JOIN customers c ON o.cid = c.id", []string{"orders", "customers"}},
		{"qualified", "SELECT * FROM sales.orders;", []string{"sales.orders"}},
		{"union", "SELECT id FROM a UNION SELECT id FROM b", []string{"a", "b"}},
	}

	guard := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := guard.Check(tt.query)
			if err != nil {
				t.Fatalf("expected query to be admitted, got: %v", err)
			}
			if !stmt.Parsed || stmt.Operation != OperationSelect {
				t.Fatalf("unexpected statement: %+v", stmt)
			}
			if len(stmt.Tables) != len(tt.tables) {
				t.Fatalf("expected tables %v, got %v", tt.tables, stmt.Tables)
			}
			for i := range tt.tables {
				if stmt.Tables[i] != tt.tables[i] {
					t.Errorf("expected tables %v, got %v", tt.tables, stmt.Tables)
				}
			}
		})
	}
}

// TestGuard_DialectFallback verifies queries the parser cannot read.
// Green-Flag: CTEs and table functions are admitted by keyword.
func TestGuard_DialectFallback(t *testing.T) {
	guard := New()
	for _, q := range []string{
		"SELECT * FROM read_csv_auto('orders.csv')",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
		"SELECT 'drop table' AS note FROM orders QUALIFY ROW_NUMBER() OVER (PARTITION BY id ORDER BY ts) = 1",
	} {
		stmt, err := guard.Check(q)
		if err != nil {
			t.Errorf("expected %q to be admitted, got: %v", q, err)
			continue
		}
		if stmt.Operation != OperationSelect {
			t.Errorf("expected SELECT, got %s", stmt.Operation)
		}
	}
}

// TestGuard_RejectsWrites proves contract sources stay read-only.
// Red-Flag: Statements that modify data must be rejected.
func TestGuard_RejectsWrites(t *testing.T) {
	guard := New()
	for _, q := range []string{
		"",
		"   ;",
		"INSERT INTO orders VALUES (1)",
		"UPDATE orders SET amount = 0",
		"DELETE FROM orders",
		"DROP TABLE orders",
		"SELECT 1; DROP TABLE orders",
		"WITH x AS (DELETE FROM orders RETURNING *) SELECT * FROM x",
		"SHOW TABLES",
	} {
		_, err := guard.Check(q)
		if err == nil {
			t.Errorf("expected %q to be rejected", q)
			continue
		}
		var rejected *errors.ErrQueryRejected
		if !stderrors.As(err, &rejected) {
			t.Errorf("expected ErrQueryRejected for %q, got %T", q, err)
		}
		if errors.CodeOf(err) != errors.CodeConfig {
			t.Errorf("expected config exit code for %q", q)
		}
	}
}

func TestGuard_SemicolonInLiteral(t *testing.T) {
	stmt, err := New().Check("SELECT * FROM notes WHERE body = 'a;b'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmt.Tables) != 1 || stmt.Tables[0] != "notes" {
		t.Errorf("unexpected tables: %v", stmt.Tables)
	}
}
