// Package sqlguard admits only read-only queries to contract sources.
//
// Queries are parsed with sqlparser where possible. Dialect extensions the
// parser does not understand (CTEs, DuckDB table functions, Snowflake and
// BigQuery quoting) fall back to a leading-keyword check.
package sqlguard

import (
	"regexp"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/canonica-labs/engarde/internal/errors"
)

// Operation is the kind of statement a query performs.
type Operation string

const (
	OperationSelect Operation = "SELECT"
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
	OperationDDL    Operation = "DDL"
	OperationOther  Operation = "OTHER"
)

// IsWrite reports whether the operation modifies data or schema.
func (o Operation) IsWrite() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete, OperationDDL:
		return true
	}
	return false
}

// Statement is an admitted query.
type Statement struct {
	// RawSQL is the query with surrounding whitespace and a trailing semicolon removed.
	RawSQL string

	Operation Operation

	// Tables are the table names referenced in the query, in order of
	// appearance. Empty when the query was admitted by the keyword fallback.
	Tables []string

	// Parsed is false when the dialect fallback admitted the query.
	Parsed bool
}

// Guard validates source queries.
type Guard struct{}

// New creates a Guard.
func New() *Guard {
	return &Guard{}
}

var writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|DROP|CREATE|ALTER|TRUNCATE|GRANT|REVOKE|COPY)\b`)

// Check returns the admitted statement or an ErrQueryRejected.
func (g *Guard) Check(query string) (*Statement, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimSpace(strings.TrimSuffix(query, ";"))
	if query == "" {
		return nil, errors.NewQueryRejected(query, "empty query", "provide a SELECT query")
	}
	if strings.Contains(query, ";") && !quotedSemicolonsOnly(query) {
		return nil, errors.NewQueryRejected(query,
			"multiple statements",
			"a source query must be a single SELECT statement")
	}

	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return g.fallback(query)
	}

	op := operationOf(stmt)
	if op.IsWrite() {
		return nil, errors.NewWriteNotAllowed(query, string(op))
	}
	if op != OperationSelect {
		return nil, errors.NewQueryRejected(query,
			"unsupported statement",
			"only SELECT queries can load a table")
	}

	return &Statement{
		RawSQL:    query,
		Operation: op,
		Tables:    tableNames(stmt),
		Parsed:    true,
	}, nil
}

func operationOf(stmt sqlparser.Statement) Operation {
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return OperationSelect
	case *sqlparser.Insert:
		return OperationInsert
	case *sqlparser.Update:
		return OperationUpdate
	case *sqlparser.Delete:
		return OperationDelete
	case *sqlparser.DDL, *sqlparser.DBDDL:
		return OperationDDL
	default:
		return OperationOther
	}
}

func tableNames(stmt sqlparser.Statement) []string {
	var tables []string
	seen := map[string]bool{}
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		te, ok := node.(*sqlparser.AliasedTableExpr)
		if !ok {
			return true, nil
		}
		name, ok := te.Expr.(sqlparser.TableName)
		if !ok || name.IsEmpty() {
			return true, nil
		}
		full := name.Name.String()
		if !name.Qualifier.IsEmpty() {
			full = name.Qualifier.String() + "." + full
		}
		if !seen[full] {
			seen[full] = true
			tables = append(tables, full)
		}
		return true, nil
	}, stmt)
	return tables
}

// fallback admits queries the parser cannot handle when they lead with
// SELECT or WITH and contain no write keyword.
func (g *Guard) fallback(query string) (*Statement, error) {
	upper := strings.ToUpper(query)
	switch {
	case strings.HasPrefix(upper, "SELECT"), strings.HasPrefix(upper, "WITH"), strings.HasPrefix(upper, "("):
	case strings.HasPrefix(upper, "INSERT"):
		return nil, errors.NewWriteNotAllowed(query, string(OperationInsert))
	case strings.HasPrefix(upper, "UPDATE"):
		return nil, errors.NewWriteNotAllowed(query, string(OperationUpdate))
	case strings.HasPrefix(upper, "DELETE"):
		return nil, errors.NewWriteNotAllowed(query, string(OperationDelete))
	default:
		return nil, errors.NewQueryRejected(query,
			"unsupported statement",
			"only SELECT queries can load a table")
	}

	if m := writeKeyword.FindString(stripLiterals(query)); m != "" {
		return nil, errors.NewWriteNotAllowed(query, strings.ToUpper(m))
	}
	return &Statement{RawSQL: query, Operation: OperationSelect}, nil
}

// stripLiterals blanks out single-quoted string literals.
func stripLiterals(query string) string {
	var b strings.Builder
	inQuote := false
	for _, r := range query {
		if r == '\'' {
			inQuote = !inQuote
			b.WriteRune(r)
			continue
		}
		if inQuote {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func quotedSemicolonsOnly(query string) bool {
	return !strings.Contains(stripLiterals(query), ";")
}
