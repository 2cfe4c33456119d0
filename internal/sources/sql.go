package sources

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/canonica-labs/engarde/internal/sqlguard"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// SQLSource loads tables through a database/sql driver.
// The source maintains a connection pool for query execution.
type SQLSource struct {
	mu       sync.RWMutex
	kind     string
	db       *sql.DB
	guard    *sqlguard.Guard
	converts []ValueConverter
	closed   bool
}

// ValueConverter maps a driver-specific scan result onto a frame value.
// ok is false when v is not a type the converter handles.
type ValueConverter func(v interface{}) (out interface{}, ok bool)

// SQLOption configures a SQLSource.
type SQLOption func(*SQLSource)

// WithConverter registers a converter tried before the generic coercion.
func WithConverter(c ValueConverter) SQLOption {
	return func(s *SQLSource) {
		s.converts = append(s.converts, c)
	}
}

// OpenSQL opens a pool for driver with dsn. The driver package must be
// imported by the caller.
func OpenSQL(kind, driver, dsn string, opts ...SQLOption) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open connection: %w", kind, err)
	}
	return NewSQLSource(kind, db, opts...), nil
}

// NewSQLSource wraps an existing pool. The source takes ownership of db.
func NewSQLSource(kind string, db *sql.DB, opts ...SQLOption) *SQLSource {
	s := &SQLSource{
		kind:  kind,
		db:    db,
		guard: sqlguard.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source kind.
func (s *SQLSource) Name() string {
	return s.kind
}

// DB returns the underlying pool.
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

// Load runs a read-only query and scans the result into a table.
func (s *SQLSource) Load(ctx context.Context, query string) (*frame.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: context error: %w", s.kind, err)
	}

	stmt, err := s.guard.Check(query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.closed || s.db == nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%s: connection is closed", s.kind)
	}
	db := s.db
	s.mu.RUnlock()

	rows, err := db.QueryContext(ctx, stmt.RawSQL)
	if err != nil {
		return nil, fmt.Errorf("%s: query execution failed: %w", s.kind, err)
	}
	defer rows.Close()

	t, err := ScanTable(ctx, rows, s.converts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.kind, err)
	}
	return t, nil
}

// Ping checks if the database is reachable.
func (s *SQLSource) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.db == nil {
		return fmt.Errorf("%s: connection is closed", s.kind)
	}
	return s.db.PingContext(ctx)
}

// Close releases the pool. Close is idempotent.
func (s *SQLSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ScanTable reads every row of rows into a table with a range index.
// Each value passes through converts, then the generic coercion; column
// dtypes are inferred from the results.
func ScanTable(ctx context.Context, rows *sql.Rows, converts ...ValueConverter) (*frame.Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	dbTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}

	result := make([][]interface{}, 0)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context error during row iteration: %w", err)
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = convert(converts, dbTypes[i], v)
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return frame.FromRows(columns, result)
}

// numericTypes are database type names whose values some drivers return as
// text (lib/pq NUMERIC, gosnowflake FIXED).
var numericTypes = map[string]bool{
	"NUMERIC": true,
	"DECIMAL": true,
	"FIXED":   true,
	"NUMBER":  true,
	"REAL":    true,
	"FLOAT":   true,
	"DOUBLE":  true,
}

func convert(converts []ValueConverter, dbType string, v interface{}) interface{} {
	if v != nil {
		for _, c := range converts {
			if out, ok := c(v); ok {
				return out
			}
		}
	}
	return coerce(dbType, v)
}

// coerce maps driver-specific scan results onto frame value types.
func coerce(dbType string, v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case *big.Rat:
		f, _ := x.Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	case []byte:
		if numericTypes[dbType] {
			return parseNumber(string(x))
		}
		return string(x)
	case string:
		if numericTypes[dbType] {
			return parseNumber(x)
		}
		return x
	}
	if f, ok := pointerFloat(v); ok {
		return f
	}
	return v
}

// pointerFloat handles struct values whose Float64 method has a pointer
// receiver, such as decimals scanned by value.
func pointerFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return 0, false
	}
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	f, ok := p.Interface().(interface{ Float64() float64 })
	if !ok {
		return 0, false
	}
	return f.Float64(), true
}

func parseNumber(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
