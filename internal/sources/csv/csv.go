// Package csv provides a source that reads a CSV file from any location afs
// can reach: local paths, file://, s3://, gs:// and mem:// URLs.
//
// The first record is the header. Empty cells are missing. Each column takes
// the narrowest type that parses every non-empty cell: int64, then float64,
// then bool, then RFC 3339 datetime, and string otherwise.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"

	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// Kind is the source kind name.
const Kind = "csv"

// Source reads one CSV file.
type Source struct {
	fs       afs.Service
	location string
}

// Open opens a CSV source on cfg.Location.
func Open(_ context.Context, cfg sources.Config) (sources.Source, error) {
	src, err := New(afs.New(), cfg.Location)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// New creates a source reading location through fs.
func New(fs afs.Service, location string) (*Source, error) {
	if location == "" {
		return nil, fmt.Errorf("csv: location is required")
	}
	return &Source{fs: fs, location: location}, nil
}

// Name returns the source kind.
func (s *Source) Name() string {
	return Kind
}

// Load reads and parses the file. CSV sources take no query.
func (s *Source) Load(ctx context.Context, query string) (*frame.Table, error) {
	if strings.TrimSpace(query) != "" {
		return nil, fmt.Errorf("csv: sources do not accept a query")
	}

	data, err := s.fs.DownloadWithURL(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("csv: failed to read %s: %w", s.location, err)
	}
	return Parse(data)
}

// Parse converts CSV data into a table.
func Parse(data []byte) (*frame.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: missing header")
	}

	header := records[0]
	body := records[1:]
	columns := make([]frame.Column, len(header))
	for c, name := range header {
		raw := make([]string, len(body))
		for r, record := range body {
			raw[r] = record[c]
		}
		columns[c] = parseColumn(strings.TrimSpace(name), raw)
	}
	return frame.New(nil, columns...)
}

type parser struct {
	dtype frame.DType
	parse func(string) (interface{}, error)
}

var parsers = []parser{
	{frame.Int64, func(s string) (interface{}, error) { return strconv.ParseInt(s, 10, 64) }},
	{frame.Float64, func(s string) (interface{}, error) { return strconv.ParseFloat(s, 64) }},
	{frame.Bool, func(s string) (interface{}, error) { return strconv.ParseBool(s) }},
	{frame.Datetime, func(s string) (interface{}, error) { return time.Parse(time.RFC3339, s) }},
}

func parseColumn(name string, raw []string) frame.Column {
	for _, p := range parsers {
		if values, ok := parseAll(raw, p.parse); ok {
			return frame.Column{Name: name, DType: p.dtype, Values: values}
		}
	}

	// blank cells are missing whatever the column type
	values := make([]interface{}, len(raw))
	for i, s := range raw {
		if strings.TrimSpace(s) != "" {
			values[i] = s
		}
	}
	return frame.Column{Name: name, DType: frame.String, Values: values}
}

func parseAll(raw []string, parse func(string) (interface{}, error)) ([]interface{}, bool) {
	values := make([]interface{}, len(raw))
	seen := false
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := parse(s)
		if err != nil {
			return nil, false
		}
		values[i] = v
		seen = true
	}
	return values, seen
}

// Ping checks that the file exists.
func (s *Source) Ping(ctx context.Context) error {
	ok, err := s.fs.Exists(ctx, s.location)
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if !ok {
		return fmt.Errorf("csv: %s does not exist", s.location)
	}
	return nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}

var _ sources.Source = (*Source)(nil)
