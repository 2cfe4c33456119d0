// Package bigquery provides the Google BigQuery source.
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/internal/sqlguard"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// Kind is the source kind name.
const Kind = "bigquery"

// Config configures the BigQuery client.
type Config struct {
	ProjectID string

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string

	// Location is the job location, e.g. "US" or "EU".
	Location string

	QueryTimeout time.Duration
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("bigquery: project is required")
	}
	return nil
}

// Source loads tables from BigQuery.
type Source struct {
	mu     sync.RWMutex
	config Config
	client *bigquery.Client
	guard  *sqlguard.Guard
	closed bool
}

// Open opens a BigQuery source from a generic source configuration.
func Open(ctx context.Context, cfg sources.Config) (sources.Source, error) {
	src, err := New(ctx, Config{
		ProjectID:       cfg.Project,
		CredentialsFile: cfg.CredentialsFile,
		Location:        cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// New creates a client for config.
func New(ctx context.Context, config Config) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 5 * time.Minute
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: failed to create client: %w", err)
	}

	return &Source{
		config: config,
		client: client,
		guard:  sqlguard.New(),
	}, nil
}

// Name returns the source kind.
func (s *Source) Name() string {
	return Kind
}

// Load runs a read-only query and collects the result into a table.
func (s *Source) Load(ctx context.Context, query string) (*frame.Table, error) {
	stmt, err := s.guard.Check(query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.client == nil {
		return nil, fmt.Errorf("bigquery: source is closed")
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	q := s.client.Query(stmt.RawSQL)
	if s.config.Location != "" {
		q.Location = s.config.Location
	}

	it, err := q.Read(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query failed: %w", err)
	}
	return collect(it)
}

func collect(it *bigquery.RowIterator) (*frame.Table, error) {
	var rows [][]interface{}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: failed to read row: %w", err)
		}

		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = convert(v)
		}
		rows = append(rows, values)
	}

	// the schema is populated after the first call to Next
	columns := make([]string, len(it.Schema))
	for i, field := range it.Schema {
		columns[i] = field.Name
	}
	return frame.FromRows(columns, rows)
}

// convert maps BigQuery values onto frame value types.
func convert(v bigquery.Value) interface{} {
	switch x := v.(type) {
	case *big.Rat:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return f
	case interface{ In(*time.Location) time.Time }:
		// civil.Date and civil.DateTime
		return x.In(time.UTC)
	}
	return v
}

// Ping runs a trivial query.
func (s *Source) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.client == nil {
		return fmt.Errorf("bigquery: source is closed")
	}

	it, err := s.client.Query("SELECT 1").Read(ctx)
	if err != nil {
		return fmt.Errorf("bigquery: ping failed: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return fmt.Errorf("bigquery: ping read failed: %w", err)
	}
	return nil
}

// Close releases the client. Close is idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ sources.Source = (*Source)(nil)
