// Package contract reads data contracts: YAML files naming a source and an
// ordered list of checks to run against the table it produces.
//
// Unknown fields fail. A contract that loads without error has a known source
// kind and every check entry builds.
package contract

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/internal/sources"
	"github.com/canonica-labs/engarde/internal/sources/bigquery"
	"github.com/canonica-labs/engarde/internal/sources/builtin"
	"github.com/canonica-labs/engarde/internal/sources/csv"
	"github.com/canonica-labs/engarde/pkg/checks"
)

// Contract is a parsed contract file.
type Contract struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Source      SourceSpec  `yaml:"source"`
	Checks      []CheckSpec `yaml:"checks"`

	// Location is where the contract was read from.
	Location string `yaml:"-"`
}

// SourceSpec describes where the checked table comes from.
type SourceSpec struct {
	Kind     string `yaml:"kind"`
	DSN      string `yaml:"dsn,omitempty"`
	Query    string `yaml:"query,omitempty"`
	Location string `yaml:"location,omitempty"`
	Project  string `yaml:"project,omitempty"`

	// Index names a column promoted to the row index after loading.
	Index string `yaml:"index,omitempty"`

	// Columns, when set, keeps only these columns once the index is applied.
	Columns []string `yaml:"columns,omitempty"`
}

// Config converts the spec into a source configuration.
func (s SourceSpec) Config() sources.Config {
	return sources.Config{
		Kind:     s.Kind,
		DSN:      s.DSN,
		Location: s.Location,
		Project:  s.Project,
	}
}

// Load reads and validates a contract from a local path or afs URL.
func Load(ctx context.Context, fs afs.Service, location string) (*Contract, error) {
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract %s: %w", location, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Location = location
	return c, nil
}

// Parse decodes and validates a contract.
func Parse(data []byte) (*Contract, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Contract
	if err := dec.Decode(&c); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.NewInvalidContract("name", "contract file is empty")
		}
		return nil, errors.NewInvalidContract("yaml", err.Error())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the contract without opening its source.
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.NewInvalidContract("name", "required")
	}
	if err := c.Source.validate(); err != nil {
		return err
	}
	if len(c.Checks) == 0 {
		return errors.NewInvalidContract("checks", "at least one check is required")
	}
	_, err := c.Build()
	return err
}

func (s SourceSpec) validate() error {
	if s.Kind == "" {
		return errors.NewInvalidContract("source.kind", "required")
	}
	registry := builtin.Registry()
	if !registry.Has(s.Kind) {
		return errors.NewUnknownSource(s.Kind, registry.Kinds())
	}

	switch {
	case s.Kind == csv.Kind:
		if s.Location == "" {
			return errors.NewInvalidContract("source.location", "required for csv sources")
		}
		if s.Query != "" {
			return errors.NewInvalidContract("source.query", "csv sources do not take a query")
		}
	case builtin.QueryKinds[s.Kind]:
		if strings.TrimSpace(s.Query) == "" {
			return errors.NewInvalidContract("source.query", fmt.Sprintf("required for %s sources", s.Kind))
		}
	}
	if s.Kind == bigquery.Kind && s.Project == "" {
		return errors.NewInvalidContract("source.project", "required for bigquery sources")
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, name := range s.Columns {
		switch {
		case strings.TrimSpace(name) == "":
			return errors.NewInvalidContract("source.columns", "column names must not be empty")
		case name == s.Index:
			return errors.NewInvalidContract("source.columns", fmt.Sprintf("%q is the index column", name))
		case seen[name]:
			return errors.NewInvalidContract("source.columns", fmt.Sprintf("%q is listed twice", name))
		}
		seen[name] = true
	}
	return nil
}

// Build builds every check entry in order.
func (c *Contract) Build() ([]checks.Check, error) {
	built := make([]checks.Check, len(c.Checks))
	for i, spec := range c.Checks {
		check, err := spec.Build(fmt.Sprintf("checks[%d]", i))
		if err != nil {
			return nil, err
		}
		built[i] = check
	}
	return built, nil
}
