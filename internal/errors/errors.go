// Package errors provides explicit, human-readable error types for the
// engarde tooling. Every error carries a Reason and a Suggestion so that a
// failed contract run can be acted on without reading code.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/canonica-labs/engarde/pkg/checks"
)

// EngardeError is the base error type for all tooling errors.
type EngardeError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code mapping.
type ErrorCode int

const (
	CodeViolation ErrorCode = 1
	CodeConfig    ErrorCode = 2
	CodeSource    ErrorCode = 3
	CodeInternal  ErrorCode = 4
)

func (e *EngardeError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *EngardeError) Unwrap() error {
	return e.Cause
}

// Base returns e. Typed errors inherit it through embedding, which lets
// Details find the shared fields on any of them.
func (e *EngardeError) Base() *EngardeError {
	return e
}

// Details returns the first EngardeError in err's chain.
func Details(err error) (*EngardeError, bool) {
	var b interface{ Base() *EngardeError }
	if stderrors.As(err, &b) {
		return b.Base(), true
	}
	return nil, false
}

// ErrContractViolated is returned when a contract's check fails on the loaded table.
type ErrContractViolated struct {
	EngardeError
	Contract  string
	Check     string
	Assertion *checks.AssertionError
}

// NewContractViolated wraps a check failure with the contract it belongs to.
func NewContractViolated(contract string, assertion *checks.AssertionError) *ErrContractViolated {
	return &ErrContractViolated{
		EngardeError: EngardeError{
			Code:       CodeViolation,
			Message:    fmt.Sprintf("contract %s violated by check %s", contract, assertion.Check),
			Reason:     assertion.Message,
			Suggestion: "inspect the reported locations in the source data",
			Cause:      assertion,
		},
		Contract:  contract,
		Check:     assertion.Check,
		Assertion: assertion,
	}
}

// ErrInvalidContract is returned when a contract file is malformed.
type ErrInvalidContract struct {
	EngardeError
	Field string
}

// NewInvalidContract creates a new ErrInvalidContract.
func NewInvalidContract(field, reason string) *ErrInvalidContract {
	return &ErrInvalidContract{
		EngardeError: EngardeError{
			Code:       CodeConfig,
			Message:    "invalid contract",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "validate the file with 'engarde contract validate <file>'",
		},
		Field: field,
	}
}

// ErrUnknownCheck is returned when a contract names a check that does not exist.
type ErrUnknownCheck struct {
	EngardeError
	Check string
}

// NewUnknownCheck creates a new ErrUnknownCheck.
func NewUnknownCheck(name string, known []string) *ErrUnknownCheck {
	return &ErrUnknownCheck{
		EngardeError: EngardeError{
			Code:       CodeConfig,
			Message:    fmt.Sprintf("unknown check: %s", name),
			Reason:     fmt.Sprintf("known checks: %v", known),
			Suggestion: "fix the 'check' field of the contract entry",
		},
		Check: name,
	}
}

// ErrUnknownSource is returned when a contract names an unsupported source kind.
type ErrUnknownSource struct {
	EngardeError
	Kind string
}

// NewUnknownSource creates a new ErrUnknownSource.
func NewUnknownSource(kind string, known []string) *ErrUnknownSource {
	return &ErrUnknownSource{
		EngardeError: EngardeError{
			Code:       CodeConfig,
			Message:    fmt.Sprintf("unknown source kind: %s", kind),
			Reason:     fmt.Sprintf("supported kinds: %v", known),
			Suggestion: "list source kinds with 'engarde sources'",
		},
		Kind: kind,
	}
}

// ErrSourceUnavailable is returned when a source cannot be opened or read.
type ErrSourceUnavailable struct {
	EngardeError
	Source string
}

// NewSourceUnavailable creates a new ErrSourceUnavailable.
func NewSourceUnavailable(source string, cause error) *ErrSourceUnavailable {
	return &ErrSourceUnavailable{
		EngardeError: EngardeError{
			Code:       CodeSource,
			Message:    fmt.Sprintf("source %s unavailable", source),
			Reason:     "the table could not be loaded",
			Suggestion: "check connectivity with 'engarde doctor <contract>'",
			Cause:      cause,
		},
		Source: source,
	}
}

// ErrQueryRejected is returned when a source query is rejected before execution.
type ErrQueryRejected struct {
	EngardeError
	Query string
}

// NewQueryRejected creates a new ErrQueryRejected.
func NewQueryRejected(query, reason, suggestion string) *ErrQueryRejected {
	return &ErrQueryRejected{
		EngardeError: EngardeError{
			Code:       CodeConfig,
			Message:    "query rejected",
			Reason:     reason,
			Suggestion: suggestion,
		},
		Query: query,
	}
}

// NewWriteNotAllowed creates an error for statements that would modify data.
func NewWriteNotAllowed(query, operation string) *ErrQueryRejected {
	return &ErrQueryRejected{
		EngardeError: EngardeError{
			Code:       CodeConfig,
			Message:    fmt.Sprintf("%s statement not allowed", operation),
			Reason:     "contract sources are read-only",
			Suggestion: "use a SELECT query",
		},
		Query: query,
	}
}

// ErrInvalidConfig is returned when configuration cannot be loaded or is inconsistent.
type ErrInvalidConfig struct {
	EngardeError
	Key string
}

// NewInvalidConfig creates a new ErrInvalidConfig.
func NewInvalidConfig(key, reason string) *ErrInvalidConfig {
	return &ErrInvalidConfig{
		EngardeError: EngardeError{
			Code:       CodeConfig,
			Message:    "invalid configuration",
			Reason:     fmt.Sprintf("key '%s': %s", key, reason),
			Suggestion: "check ~/.engarde/config.yaml and ENGARDE_* environment variables",
		},
		Key: key,
	}
}

// ErrMigrationFailed is returned when an audit store migration fails.
type ErrMigrationFailed struct {
	EngardeError
	Migration string
}

// NewMigrationFailed creates a new ErrMigrationFailed.
func NewMigrationFailed(migration string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		EngardeError: EngardeError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("migration failed: %s", migration),
			Reason:     "the audit store schema could not be updated",
			Suggestion: "check audit.dsn and database permissions",
			Cause:      cause,
		},
		Migration: migration,
	}
}

// CodeOf returns the error code of the first EngardeError in err's chain,
// CodeViolation for a bare check assertion, and CodeInternal otherwise.
func CodeOf(err error) ErrorCode {
	for e := err; e != nil; {
		switch x := e.(type) {
		case *EngardeError:
			return x.Code
		case *ErrContractViolated:
			return x.Code
		case *ErrInvalidContract:
			return x.Code
		case *ErrUnknownCheck:
			return x.Code
		case *ErrUnknownSource:
			return x.Code
		case *ErrSourceUnavailable:
			return x.Code
		case *ErrQueryRejected:
			return x.Code
		case *ErrInvalidConfig:
			return x.Code
		case *ErrMigrationFailed:
			return x.Code
		case *checks.AssertionError:
			return CodeViolation
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return CodeInternal
}
