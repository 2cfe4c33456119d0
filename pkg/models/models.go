// Package models provides the shared report models for contract runs.
// They are the JSON output of `engarde check --json` and the rows of the
// audit store.
package models

import (
	"time"

	"github.com/canonica-labs/engarde/pkg/frame"
)

// Outcome is the result of a whole contract run.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeViolated Outcome = "violated"
	OutcomeError    Outcome = "error"
)

// CheckOutcome is the result of one check within a run.
type CheckOutcome string

const (
	CheckPassed  CheckOutcome = "passed"
	CheckFailed  CheckOutcome = "failed"
	CheckSkipped CheckOutcome = "skipped"
)

// Report is the outcome of one contract run.
type Report struct {
	RunID       string        `json:"run_id"`
	Contract    string        `json:"contract"`
	Source      string        `json:"source"`
	StartedAt   time.Time     `json:"started_at"`
	DurationMs  int64         `json:"duration_ms"`
	Rows        int           `json:"rows"`
	Cols        int           `json:"cols"`
	Outcome     Outcome       `json:"outcome"`
	Results     []CheckResult `json:"results"`
	Error       string        `json:"error,omitempty"`
	LoadRetries int           `json:"load_retries,omitempty"`
}

// Failed returns the results that failed, in contract order.
func (r *Report) Failed() []CheckResult {
	var failed []CheckResult
	for _, res := range r.Results {
		if res.Outcome == CheckFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Violations returns the number of reported cell locations across all failures.
func (r *Report) Violations() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Locations)
	}
	return n
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	// Position is the check's index in the contract.
	Position   int              `json:"position"`
	Check      string           `json:"check"`
	Outcome    CheckOutcome     `json:"outcome"`
	Kind       string           `json:"kind,omitempty"`
	Message    string           `json:"message,omitempty"`
	Expected   string           `json:"expected,omitempty"`
	Observed   string           `json:"observed,omitempty"`
	Locations  []frame.Location `json:"locations,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// RunSummary aggregates stored runs.
type RunSummary struct {
	TotalRuns        int                `json:"total_runs"`
	PassedRuns       int                `json:"passed_runs"`
	ViolatedRuns     int                `json:"violated_runs"`
	ErrorRuns        int                `json:"error_runs"`
	TopFailingChecks []CheckFailureStat `json:"top_failing_checks"`
	TopContracts     []ContractStat     `json:"top_violated_contracts"`
}

// CheckFailureStat counts failures of one check name.
type CheckFailureStat struct {
	Check string `json:"check"`
	Count int    `json:"count"`
}

// ContractStat counts violated runs of one contract.
type ContractStat struct {
	Contract string `json:"contract"`
	Count    int    `json:"count"`
}

// NewRunSummary returns an empty summary with non-nil lists.
func NewRunSummary() *RunSummary {
	return &RunSummary{
		TopFailingChecks: []CheckFailureStat{},
		TopContracts:     []ContractStat{},
	}
}

// ErrorResponse is the JSON shape of a CLI error.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
}

// SourceInfo describes a source kind for `engarde sources`.
type SourceInfo struct {
	Kind        string `json:"kind"`
	Query       bool   `json:"query"`
	Description string `json:"description"`
}

// DoctorCheck is one line of `engarde doctor` output.
type DoctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}
