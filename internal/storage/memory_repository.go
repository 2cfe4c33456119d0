package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/pkg/frame"
	"github.com/canonica-labs/engarde/pkg/models"
)

// MemoryRunRepository is an in-memory RunRepository used by tests and by
// runs with the audit store disabled.
// It is thread-safe and respects context cancellation.
type MemoryRunRepository struct {
	mu    sync.RWMutex
	runs  map[string]*models.Report
	order []string

	// Test helper fields for simulating failures
	connectivityFailure     bool
	persistenceFailure      bool
	connectivityCheckCalled bool
}

// NewMemoryRunRepository creates an empty repository.
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*models.Report)}
}

// Save stores a copy of the report.
func (r *MemoryRunRepository) Save(ctx context.Context, report *models.Report) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if report == nil || report.RunID == "" {
		return fmt.Errorf("storage: run_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return errors.NewSourceUnavailable("audit store", fmt.Errorf("persistence failure (simulated)"))
	}
	if _, exists := r.runs[report.RunID]; exists {
		return fmt.Errorf("storage: run %s already exists", report.RunID)
	}

	r.runs[report.RunID] = copyReport(report)
	r.order = append(r.order, report.RunID)
	return nil
}

// Get returns a copy of a stored report.
func (r *MemoryRunRepository) Get(ctx context.Context, runID string) (*models.Report, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return copyReport(report), nil
}

// Runs returns copies of every stored report in save order.
func (r *MemoryRunRepository) Runs() []*models.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Report, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyReport(r.runs[id]))
	}
	return out
}

// Summary aggregates every stored run with the same ranking as the SQL store.
func (r *MemoryRunRepository) Summary(ctx context.Context) (*models.RunSummary, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := models.NewRunSummary()
	checkCounts := make(map[string]int)
	contractCounts := make(map[string]int)

	for _, report := range r.runs {
		summary.TotalRuns++
		switch report.Outcome {
		case models.OutcomePassed:
			summary.PassedRuns++
		case models.OutcomeViolated:
			summary.ViolatedRuns++
			contractCounts[report.Contract]++
		case models.OutcomeError:
			summary.ErrorRuns++
		}
		for _, res := range report.Results {
			if res.Outcome == models.CheckFailed {
				checkCounts[res.Check]++
			}
		}
	}

	for name, n := range checkCounts {
		summary.TopFailingChecks = append(summary.TopFailingChecks, models.CheckFailureStat{Check: name, Count: n})
	}
	sort.Slice(summary.TopFailingChecks, func(i, j int) bool {
		a, b := summary.TopFailingChecks[i], summary.TopFailingChecks[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Check < b.Check
	})
	if len(summary.TopFailingChecks) > topN {
		summary.TopFailingChecks = summary.TopFailingChecks[:topN]
	}

	for name, n := range contractCounts {
		summary.TopContracts = append(summary.TopContracts, models.ContractStat{Contract: name, Count: n})
	}
	sort.Slice(summary.TopContracts, func(i, j int) bool {
		a, b := summary.TopContracts[i], summary.TopContracts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Contract < b.Contract
	})
	if len(summary.TopContracts) > topN {
		summary.TopContracts = summary.TopContracts[:topN]
	}

	return summary, nil
}

// copyReport creates a deep copy of a report.
func copyReport(src *models.Report) *models.Report {
	dst := *src
	if src.Results != nil {
		dst.Results = make([]models.CheckResult, len(src.Results))
		for i, res := range src.Results {
			dst.Results[i] = res
			if res.Locations != nil {
				dst.Results[i].Locations = append([]frame.Location(nil), res.Locations...)
			}
		}
	}
	return &dst
}

// SetConnectivityFailure configures the repository to simulate connectivity failures.
func (r *MemoryRunRepository) SetConnectivityFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityFailure = fail
}

// SetPersistenceFailure configures the repository to simulate persistence failures.
func (r *MemoryRunRepository) SetPersistenceFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistenceFailure = fail
}

// CheckConnectivity reports the simulated connectivity state.
func (r *MemoryRunRepository) CheckConnectivity(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityCheckCalled = true

	if r.connectivityFailure {
		return errors.NewSourceUnavailable("audit store", fmt.Errorf("connectivity failure (simulated)"))
	}
	return nil
}

// ConnectivityCheckCalled returns whether CheckConnectivity was called.
func (r *MemoryRunRepository) ConnectivityCheckCalled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connectivityCheckCalled
}

var _ RunRepository = (*MemoryRunRepository)(nil)
