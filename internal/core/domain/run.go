package domain

import (
	"fmt"
	"sync"
	"time"
)

// IngestionRun accumulates chunk dispositions across one pipeline
// execution. Source pipelines run in parallel and all write here, so the
// counters sit behind a mutex; it is the only shared mutable state in a run.
// Not persisted.
type IngestionRun struct {
	mu      sync.Mutex
	summary RunSummary
	reports []SourceReport
	started time.Time
}

// NewIngestionRun starts an empty run.
func NewIngestionRun() *IngestionRun {
	return &IngestionRun{started: time.Now()}
}

// RecordNew counts chunks embedded and inserted for the first time.
func (r *IngestionRun) RecordNew(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.New += n
}

// RecordUpdated counts chunks re-embedded because their hash changed.
func (r *IngestionRun) RecordUpdated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Updated += n
}

// RecordSkipped counts chunks left untouched because their hash matched.
func (r *IngestionRun) RecordSkipped(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Skipped += n
}

// RecordFailed counts chunks whose embedding call failed.
func (r *IngestionRun) RecordFailed(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Failed += n
}

// AddReport attaches one source pipeline's report to the run.
func (r *IngestionRun) AddReport(report SourceReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

// Summary snapshots the aggregated counters.
func (r *IngestionRun) Summary() RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	s.Duration = time.Since(r.started)
	s.Reports = make([]SourceReport, len(r.reports))
	copy(s.Reports, r.reports)
	return s
}

// RunSummary is the final tally for one ingestion run, distinguishing
// intentionally skipped (unchanged) chunks from ones that failed to process.
type RunSummary struct {
	// New is the count of chunks embedded and inserted for the first time.
	New int

	// Updated is the count of chunks re-embedded after a hash change.
	Updated int

	// Skipped is the count of unchanged chunks, no embedding call made.
	Skipped int

	// Failed is the count of chunks whose embedding call failed.
	Failed int

	// Duration is the wall-clock time of the run.
	Duration time.Duration

	// Reports holds the per-source breakdowns.
	Reports []SourceReport
}

// String renders the summary in the run-output format.
func (s RunSummary) String() string {
	return fmt.Sprintf("new=%d updated=%d skipped=%d failed=%d",
		s.New, s.Updated, s.Skipped, s.Failed)
}

// SourceReport is one source pipeline's breakdown. Each pipeline is the
// single writer of its own report, so no locking is needed here.
type SourceReport struct {
	// Source is the provider this report covers.
	Source SourceType

	// Records is how many raw records the paginator yielded.
	Records int

	// Malformed is how many records the normaliser rejected.
	Malformed int

	// Chunks is how many chunks the documents produced.
	Chunks int

	// New, Updated, Skipped, Failed mirror the run counters for this
	// source alone.
	New     int
	Updated int
	Skipped int
	Failed  int

	// Err is set when the source aborted (transport/auth failure).
	// Records yielded before the abort were still processed.
	Err error

	// Duration is the pipeline's wall-clock time.
	Duration time.Duration
}
