package runner

import "time"

// Status is the terminal state of an executed case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// CaseResult records one case's outcome after all retry attempts.
type CaseResult struct {
	Suite      string        `json:"suite"`
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
}

// FullName returns the suite-qualified case name used by filters and reports.
func (r CaseResult) FullName() string {
	return r.Suite + "/" + r.Name
}

// RunSummary aggregates every case result for one run.
type RunSummary struct {
	RunID       string        `json:"run_id" badgerhold:"key"`
	Environment string        `json:"environment"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Results     []CaseResult  `json:"results"`
}

// OK reports whether the run had no failures.
func (s RunSummary) OK() bool {
	return s.Failed == 0
}

// Failures returns only the failed case results.
func (s RunSummary) Failures() []CaseResult {
	var out []CaseResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}
