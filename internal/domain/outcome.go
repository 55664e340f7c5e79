package domain

import "time"

// BatchWriteOutcome is the per-chunk result reported by the downstream store.
type BatchWriteOutcome struct {
	TotalCount      int      `json:"totalCount"`
	SuccessCount    int      `json:"successCount"`
	FailureCount    int      `json:"failureCount"`
	FailureMessages []string `json:"failureMessages"`
}

// Consistent reports whether success and failure counts add up to the total.
func (o BatchWriteOutcome) Consistent() bool {
	return o.SuccessCount+o.FailureCount == o.TotalCount
}

// RunStatus is the terminal state of a job execution.
type RunStatus string

const (
	RunStarted   RunStatus = "STARTED"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// StepReport summarizes one step of a job execution.
type StepReport struct {
	Name    string
	Read    int
	Skipped int
	Written int
	Failed  int
	Chunks  int

	// FailureMessages carries the per-item messages of accepted chunks.
	FailureMessages []string
}

// JobReport is delivered to the notifier once a job finishes.
type JobReport struct {
	Identity        JobRunIdentity
	Status          RunStatus
	Steps           []StepReport
	StartedAt       time.Time
	Elapsed         time.Duration
	Errors          []string
	FailureMessages []string
}

// Totals sums the step counters.
func (r JobReport) Totals() StepReport {
	total := StepReport{Name: "total"}
	for _, s := range r.Steps {
		total.Read += s.Read
		total.Skipped += s.Skipped
		total.Written += s.Written
		total.Failed += s.Failed
		total.Chunks += s.Chunks
	}
	return total
}
