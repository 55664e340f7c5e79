// Package job runs chunk-oriented ingestion jobs: a reader, a processor and a
// writer connected by a bounded loop, preceded by run-identity allocation and
// source resolution.
package job

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"ContentIngestor/internal/domain"
)

// ErrFatal marks configuration failures that must abort a job without retry.
var ErrFatal = errors.New("fatal job error")

// ErrUnknownJob is returned when no definition is registered under a name.
var ErrUnknownJob = errors.New("job is not registered")

// Fatal marks err as fatal.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrFatal)
}

// IsFatal reports whether err carries the fatal mark.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// Step is one unit of a job. Steps of a job run sequentially.
type Step interface {
	Name() string
	Run(ctx context.Context) (domain.StepReport, error)
}

// SourceRef names the logical source a job ingests from.
type SourceRef struct {
	URL      string
	Category string
}

// StepFactory assembles the steps of one execution. It runs after the
// before-job hooks, so exec.Source is already resolved.
type StepFactory func(exec domain.ExecutionContext) ([]Step, error)

// Definition describes a registered job.
type Definition struct {
	Name string
	// Cron is optional; an empty expression means manual runs only.
	Cron   string
	Source *SourceRef
	// Params are defaults; caller parameters override them.
	Params map[string]string
	Build  StepFactory
}

func (d Definition) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return Fatal(errors.New("job name is required"))
	}
	if d.Build == nil {
		return Fatal(errors.Newf("job %s has no step factory", d.Name))
	}
	if d.Source != nil && (strings.TrimSpace(d.Source.URL) == "" || strings.TrimSpace(d.Source.Category) == "") {
		return Fatal(errors.Newf("job %s has an incomplete source reference", d.Name))
	}
	return nil
}

func (d Definition) mergeParams(params map[string]string) map[string]string {
	merged := make(map[string]string, len(d.Params)+len(params))
	for k, v := range d.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}
