package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Parameter names stamped on every run identity.
const (
	ParamRunID    = "run.id"
	ParamBaseDate = "baseDate"
)

// JobRunIdentity distinguishes one job execution and its filter parameters
// from every other execution of the same job.
type JobRunIdentity struct {
	JobName     string
	RunID       int64
	BaseDate    string
	Params      map[string]string
	ExecutionID string
}

// Param returns a carried filter parameter.
func (r JobRunIdentity) Param(name string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[name]
}

// Key renders the identity deterministically: run id, base date, then the
// filter parameters sorted by name. ExecutionID is not part of the key.
func (r JobRunIdentity) Key() string {
	names := make([]string, 0, len(r.Params))
	for name := range r.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s=%d,%s=%s", ParamRunID, r.RunID, ParamBaseDate, r.BaseDate)
	for _, name := range names {
		fmt.Fprintf(&b, ",%s=%s", name, r.Params[name])
	}
	return b.String()
}

// ExecutionContext is handed to step factories once the before-job hooks
// ran. Processors read the resolved source id from it instead of looking it
// up again.
type ExecutionContext struct {
	Identity JobRunIdentity
	Source   SourceRecord
}
