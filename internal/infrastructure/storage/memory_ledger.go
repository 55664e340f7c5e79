package storage

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

// Run is a recorded execution.
type Run struct {
	Identity domain.JobRunIdentity
	Status   domain.RunStatus
}

// MemoryLedger keeps runs in process memory. Used for one-off runs without
// a database.
type MemoryLedger struct {
	mu   sync.Mutex
	runs map[string][]Run
}

var _ ports.RunLedger = (*MemoryLedger)(nil)

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{runs: map[string][]Run{}}
}

// LastRunID returns the highest run id recorded for jobName.
func (m *MemoryLedger) LastRunID(_ context.Context, jobName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var last int64
	for _, run := range m.runs[jobName] {
		if run.Identity.RunID > last {
			last = run.Identity.RunID
		}
	}
	return last, nil
}

// Start records identity as started.
func (m *MemoryLedger) Start(_ context.Context, identity domain.JobRunIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.runs[identity.JobName] {
		if run.Identity.RunID == identity.RunID {
			return errors.Wrapf(ErrRunExists, "%s run %d", identity.JobName, identity.RunID)
		}
	}
	m.runs[identity.JobName] = append(m.runs[identity.JobName], Run{Identity: identity, Status: domain.RunStarted})
	return nil
}

// Finish sets the terminal status of a started run.
func (m *MemoryLedger) Finish(_ context.Context, identity domain.JobRunIdentity, status domain.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := m.runs[identity.JobName]
	for i := range runs {
		if runs[i].Identity.RunID == identity.RunID {
			runs[i].Status = status
			return nil
		}
	}
	return errors.Wrapf(ErrRunNotFound, "%s run %d", identity.JobName, identity.RunID)
}

// Runs returns a copy of the runs recorded for jobName in start order.
func (m *MemoryLedger) Runs(jobName string) []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Run(nil), m.runs[jobName]...)
}
