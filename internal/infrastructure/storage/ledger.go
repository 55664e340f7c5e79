// Package storage persists run identities so run ids keep increasing across
// restarts.
package storage

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrRunExists is returned when a run id was already recorded for a job.
	ErrRunExists = errors.New("run already recorded")
	// ErrRunNotFound is returned when finishing a run that was never started.
	ErrRunNotFound = errors.New("run not found")
)
