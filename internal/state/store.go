// Package state keeps the history of QC runs in a SQLite database: one
// row per run and one row per table the run looked at.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when no run matches an id.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded QC run.
type Run struct {
	ID            string
	Task          string
	SchemaYear    string
	DomainMode    string
	Workspace     string
	Status        RunStatus
	StartedAt     time.Time
	CompletedAt   *time.Time
	TotalFindings int
	Error         string
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunParams describe a run about to start.
type RunParams struct {
	Task       string
	SchemaYear string
	DomainMode string
	Workspace  string
}

// RunTable is the outcome of one table within a run.
type RunTable struct {
	RunID    string
	Table    string
	Rows     int
	Findings int
	// Status is the engine's table status (validated, empty, uncataloged).
	Status   string
	Advisory string
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, p RunParams) (*Run, error)
	RecordTable(ctx context.Context, t RunTable) error
	CompleteRun(ctx context.Context, id string, status RunStatus, totalFindings int, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	GetRunTables(ctx context.Context, id string) ([]RunTable, error)
	Close() error
}
