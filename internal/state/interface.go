// Package state provides SQLite-backed persistence for run snapshots.
package state

import (
	"io"

	"github.com/Gnoscenti/founder-autopilot/pkg/models"
)

// Snapshot is the full persisted state of one run: the run record plus its
// entire task graph. A snapshot is written after every committed transition,
// which is the system's sole durability guarantee.
type Snapshot struct {
	Run   models.Run     `json:"run"`
	Tasks []*models.Task `json:"tasks"`
}

// RunSummary is the projection returned by listing queries.
type RunSummary struct {
	ID        string
	Goal      string
	Status    models.RunStatus
	CreatedAt string
	UpdatedAt string
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// RunRepository is the persistence interface consumed by the run controller.
// It allows the orchestration logic to work with any snapshot backend
// without depending on the concrete SQLite implementation.
type RunRepository interface {
	io.Closer
	Migrator

	// CreateRun stores the initial snapshot for a new run.
	CreateRun(snap *Snapshot) error
	// GetRun loads the latest snapshot, or ErrRunNotFound.
	GetRun(runID string) (*Snapshot, error)
	// UpdateRun replaces the stored snapshot for an existing run.
	UpdateRun(snap *Snapshot) error
	// ListRuns returns summaries of all stored runs, newest first.
	ListRuns() ([]RunSummary, error)
}

// Compile-time verification that DB implements the repository.
var (
	_ RunRepository = (*DB)(nil)
	_ Migrator      = (*DB)(nil)
)
