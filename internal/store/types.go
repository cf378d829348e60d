// Package store provides run history storage for manifest builds.
// Every build is recorded with its cohort size so operators can track the
// count across runs; successful builds also keep their manifest rows.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// RunStatus represents the lifecycle state of a build.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded manifest build.
type Run struct {
	ID         string     `json:"id"`
	Project    string     `json:"project"`
	Status     RunStatus  `json:"status"`
	CohortSize int        `json:"cohort_size"`
	RowCount   int        `json:"row_count"`
	OutputPath string     `json:"output_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunOutcome is what a finished build reports back.
type RunOutcome struct {
	Status     RunStatus
	CohortSize int
	RowCount   int
	OutputPath string
	Error      string
}

// Store defines the interface for run history operations.
type Store interface {
	// StartRun records a new running build and assigns its id.
	StartRun(ctx context.Context, project string) (*Run, error)

	// FinishRun records the outcome of a build.
	FinishRun(ctx context.Context, runID string, outcome RunOutcome) error

	// SaveManifest stores the manifest rows of a run in manifest order.
	// ABSENT clinical values are stored as NULL.
	SaveManifest(ctx context.Context, runID string, manifest *domain.Manifest) error

	// GetRun retrieves one run. Returns ErrRunNotFound if unknown.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns runs, most recent first.
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	// GetManifest rebuilds the stored manifest of a run.
	GetManifest(ctx context.Context, runID string) (*domain.Manifest, error)

	// Close closes the store and releases resources.
	Close() error
}
