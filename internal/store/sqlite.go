package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite run store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		status TEXT NOT NULL,
		cohort_size INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		output_path TEXT,
		error TEXT,
		attributes TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS manifest_rows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		patient_barcode TEXT NOT NULL,
		wsi_file_ids TEXT NOT NULL,
		rna_file_ids TEXT NOT NULL,
		meth_file_ids TEXT NOT NULL,
		mut_file_ids TEXT NOT NULL,
		clinical TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project);
	`

	_, err := db.Exec(schema)
	return err
}

// StartRun records a new running build.
func (s *SQLiteStore) StartRun(ctx context.Context, project string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Project:   project,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, project, status, started_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Project, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun records the outcome of a build.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, outcome RunOutcome) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, cohort_size = ?, row_count = ?, output_path = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		string(outcome.Status), outcome.CohortSize, outcome.RowCount,
		nullable(outcome.OutputPath), nullable(outcome.Error), time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return expectOneRow(result)
}

// SaveManifest replaces the stored rows of a run.
func (s *SQLiteStore) SaveManifest(ctx context.Context, runID string, manifest *domain.Manifest) error {
	attributes, err := encodeAttributes(manifest.Attributes)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE runs SET attributes = ? WHERE id = ?", attributes, runID)
	if err != nil {
		return fmt.Errorf("failed to update run attributes: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM manifest_rows WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear manifest rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO manifest_rows (run_id, position, patient_barcode, wsi_file_ids, rna_file_ids, meth_file_ids, mut_file_ids, clinical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range manifest.Rows {
		clinical, err := encodeClinical(row.Clinical, manifest.Attributes)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, runID, i, row.PatientBarcode,
			row.FileIDs[domain.ModalityWSI], row.FileIDs[domain.ModalityRNA],
			row.FileIDs[domain.ModalityMeth], row.FileIDs[domain.ModalityMut], clinical)
		if err != nil {
			return fmt.Errorf("failed to insert manifest row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manifest: %w", err)
	}
	return nil
}

// GetRun retrieves one run.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	limit, offset = listLimit(limit, offset)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetManifest rebuilds the stored manifest of a run in its original order.
func (s *SQLiteStore) GetManifest(ctx context.Context, runID string) (*domain.Manifest, error) {
	var attributes sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT attributes FROM runs WHERE id = ?", runID).Scan(&attributes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run attributes: %w", err)
	}
	if !attributes.Valid {
		return nil, ErrManifestNotFound
	}

	attrs, err := decodeAttributes(attributes.String)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_barcode, wsi_file_ids, rna_file_ids, meth_file_ids, mut_file_ids, clinical
		FROM manifest_rows WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query manifest rows: %w", err)
	}
	defer rows.Close()

	manifest := &domain.Manifest{Attributes: attrs, Rows: []domain.ManifestRow{}}
	for rows.Next() {
		row, err := scanManifestRow(rows, attrs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manifest row: %w", err)
		}
		manifest.Rows = append(manifest.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	manifest.CohortSize = len(manifest.Rows)
	return manifest, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}
