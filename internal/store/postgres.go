package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL run store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL run store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string, maxOpenConns int) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// StartRun records a new running build.
func (s *PostgresStore) StartRun(ctx context.Context, project string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Project:   project,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, project, status, started_at) VALUES ($1, $2, $3, $4)",
		run.ID, run.Project, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun records the outcome of a build.
func (s *PostgresStore) FinishRun(ctx context.Context, runID string, outcome RunOutcome) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = $1, cohort_size = $2, row_count = $3, output_path = $4, error = $5, finished_at = $6
		WHERE id = $7`,
		string(outcome.Status), outcome.CohortSize, outcome.RowCount,
		nullable(outcome.OutputPath), nullable(outcome.Error), time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return expectOneRow(result)
}

// SaveManifest replaces the stored rows of a run.
func (s *PostgresStore) SaveManifest(ctx context.Context, runID string, manifest *domain.Manifest) error {
	attributes, err := encodeAttributes(manifest.Attributes)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE runs SET attributes = $1 WHERE id = $2", attributes, runID)
	if err != nil {
		return fmt.Errorf("failed to update run attributes: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM manifest_rows WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("failed to clear manifest rows: %w", err)
	}

	query := `
		INSERT INTO manifest_rows (run_id, position, patient_barcode, wsi_file_ids, rna_file_ids, meth_file_ids, mut_file_ids, clinical)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i, row := range manifest.Rows {
		clinical, err := encodeClinical(row.Clinical, manifest.Attributes)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, runID, i, row.PatientBarcode,
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
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = $1", runID)
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
func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	limit, offset = listLimit(limit, offset)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT $1 OFFSET $2",
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
func (s *PostgresStore) GetManifest(ctx context.Context, runID string) (*domain.Manifest, error) {
	var attributes sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT attributes::text FROM runs WHERE id = $1", runID).Scan(&attributes)
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
		SELECT patient_barcode, wsi_file_ids, rna_file_ids, meth_file_ids, mut_file_ids, clinical::text
		FROM manifest_rows WHERE run_id = $1 ORDER BY position`, runID)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
