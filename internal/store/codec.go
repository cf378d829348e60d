package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// ErrManifestNotFound is returned when a run exists but stored no rows.
var ErrManifestNotFound = errors.New("manifest not stored for run")

const defaultListLimit = 20

const runColumns = "id, project, status, cohort_size, row_count, output_path, error, started_at, finished_at"

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRun scans a row selected with runColumns.
func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var status string
	var outputPath, errText sql.NullString
	var finished sql.NullTime

	err := s.Scan(
		&run.ID, &run.Project, &status, &run.CohortSize, &run.RowCount,
		&outputPath, &errText, &run.StartedAt, &finished,
	)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.OutputPath = outputPath.String
	run.Error = errText.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// encodeAttributes stores the attribute order of a manifest.
func encodeAttributes(attributes []string) (string, error) {
	b, err := json.Marshal(attributes)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(b), nil
}

func decodeAttributes(raw string) ([]string, error) {
	var attributes []string
	if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attributes, nil
}

// encodeClinical stores a profile as a JSON array in attribute order;
// ABSENT becomes null.
func encodeClinical(profile domain.ResolvedClinicalProfile, attributes []string) (string, error) {
	values := make([]domain.AttributeValue, len(attributes))
	for i, a := range attributes {
		values[i] = profile[a]
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode clinical profile: %w", err)
	}
	return string(b), nil
}

func decodeClinical(raw string, attributes []string) (domain.ResolvedClinicalProfile, error) {
	var values []domain.AttributeValue
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode clinical profile: %w", err)
	}
	if len(values) != len(attributes) {
		return nil, fmt.Errorf("clinical profile has %d values for %d attributes", len(values), len(attributes))
	}
	profile := make(domain.ResolvedClinicalProfile, len(attributes))
	for i, a := range attributes {
		profile[a] = values[i]
	}
	return profile, nil
}

// scanManifestRow scans patient, the four file id cells and the clinical JSON.
func scanManifestRow(s scanner, attributes []string) (domain.ManifestRow, error) {
	var row domain.ManifestRow
	var wsi, rna, meth, mut, clinical string

	if err := s.Scan(&row.PatientBarcode, &wsi, &rna, &meth, &mut, &clinical); err != nil {
		return row, err
	}

	profile, err := decodeClinical(clinical, attributes)
	if err != nil {
		return row, err
	}

	row.FileIDs = map[domain.Modality]string{
		domain.ModalityWSI:  wsi,
		domain.ModalityRNA:  rna,
		domain.ModalityMeth: meth,
		domain.ModalityMut:  mut,
	}
	row.Clinical = profile
	return row, nil
}

func listLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
