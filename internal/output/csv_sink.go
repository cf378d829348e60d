// Package output renders assembled manifests as CSV to local files or
// Cloud Storage.
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// Opener opens a manifest destination.
type Opener func(ctx context.Context, path string) (Destination, error)

// CSVSink writes manifests as CSV. It implements domain.ManifestSink.
type CSVSink struct {
	placeholder string
	open        Opener
	logger      *logrus.Logger
}

// NewCSVSink creates a CSV sink rendering ABSENT values as placeholder.
func NewCSVSink(placeholder string, logger *logrus.Logger) *CSVSink {
	return &CSVSink{placeholder: placeholder, open: OpenDestination, logger: logger}
}

// WithOpener replaces how destinations are opened.
func (s *CSVSink) WithOpener(open Opener) *CSVSink {
	s.open = open
	return s
}

// WriteManifest writes the whole manifest or nothing.
func (s *CSVSink) WriteManifest(ctx context.Context, runID, destination string, manifest *domain.Manifest) error {
	dest, err := s.open(ctx, destination)
	if err != nil {
		return err
	}

	if err := WriteCSV(dest, manifest, s.placeholder); err != nil {
		dest.Abort()
		return err
	}
	if err := dest.Commit(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"destination": destination,
		"rows":        len(manifest.Rows),
	}).Info("Manifest written")
	return nil
}

// WriteCSV renders manifest to w: the header row, then one record per row
// in manifest order.
func WriteCSV(w io.Writer, manifest *domain.Manifest, placeholder string) error {
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))

	if err := writer.Write(manifest.Header()); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	for _, row := range manifest.Rows {
		if err := writer.Write(row.Record(manifest.Attributes, placeholder)); err != nil {
			return fmt.Errorf("failed to write manifest row %s: %w", row.PatientBarcode, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	return nil
}

// ManifestTable is a manifest read back from CSV.
type ManifestTable struct {
	Header  []string
	Records [][]string
}

// Column returns the index of name in the header, or -1.
func (t *ManifestTable) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadManifestCSV parses a written manifest back into header and records.
func ReadManifestCSV(r io.Reader) (*ManifestTable, error) {
	rows, err := gocsv.DefaultCSVReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("manifest is empty: missing header")
	}
	if len(rows[0]) == 0 || rows[0][0] != domain.PatientColumn {
		return nil, fmt.Errorf("manifest header must start with %s", domain.PatientColumn)
	}
	return &ManifestTable{Header: rows[0], Records: rows[1:]}, nil
}
