package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gdc-multiomics-manifest/internal/domain"
	"github.com/gdc-multiomics-manifest/internal/store"
)

// RunRecorder is the subset of the run store the builder needs.
type RunRecorder interface {
	StartRun(ctx context.Context, project string) (*store.Run, error)
	SaveManifest(ctx context.Context, runID string, manifest *domain.Manifest) error
	FinishRun(ctx context.Context, runID string, outcome store.RunOutcome) error
}

const finishRunTimeout = 10 * time.Second

// ManifestBuilder runs the whole pipeline: fetch every modality and the
// clinical set, build the indices, assemble, and hand the manifest to sinks.
type ManifestBuilder struct {
	catalog   domain.CatalogSource
	assembler *ManifestAssembler
	sinks     []domain.ManifestSink
	runs      RunRecorder
	cohort    domain.CohortConfig
	output    domain.OutputConfig
	logger    *logrus.Logger
}

// NewManifestBuilder creates a new manifest builder. runs may be nil.
func NewManifestBuilder(
	catalog domain.CatalogSource,
	cohort domain.CohortConfig,
	output domain.OutputConfig,
	sinks []domain.ManifestSink,
	runs RunRecorder,
	logger *logrus.Logger,
) *ManifestBuilder {
	return &ManifestBuilder{
		catalog:   catalog,
		assembler: NewManifestAssembler(logger),
		sinks:     sinks,
		runs:      runs,
		cohort:    cohort,
		output:    output,
		logger:    logger,
	}
}

// Build recomputes the manifest from scratch and persists it. A failure in
// any modality aborts the run before any sink is written.
func (b *ManifestBuilder) Build(ctx context.Context, req domain.BuildRequest) (*domain.BuildResult, error) {
	start := time.Now()

	project := req.Project
	if project == "" {
		project = b.cohort.Project
	}
	if project == "" {
		return nil, domain.NewValidationError("project", "project is required", project)
	}
	if err := domain.ValidateProjectID(project); err != nil {
		return nil, err
	}

	filters := b.cohort.ModalityFilters(project)
	for i := range filters {
		if req.Project != "" {
			filters[i].Project = req.Project
		}
		if err := filters[i].Validate(); err != nil {
			return nil, err
		}
	}

	attributes := b.cohort.Attributes
	if len(attributes) == 0 {
		attributes = domain.DefaultClinicalAttributes
	}

	runID, err := b.startRun(ctx, project)
	if err != nil {
		return nil, err
	}
	log := b.logger.WithFields(logrus.Fields{"run_id": runID, "project": project})
	log.Info("Starting manifest build")

	destination := b.output.ResolvePath(req.OutputPath, project)

	manifest, err := b.buildManifest(ctx, project, filters, attributes)
	if err != nil {
		b.finishRun(ctx, runID, store.RunOutcome{Status: store.RunStatusFailed, Error: err.Error()})
		log.WithError(err).Error("Manifest build failed")
		return nil, err
	}

	// Rows are stored before any sink commits so a store failure leaves no file behind.
	if b.runs != nil {
		if err := b.runs.SaveManifest(ctx, runID, manifest); err != nil {
			err = fmt.Errorf("saving manifest rows: %w: %w", ErrRunStore, err)
			b.finishRun(ctx, runID, store.RunOutcome{Status: store.RunStatusFailed, CohortSize: manifest.CohortSize, Error: err.Error()})
			return nil, err
		}
	}

	for _, sink := range b.sinks {
		if err := sink.WriteManifest(ctx, runID, destination, manifest); err != nil {
			err = fmt.Errorf("writing manifest to %s: %w", destination, err)
			b.finishRun(ctx, runID, store.RunOutcome{Status: store.RunStatusFailed, CohortSize: manifest.CohortSize, Error: err.Error()})
			return nil, err
		}
	}
	if len(b.sinks) == 0 {
		destination = ""
	}

	b.finishRun(ctx, runID, store.RunOutcome{
		Status:     store.RunStatusSucceeded,
		CohortSize: manifest.CohortSize,
		RowCount:   len(manifest.Rows),
		OutputPath: destination,
	})

	result := &domain.BuildResult{
		RunID:      runID,
		Project:    project,
		CohortSize: manifest.CohortSize,
		RowCount:   len(manifest.Rows),
		OutputPath: destination,
		Duration:   time.Since(start),
		Manifest:   manifest,
	}

	log.WithFields(logrus.Fields{
		"cohort_size": result.CohortSize,
		"output_path": destination,
		"duration":    result.Duration.String(),
	}).Info("Manifest build completed")

	return result, nil
}

// buildManifest fetches all sources and assembles them.
func (b *ManifestBuilder) buildManifest(ctx context.Context, project string, filters []domain.ModalityFilter, attributes []string) (*domain.Manifest, error) {
	indices := make(ModalityIndices, len(filters))
	var clinical *ClinicalRecordSet
	var mu sync.Mutex

	fetchModality := func(ctx context.Context, filter domain.ModalityFilter) error {
		records, err := b.catalog.FetchFiles(ctx, filter)
		if err != nil {
			return &domain.IncompleteCohortSourceError{
				Missing: []domain.Modality{filter.Modality},
				Cause:   fmt.Errorf("fetching %s files: %w", filter.Modality, err),
			}
		}
		idx, err := BuildModalityIndex(filter.Modality, records)
		if err != nil {
			return &domain.IncompleteCohortSourceError{
				Missing: []domain.Modality{filter.Modality},
				Cause:   err,
			}
		}

		b.logger.WithFields(logrus.Fields{
			"modality": filter.Modality,
			"records":  len(records),
			"patients": idx.Len(),
			"files":    idx.FileCount(),
		}).Debug("Built modality index")

		mu.Lock()
		indices[filter.Modality] = idx
		mu.Unlock()
		return nil
	}

	fetchClinical := func(ctx context.Context) error {
		rows, err := b.catalog.FetchClinical(ctx, project, attributes)
		if err != nil {
			return fmt.Errorf("fetching clinical records: %w", err)
		}
		set := NewClinicalRecordSet(rows)

		b.logger.WithFields(logrus.Fields{
			"rows":     set.Len(),
			"patients": set.Patients(),
		}).Debug("Loaded clinical records")

		mu.Lock()
		clinical = set
		mu.Unlock()
		return nil
	}

	if b.cohort.ParallelFetch {
		g, gctx := errgroup.WithContext(ctx)
		for _, filter := range filters {
			filter := filter
			g.Go(func() error { return fetchModality(gctx, filter) })
		}
		g.Go(func() error { return fetchClinical(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, filter := range filters {
			if err := fetchModality(ctx, filter); err != nil {
				return nil, err
			}
		}
		if err := fetchClinical(ctx); err != nil {
			return nil, err
		}
	}

	return b.assembler.Assemble(indices, clinical, attributes)
}

// startRun records the run when a store is configured, otherwise just mints an id.
func (b *ManifestBuilder) startRun(ctx context.Context, project string) (string, error) {
	if b.runs == nil {
		return uuid.New().String(), nil
	}
	run, err := b.runs.StartRun(ctx, project)
	if err != nil {
		return "", fmt.Errorf("starting run: %w: %w", ErrRunStore, err)
	}
	return run.ID, nil
}

// finishRun records the outcome; failures here are logged, not returned.
func (b *ManifestBuilder) finishRun(ctx context.Context, runID string, outcome store.RunOutcome) {
	if b.runs == nil {
		return
	}
	// The build may have failed because ctx was cancelled; the outcome is
	// still recorded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishRunTimeout)
	defer cancel()
	if err := b.runs.FinishRun(ctx, runID, outcome); err != nil {
		b.logger.WithError(err).WithField("run_id", runID).Error("Failed to record run outcome")
	}
}
