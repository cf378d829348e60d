package domain

import (
	"context"
)

// CatalogFetcher returns the raw, possibly duplicate records for one modality query.
type CatalogFetcher interface {
	FetchFiles(ctx context.Context, filter ModalityFilter) ([]CatalogRecord, error)
}

// ClinicalFetcher returns clinical rows for a project in source order.
type ClinicalFetcher interface {
	FetchClinical(ctx context.Context, project string, attributes []string) ([]ClinicalRow, error)
}

// CatalogSource is a collaborator able to serve both record sets.
type CatalogSource interface {
	CatalogFetcher
	ClinicalFetcher
}

// ManifestSink persists an assembled manifest. Sinks must keep one row per
// qualifying patient in the given order.
type ManifestSink interface {
	WriteManifest(ctx context.Context, runID, destination string, manifest *Manifest) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetGDCConfig() *GDCConfig
	GetCohortConfig() *CohortConfig
	GetServerConfig() *ServerConfig
	Validate() error
}
