package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/config"
	"github.com/gdc-multiomics-manifest/internal/domain"
	"github.com/gdc-multiomics-manifest/internal/logging"
	"github.com/gdc-multiomics-manifest/internal/output"
	"github.com/gdc-multiomics-manifest/internal/service"
	"github.com/gdc-multiomics-manifest/internal/store"
	"github.com/gdc-multiomics-manifest/pkg/external"
)

// app holds the wired components shared by the subcommands.
type app struct {
	config  *domain.Config
	logger  *logrus.Logger
	cache   external.ResponseCache
	store   store.Store
	builder *service.ManifestBuilder
}

// loadConfig reads configuration and applies global flag overrides.
func loadConfig(overrides map[string]interface{}) (*config.Manager, error) {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if err := manager.Override("logging.level", logLevel); err != nil {
			return nil, err
		}
	}
	for key, value := range overrides {
		if err := manager.Override(key, value); err != nil {
			return nil, err
		}
	}
	if err := manager.Validate(); err != nil {
		return nil, err
	}
	return manager, nil
}

// newApp wires the catalog client, run store, sinks and builder.
func newApp(ctx context.Context, overrides map[string]interface{}) (*app, error) {
	manager, err := loadConfig(overrides)
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if used := manager.ConfigFileUsed(); used != "" {
		logger.WithField("config_file", used).Debug("Loaded configuration file")
	}

	cache, err := external.NewResponseCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	catalogAPI := external.NewResilientCatalogAPI(external.NewGDCAPI(cfg.GDC), cfg.GDC.CircuitBreaker, cache, logger)
	catalog := external.NewGDCClient(catalogAPI, cfg.GDC, cfg.Cohort.PatientKey, logger)

	runStore, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	var recorder service.RunRecorder
	if runStore != nil {
		recorder = runStore
	}

	sinks := []domain.ManifestSink{output.NewCSVSink(cfg.Output.AbsentPlaceholder, logger)}
	builder := service.NewManifestBuilder(catalog, cfg.Cohort, cfg.Output, sinks, recorder, logger)

	return &app{
		config:  cfg,
		logger:  logger,
		cache:   cache,
		store:   runStore,
		builder: builder,
	}, nil
}

// runReader returns the store as a nil interface when none is configured.
func (a *app) runReader() runReader {
	if a.store == nil {
		return nil
	}
	return a.store
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close run store")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close response cache")
		}
	}
}
