// Package api serves manifest builds and run history over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
	"github.com/gdc-multiomics-manifest/internal/logging"
	"github.com/gdc-multiomics-manifest/internal/middleware"
	"github.com/gdc-multiomics-manifest/internal/output"
	"github.com/gdc-multiomics-manifest/internal/service"
	"github.com/gdc-multiomics-manifest/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Builder builds one manifest.
type Builder interface {
	Build(ctx context.Context, req domain.BuildRequest) (*domain.BuildResult, error)
}

// RunReader reads recorded runs.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*store.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*store.Run, error)
	GetManifest(ctx context.Context, runID string) (*domain.Manifest, error)
}

// Server represents the HTTP server
type Server struct {
	config      domain.ServerConfig
	builder     Builder
	runs        RunReader
	placeholder string
	logger      *logrus.Logger
	router      *gin.Engine
	server      *http.Server
}

// NewServer creates a new HTTP server instance. runs may be nil, in which
// case the run endpoints answer 404.
func NewServer(config domain.ServerConfig, builder Builder, runs RunReader, placeholder string, logger *logrus.Logger) *Server {
	// Set Gin mode based on log level
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))

	s := &Server{
		config:      config,
		builder:     builder,
		runs:        runs,
		placeholder: placeholder,
		logger:      logger,
		router:      router,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/manifests", s.handleBuild)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.GET("/runs/:id/rows", s.handleGetRows)
		v1.GET("/runs/:id/manifest.csv", s.handleGetCSV)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"run_store": s.runs != nil,
	})
}

func (s *Server) handleBuild(c *gin.Context) {
	var req domain.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(c, domain.NewValidationError("body", "invalid JSON body: "+err.Error(), nil))
		return
	}
	if req.OutputPath != "" {
		s.writeError(c, domain.NewValidationError("output_path", "output_path is set by server configuration", req.OutputPath))
		return
	}
	if req.Project != "" {
		if err := domain.ValidateProjectID(req.Project); err != nil {
			s.writeError(c, err)
			return
		}
	}

	ctx, op := logging.StartOperation(c.Request.Context(), s.logger, logging.OperationRequest, "build_manifest",
		logrus.Fields{"project": req.Project})
	result, err := s.builder.Build(ctx, req)
	if err != nil {
		op.End(err, nil)
		s.writeError(c, err)
		return
	}
	op.End(nil, logrus.Fields{"run_id": result.RunID, "cohort_size": result.CohortSize})

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.runs == nil {
		s.writeError(c, store.ErrRunNotFound)
		return
	}

	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	runs, err := s.runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "limit": limit, "offset": offset})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.runs == nil {
		s.writeError(c, store.ErrRunNotFound)
		return
	}
	run, err := s.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleGetRows(c *gin.Context) {
	manifest, ok := s.manifest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, manifest)
}

func (s *Server) handleGetCSV(c *gin.Context) {
	manifest, ok := s.manifest(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := output.WriteCSV(&buf, manifest, s.placeholder); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Param("id")+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) manifest(c *gin.Context) (*domain.Manifest, bool) {
	if s.runs == nil {
		s.writeError(c, store.ErrRunNotFound)
		return nil, false
	}
	manifest, err := s.runs.GetManifest(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return manifest, true
}

// writeError renders err as a ManifestError with the matching status.
func (s *Server) writeError(c *gin.Context, err error) {
	code := service.ErrorCode(err)
	c.AbortWithStatusJSON(statusFor(code), domain.NewManifestError(
		code, err.Error(), "", c.GetString(middleware.CorrelationKey),
	))
}

func statusFor(code string) int {
	switch code {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrIncompleteCohortSource, domain.ErrMalformedRecord, domain.ErrCatalogFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer", raw)
	}
	return n, nil
}
