package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
	"github.com/gdc-multiomics-manifest/internal/logging"
	"github.com/gdc-multiomics-manifest/internal/service"
	"github.com/gdc-multiomics-manifest/internal/store"
)

// Tool names
const (
	ToolBuildManifest = "build_cohort_manifest"
	ToolListRuns      = "list_manifest_runs"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// BuildManifestParams defines parameters for build_cohort_manifest tool
type BuildManifestParams struct {
	Project    string `json:"project,omitempty" jsonschema:"GDC project id, e.g. TCGA-BRCA; defaults to the configured project"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"local path or gs://bucket/object for the CSV; {project} is substituted"`
}

// BuildManifestResult defines the result structure for build_cohort_manifest tool
type BuildManifestResult struct {
	RunID      string `json:"run_id"`
	Project    string `json:"project"`
	CohortSize int    `json:"cohort_size"`
	RowCount   int    `json:"row_count"`
	OutputPath string `json:"output_path,omitempty"`
	Duration   string `json:"duration"`
}

// ListRunsParams defines parameters for list_manifest_runs tool
type ListRunsParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20, max 100)"`
}

// ListRunsResult defines the result structure for list_manifest_runs tool
type ListRunsResult struct {
	Runs []*store.Run `json:"runs"`
}

// handleBuildManifest handles the build_cohort_manifest tool invocation
func (s *Server) handleBuildManifest(ctx context.Context, req *mcp.CallToolRequest, params BuildManifestParams) (*mcp.CallToolResult, BuildManifestResult, error) {
	ctx, op := logging.StartOperation(ctx, s.logger, logging.OperationToolCall, ToolBuildManifest,
		logrus.Fields{"project": params.Project})

	result, err := s.builder.Build(ctx, domain.BuildRequest{
		Project:    params.Project,
		OutputPath: params.OutputPath,
	})
	if err != nil {
		op.End(err, nil)
		return s.createErrorResult("manifest build failed", err), BuildManifestResult{}, nil
	}
	op.End(nil, logrus.Fields{"run_id": result.RunID, "cohort_size": result.CohortSize})

	out := BuildManifestResult{
		RunID:      result.RunID,
		Project:    result.Project,
		CohortSize: result.CohortSize,
		RowCount:   result.RowCount,
		OutputPath: result.OutputPath,
		Duration:   result.Duration.String(),
	}

	text := fmt.Sprintf("Total patients with all modalities: %d", result.CohortSize)
	if result.OutputPath != "" {
		text += fmt.Sprintf("\nManifest written to %s", result.OutputPath)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, out, nil
}

// handleListRuns handles the list_manifest_runs tool invocation
func (s *Server) handleListRuns(ctx context.Context, req *mcp.CallToolRequest, params ListRunsParams) (*mcp.CallToolResult, ListRunsResult, error) {
	if s.runs == nil {
		return s.createErrorResult("no run store configured", nil), ListRunsResult{}, nil
	}

	limit := params.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	runs, err := s.runs.ListRuns(ctx, limit, 0)
	if err != nil {
		return s.createErrorResult("listing runs failed", err), ListRunsResult{}, nil
	}
	if runs == nil {
		runs = []*store.Run{}
	}

	text := fmt.Sprintf("%d run(s)", len(runs))
	for _, run := range runs {
		text += fmt.Sprintf("\n%s %s %s cohort_size=%d", run.ID, run.Project, run.Status, run.CohortSize)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, ListRunsResult{Runs: runs}, nil
}

// createErrorResult creates a standardized error result carrying the error code
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText = fmt.Sprintf("Error [%s]: %s - %v", service.ErrorCode(err), message, err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
