// Package mcp exposes manifest builds and run history as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/api"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "gdc-multiomics-manifest"

// Server represents the manifest MCP server
type Server struct {
	mcpServer *mcp.Server
	builder   api.Builder
	runs      api.RunReader
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance. runs may be nil, in which
// case list_manifest_runs reports that no run store is configured.
func NewServer(builder api.Builder, runs api.RunReader, logger *logrus.Logger) *Server {
	serverInfo := &mcp.Implementation{
		Name:    ServerName,
		Version: api.Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		builder:   builder,
		runs:      runs,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// registerTools registers the manifest tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolBuildManifest,
		Description: "Build the cross-modality patient manifest for a GDC project: patients with whole slide images, " +
			"RNA-Seq, DNA methylation and simple nucleotide variation files, with their clinical attributes.",
	}, s.handleBuildManifest)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListRuns,
		Description: "List recent manifest builds with their cohort sizes, most recent first.",
	}, s.handleListRuns)

	s.logger.WithField("tool_count", 2).Debug("Registered MCP tools")
}

// Start serves over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting manifest MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
