package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gdc-multiomics-manifest/internal/api"
	"github.com/gdc-multiomics-manifest/internal/mcp"
)

type runReader = api.RunReader

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve manifest builds and run history over HTTP",
	RunE:  runServe,
}

// mcpCmd runs the MCP tool server
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve manifest tools to MCP clients over stdio",
	RunE:  runMCP,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close()

	server := api.NewServer(a.config.Server, a.builder, a.runReader(), a.config.Output.AbsentPlaceholder, a.logger)
	err = server.Start(ctx)
	a.logger.Info("HTTP server stopped")
	return err
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close()

	// stdout carries the protocol
	if a.logger.Out == os.Stdout {
		a.logger.SetOutput(os.Stderr)
	}

	return mcp.NewServer(a.builder, a.runReader(), a.logger).Start(ctx)
}
