// Command manifest builds cross-modality GDC patient manifests and serves
// them over HTTP and MCP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Cross-modality patient manifests from the GDC catalog",
	Long: `manifest queries the Genomic Data Commons for whole slide images, RNA-Seq,
DNA methylation and simple nucleotide variation files of one project, keeps the
patients present in all four, attaches their clinical attributes and writes one
CSV row per patient.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: manifest.yaml in ., ./config or /etc/gdc-manifest)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(buildCmd, runsCmd, migrateCmd, serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
