package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdc-multiomics-manifest/internal/setup"
)

var (
	clientConfigPath string
	serverName       string
	installDataDir   string
)

// mcpInstallCmd registers the MCP server with a desktop client
var mcpInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register this binary as an MCP server in the desktop client config",
	RunE:  runMCPInstall,
}

// mcpStatusCmd reports the client registration
var mcpStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the MCP server is registered with the desktop client",
	RunE:  runMCPStatus,
}

func init() {
	for _, c := range []*cobra.Command{mcpInstallCmd, mcpStatusCmd} {
		c.Flags().StringVar(&clientConfigPath, "client-config", "", "MCP client config file (default: the desktop client's config)")
		c.Flags().StringVar(&serverName, "name", setup.DefaultServerName, "Server name under mcpServers")
	}
	mcpInstallCmd.Flags().StringVar(&installDataDir, "data-dir", "", "Data directory exported to the server as MANIFEST_DATA_DIR")

	mcpCmd.AddCommand(mcpInstallCmd, mcpStatusCmd)
}

func runMCPInstall(cmd *cobra.Command, args []string) error {
	path, err := setup.Install(setup.InstallOptions{
		ClientConfigPath: clientConfigPath,
		ServerName:       serverName,
		ConfigFile:       configFile,
		DataDir:          installDataDir,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n", serverName, path)
	fmt.Fprintln(cmd.OutOrStdout(), "Restart the MCP client to load the server.")
	return nil
}

func runMCPStatus(cmd *cobra.Command, args []string) error {
	path := clientConfigPath
	if path == "" {
		var err error
		if path, err = setup.DefaultClientConfigPath(); err != nil {
			return err
		}
	}

	status, err := setup.GetStatus(path, serverName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Client config: %s\n", status.ClientConfigPath)
	fmt.Fprintf(out, "Registered:    %t\n", status.Registered)
	if status.Registered {
		fmt.Fprintf(out, "Command:       %s %v\n", status.Entry.Command, status.Entry.Args)
	}
	for _, issue := range status.Issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	return nil
}
