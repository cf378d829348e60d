// Package setup registers the manifest MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gdc-multiomics-manifest/internal/config"
)

// DefaultServerName is the key under mcpServers used for this server.
const DefaultServerName = "gdc-multiomics-manifest"

// ServerEntry represents a single MCP server configuration.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClientConfig is an MCP client configuration file. Keys other than
// mcpServers are kept as they were read.
type ClientConfig struct {
	MCPServers map[string]ServerEntry
	other      map[string]json.RawMessage
}

// InstallOptions contains options for the install process.
type InstallOptions struct {
	ClientConfigPath string // default: DefaultClientConfigPath()
	ServerName       string // default: DefaultServerName
	BinaryPath       string // default: the running executable
	ConfigFile       string // manifest config passed via --config
	DataDir          string // exported as MANIFEST_DATA_DIR
}

// DefaultClientConfigPath returns the desktop client's config file path.
func DefaultClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		// Try XDG config first, then fallback
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig loads a client configuration. A missing file yields an
// empty configuration.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		MCPServers: make(map[string]ServerEntry),
		other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerEntry)
	}

	return cfg, nil
}

// SaveClientConfig writes the configuration through a temporary file so a
// failed write never truncates the client's config.
func SaveClientConfig(path string, cfg *ClientConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc := make(map[string]interface{}, len(cfg.other)+1)
	for k, v := range cfg.other {
		doc[k] = v
	}
	doc["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mcp-config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// Install adds or updates the manifest MCP server entry and returns the
// client config path it wrote.
func Install(opts InstallOptions) (string, error) {
	path := opts.ClientConfigPath
	if path == "" {
		var err error
		if path, err = DefaultClientConfigPath(); err != nil {
			return "", err
		}
	}

	name := opts.ServerName
	if name == "" {
		name = DefaultServerName
	}

	binary := opts.BinaryPath
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("could not determine server binary: %w", err)
		}
		binary = exe
	}
	binary, err := filepath.Abs(binary)
	if err != nil {
		return "", fmt.Errorf("could not resolve server binary: %w", err)
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		return "", err
	}

	entry := ServerEntry{Command: binary, Args: []string{"mcp"}}
	if opts.ConfigFile != "" {
		configFile, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return "", fmt.Errorf("could not resolve config file: %w", err)
		}
		entry.Args = append(entry.Args, "--config", configFile)
	}
	if opts.DataDir != "" {
		entry.Env = map[string]string{config.DataDirEnv: opts.DataDir}
	}
	cfg.MCPServers[name] = entry

	if err := SaveClientConfig(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// Status represents the current registration status.
type Status struct {
	ClientConfigPath string
	Registered       bool
	Entry            ServerEntry
	Issues           []string
}

// GetStatus checks whether name is registered in the client config at path
// and whether its binary exists.
func GetStatus(path, name string) (*Status, error) {
	if name == "" {
		name = DefaultServerName
	}
	status := &Status{ClientConfigPath: path, Issues: []string{}}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}

	entry, ok := cfg.MCPServers[name]
	if !ok {
		status.Issues = append(status.Issues, fmt.Sprintf("%s is not registered", name))
		return status, nil
	}
	status.Registered = true
	status.Entry = entry

	info, err := os.Stat(entry.Command)
	switch {
	case os.IsNotExist(err):
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
	case err == nil && info.Mode()&0111 == 0:
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
	}

	return status, nil
}
