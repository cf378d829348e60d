package config

import (
	"os"
	"path/filepath"
)

// DataDirEnv overrides the local data directory.
const DataDirEnv = "MANIFEST_DATA_DIR"

// DefaultDataDir returns the directory holding local state such as the
// SQLite run store. Falls back to the working directory when no home exists.
func DefaultDataDir() string {
	if v := os.Getenv(DataDirEnv); v != "" {
		return v
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return ".gdc-manifest"
	}
	return filepath.Join(homeDir, ".gdc-manifest")
}
