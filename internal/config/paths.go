// Package config manages treedit configuration and filesystem paths.
//
// Paths follow the XDG base directory layout: settings live under
// $XDG_CONFIG_HOME/treedit and snapshots and logs under
// $XDG_STATE_HOME/treedit. TREEDIT_HOME moves both into a single directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "treedit"

// Paths contains all the filesystem paths used by treedit.
type Paths struct {
	// ConfigDir holds the settings file
	ConfigDir string

	// Config is the path to the settings file
	Config string

	// StateDir holds snapshots and logs
	StateDir string

	// Snapshots is the directory containing rendered listing snapshots
	Snapshots string

	// LogFile is the path debug logs are appended to
	LogFile string
}

// DefaultPaths returns the default paths for treedit.
// Paths can be overridden with environment variables:
// - TREEDIT_HOME: Use one directory for both settings and state
func DefaultPaths() (*Paths, error) {
	configDir := filepath.Join(xdg.ConfigHome, AppName)
	stateDir := filepath.Join(xdg.StateHome, AppName)

	if home := os.Getenv("TREEDIT_HOME"); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve TREEDIT_HOME: %w", err)
		}
		configDir, stateDir = abs, abs
	}

	return &Paths{
		ConfigDir: configDir,
		Config:    filepath.Join(configDir, "config.toml"),
		StateDir:  stateDir,
		Snapshots: filepath.Join(stateDir, "snapshots"),
		LogFile:   filepath.Join(stateDir, "treedit.log"),
	}, nil
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.StateDir,
		p.Snapshots,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
