package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danieljhkim/treedit/internal/adapter"
	"github.com/danieljhkim/treedit/internal/cache"
	"github.com/danieljhkim/treedit/internal/clock"
	"github.com/danieljhkim/treedit/internal/config"
	"github.com/danieljhkim/treedit/internal/engine"
	"github.com/danieljhkim/treedit/internal/fsops"
	"github.com/danieljhkim/treedit/internal/fsurl"
	"github.com/danieljhkim/treedit/internal/hash"
)

// session holds the paths and settings of one CLI invocation.
type session struct {
	paths    *config.Paths
	settings *config.Settings
}

// loadSession resolves paths, creates the state directories and loads the
// settings file named by --config or the default one.
func loadSession() (*session, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	settingsPath := configPath
	if settingsPath == "" {
		settingsPath = paths.Config
	}
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	return &session{paths: paths, settings: settings}, nil
}

// newEngine creates an engine operating on the real disk.
func (s *session) newEngine() *engine.Engine {
	fs := fsops.NewOSFS()
	return s.buildEngine(fs, fs)
}

// newSandboxEngine creates an engine whose file adapter and snapshot store
// read through to the disk but keep every change in memory.
func (s *session) newSandboxEngine() *engine.Engine {
	fs := fsops.NewSandboxFS()
	return s.buildEngine(fs, fs)
}

func (s *session) buildEngine(files, state *fsops.AferoFS) *engine.Engine {
	// Validated when the settings were loaded.
	maxAge, _ := s.settings.MaxAge()

	registry := adapter.NewRegistry(
		adapter.NewFileAdapter(files),
		adapter.NewMemAdapter(fsops.NewMemFS()),
	)
	return engine.New(
		registry,
		cache.NewFileStore(state, s.paths.Snapshots),
		hash.NewSHA256Hasher(),
		&clock.RealClock{},
		engine.Options{
			Listing:        s.settings.ListingOptions(),
			SnapshotMaxAge: maxAge,
		},
	)
}

// targetURLs converts command arguments to directory URLs. Arguments that
// already carry a scheme are kept; anything else is a local path.
func targetURLs(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.Contains(arg, "://") {
			scheme, p, err := fsurl.Parse(arg)
			if err != nil {
				return nil, err
			}
			urls = append(urls, fsurl.New(scheme, p))
			continue
		}
		u, err := fsurl.FromPath(arg)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// readListing reads a listing from a file, or from stdin when path is "-".
func readListing(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read listing from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	return data, nil
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
