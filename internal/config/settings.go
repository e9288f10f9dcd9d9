package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/danieljhkim/treedit/internal/fsops"
	"github.com/danieljhkim/treedit/internal/listing"
	"github.com/danieljhkim/treedit/internal/planner"
)

//go:embed defaults.toml
var defaultSettings []byte

// EnvPrefix prefixes environment overrides. Sections are separated by a
// double underscore: TREEDIT_APPLY__CONFIRM=never.
const EnvPrefix = "TREEDIT_"

// Confirmation policies.
const (
	ConfirmAlways      = "always"
	ConfirmNever       = "never"
	ConfirmDestructive = "destructive"
)

// ErrInvalidSettings indicates a setting has an unusable value.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the user configuration.
type Settings struct {
	Editor   string           `koanf:"editor" toml:"editor"`
	Listing  ListingSettings  `koanf:"listing" toml:"listing"`
	Apply    ApplySettings    `koanf:"apply" toml:"apply"`
	Snapshot SnapshotSettings `koanf:"snapshot" toml:"snapshot"`
}

// ListingSettings controls rendered listings.
type ListingSettings struct {
	Columns    []string `koanf:"columns" toml:"columns"`
	ShowHidden bool     `koanf:"show_hidden" toml:"show_hidden"`
}

// ApplySettings controls plan execution.
type ApplySettings struct {
	Confirm  string `koanf:"confirm" toml:"confirm"`
	Simulate bool   `koanf:"simulate" toml:"simulate"`
}

// SnapshotSettings controls snapshot retention.
type SnapshotSettings struct {
	MaxAge string `koanf:"max_age" toml:"max_age"`
}

// rawBytesProvider implements koanf.Provider for embedded bytes.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load reads the embedded defaults, then the settings file at path if it
// exists, then TREEDIT_* environment variables.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultSettings}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat settings file: %w", err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// envKey maps TREEDIT_LISTING__SHOW_HIDDEN to listing.show_hidden.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if key == "home" {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks values koanf cannot check by type.
func (s *Settings) Validate() error {
	switch s.Apply.Confirm {
	case ConfirmAlways, ConfirmNever, ConfirmDestructive:
	default:
		return fmt.Errorf("%w: apply.confirm must be %s, %s or %s, got %q",
			ErrInvalidSettings, ConfirmAlways, ConfirmNever, ConfirmDestructive, s.Apply.Confirm)
	}
	if err := s.ListingOptions().Validate(); err != nil {
		return fmt.Errorf("%w: listing.columns: %v", ErrInvalidSettings, err)
	}
	if _, err := s.MaxAge(); err != nil {
		return err
	}
	return nil
}

// ListingOptions returns the listing format options.
func (s *Settings) ListingOptions() listing.Options {
	return listing.Options{Columns: s.Listing.Columns}
}

// MaxAge returns the snapshot retention. Zero keeps snapshots forever.
func (s *Settings) MaxAge() (time.Duration, error) {
	if s.Snapshot.MaxAge == "" || s.Snapshot.MaxAge == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Snapshot.MaxAge)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: snapshot.max_age %q is not a positive duration", ErrInvalidSettings, s.Snapshot.MaxAge)
	}
	return d, nil
}

// NeedsConfirmation reports whether plan should be confirmed before it runs.
func (s *Settings) NeedsConfirmation(plan *planner.Plan) bool {
	switch s.Apply.Confirm {
	case ConfirmNever:
		return false
	case ConfirmDestructive:
		return plan.HasDestructive()
	default:
		return true
	}
}

// ResolveEditor returns the editor command: the setting, then $VISUAL, then
// $EDITOR, then vi.
func (s *Settings) ResolveEditor() string {
	for _, candidate := range []string{s.Editor, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return "vi"
}

// Marshal encodes the settings as TOML.
func (s *Settings) Marshal() ([]byte, error) {
	data, err := gotoml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// Write saves the settings to path. An existing file is only replaced when
// overwrite is set.
func Write(fs fsops.FS, path string, s *Settings, overwrite bool) error {
	exists, err := fs.Exists(path)
	if err != nil {
		return fmt.Errorf("failed to check settings file: %w", err)
	}
	if exists && !overwrite {
		return fmt.Errorf("%w: %s", fsops.ErrExists, path)
	}

	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
