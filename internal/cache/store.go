package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/treedit/internal/fsops"
	"github.com/danieljhkim/treedit/internal/planner"
)

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = 1

// ErrSnapshotNotFound is returned when no snapshot exists for an id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the on-disk form of a Cache.
type Snapshot struct {
	Version     int              `yaml:"version"`
	ID          string           `yaml:"id"`
	CreatedAt   time.Time        `yaml:"created_at"`
	ListingHash string           `yaml:"listing_hash"`
	NextID      int              `yaml:"next_id"`
	Buffers     []BufferSnapshot `yaml:"buffers"`
}

// BufferSnapshot holds the entries rendered for one directory.
type BufferSnapshot struct {
	URL     string          `yaml:"url"`
	Entries []planner.Entry `yaml:"entries"`
}

// Store persists snapshots.
type Store interface {
	// Load returns the snapshot with the given id, or ErrSnapshotNotFound.
	Load(id string) (*Snapshot, error)

	// Save writes the snapshot atomically.
	Save(s *Snapshot) error

	// Delete removes a snapshot. Deleting a missing snapshot is not an error.
	Delete(id string) error

	// Prune deletes snapshots created before cutoff and returns their ids.
	Prune(cutoff time.Time) ([]string, error)
}

// FileStore implements Store using YAML files in a directory.
type FileStore struct {
	fs  fsops.FS
	dir string
}

// NewFileStore creates a new FileStore rooted at dir.
func NewFileStore(fs fsops.FS, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (s *FileStore) path(id string) (string, error) {
	if err := fsops.ValidateName(id); err != nil {
		return "", fmt.Errorf("invalid snapshot id: %w", err)
	}
	return filepath.Join(s.dir, id+".yaml"), nil
}

// Load returns the snapshot with the given id.
func (s *FileStore) Load(id string) (*Snapshot, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot %s has unsupported version %d", id, snap.Version)
	}
	return &snap, nil
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(snap *Snapshot) error {
	path, err := s.path(snap.ID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.fs.AtomicWrite(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Delete removes a snapshot.
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Prune deletes snapshots created before cutoff.
func (s *FileStore) Prune(cutoff time.Time) ([]string, error) {
	infos, err := s.fs.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var pruned []string
	for _, info := range infos {
		id, ok := strings.CutSuffix(info.Name(), ".yaml")
		if !ok || info.IsDir() {
			continue
		}
		snap, err := s.Load(id)
		if err != nil {
			// Unreadable snapshots can never be used again.
			snap = &Snapshot{}
		}
		if !snap.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(id); err != nil {
			return pruned, err
		}
		pruned = append(pruned, id)
	}
	return pruned, nil
}
