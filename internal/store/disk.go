package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/deixis/verdict/internal/outcome"
)

// DiskStore writes records as msgpack files, one per run.
type DiskStore struct {
	mu  sync.RWMutex
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir. When dir is empty a
// temp directory is created on the first Save or Load.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// CacheDir returns the per-user directory for app's run records,
// honouring XDG_CACHE_HOME.
func CacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app, "runs"), nil
}

// Dir returns the store directory, creating it if needed.
func (s *DiskStore) Dir() (string, error) {
	return s.ensureDir()
}

// Save writes rec atomically: it is encoded to a temp file in the store
// directory and renamed into place.
func (s *DiskStore) Save(rec *outcome.Record) error {
	path, err := s.pathFor(rec.RunID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding run %s: %w", rec.RunID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("saving run %s: %w", rec.RunID, err)
	}
	return nil
}

// Load reads the record for runID.
func (s *DiskStore) Load(runID string) (*outcome.Record, error) {
	path, err := s.pathFor(runID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	defer f.Close()

	var rec outcome.Record
	if err := msgpack.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", runID, err)
	}
	return &rec, nil
}

// pathFor maps a run ID to its file. Run IDs are UUIDs; anything else is
// rejected so that an ID can never address a path outside the store.
func (s *DiskStore) pathFor(runID string) (string, error) {
	if err := uuid.Validate(runID); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	dir, err := s.ensureDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, runID+".msgpack"), nil
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		dir, err := os.MkdirTemp("", "verdict-runs-*")
		if err != nil {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
		s.dir = dir
		return dir, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return s.dir, nil
}
