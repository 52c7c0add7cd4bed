// Package gateway provides access to the outside world: the filesystem the
// dataset and reports live on, and the chart renderer.
package gateway

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/spf13/afero"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RawEntity keeps every field of an entity as undecoded JSON, in source order.
type RawEntity = orderedmap.OrderedMap[string, json.RawMessage]

// RawDataset is the dataset with entities left undecoded.
type RawDataset = orderedmap.OrderedMap[string, *RawEntity]

// Writer persists a finished output file.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// FileStore reads datasets and writes output files on an afero filesystem.
type FileStore struct {
	fs     afero.Fs
	logger *log.Logger
}

// NewFileStore creates a FileStore. Use afero.NewOsFs() for real files
// or afero.NewMemMapFs() for tests.
func NewFileStore(fs afero.Fs, logger *log.Logger) *FileStore {
	return &FileStore{fs: fs, logger: logger}
}

// LoadDataset reads and decodes the dataset at path.
func (s *FileStore) LoadDataset(path string) (*domain.Dataset, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	ds, err := domain.ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	s.logger.Debug("dataset loaded", "path", path, "entities", ds.Len())
	return ds, nil
}

// LoadRaw reads the dataset at path keeping every entity field undecoded.
func (s *FileStore) LoadRaw(path string) (*RawDataset, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	raw := orderedmap.New[string, *RawEntity]()
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %v", path, domain.ErrMalformedInput, err)
	}
	s.logger.Debug("raw dataset loaded", "path", path, "entities", raw.Len())
	return raw, nil
}

func (s *FileStore) read(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces path with data atomically: the content goes to a
// temporary file in the same directory which is then renamed over path.
func (s *FileStore) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	s.logger.Debug("file written", "path", path, "bytes", len(data))
	return nil
}
