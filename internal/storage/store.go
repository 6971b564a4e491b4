package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps uploaded result files and rendered artifacts on local disk.
// Callers write files before committing the owning transaction and remove
// them again if the transaction fails, so a stored path always has a DB row.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage dir: %w", err)
	}
	return &Store{baseDir: abs}, nil
}

func (s *Store) BaseDir() string {
	return s.baseDir
}

// Save writes data under a generated name with the given extension and
// returns the absolute path.
func (s *Store) Save(data []byte, prefix, ext string) (string, error) {
	name := fmt.Sprintf("%s_%s%s", prefix, uuid.New(), ext)
	path := filepath.Join(s.baseDir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// Path returns an absolute path inside the store for a generated file name,
// without creating the file. Used by renderers that stream output themselves.
func (s *Store) Path(prefix, ext string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_%s%s", prefix, uuid.New(), ext))
}

// Read loads a stored file, refusing paths outside the base directory.
func (s *Store) Read(path string) ([]byte, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Remove deletes a stored file. Missing files are not an error so cleanup
// paths can run unconditionally.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := s.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Exists reports whether a stored file is present on disk.
func (s *Store) Exists(path string) bool {
	if s.contains(path) != nil {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (s *Store) contains(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(abs, s.baseDir+string(os.PathSeparator)) {
		return fmt.Errorf("path escapes storage dir")
	}
	return nil
}
