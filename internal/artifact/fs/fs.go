package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Store keeps clips as files in a single directory. References are absolute
// file paths.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating it if needed. An empty dir
// uses the OS temp directory.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact fs: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("artifact fs: create %s: %w", abs, err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) Put(_ context.Context, name string, data []byte) (model.ArtifactRef, error) {
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("artifact fs: invalid name %q", name)
	}
	path := filepath.Join(s.dir, name)

	// Write to a temp name first so readers never observe a partial clip.
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact fs: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("artifact fs: rename %s: %w", path, err)
	}
	return model.ArtifactRef(path), nil
}

func (s *Store) Open(_ context.Context, ref model.ArtifactRef) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("artifact fs: open %s: %w", path, err)
	}
	return f, nil
}

func (s *Store) Delete(_ context.Context, ref model.ArtifactRef) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("artifact fs: remove %s: %w", path, err)
	}
	return nil
}

func (s *Store) Exists(_ context.Context, ref model.ArtifactRef) (bool, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("artifact fs: stat %s: %w", path, err)
	}
	return true, nil
}

// resolve maps a reference to a path, refusing anything outside the root.
func (s *Store) resolve(ref model.ArtifactRef) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("artifact fs: empty reference")
	}
	path := filepath.Clean(string(ref))
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	if filepath.Dir(path) != s.dir {
		return "", fmt.Errorf("artifact fs: %s is outside %s", ref, s.dir)
	}
	return path, nil
}
