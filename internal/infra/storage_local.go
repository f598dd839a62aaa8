package infra

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFilesRoute is where the router serves LocalStorage's root directory.
const LocalFilesRoute = "/archivos"

// LocalStorage keeps objects on disk; meant for development and single-node
// deployments.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root dir: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory served as static files.
func (s *LocalStorage) Root() string { return s.root }

func (s *LocalStorage) Upload(_ context.Context, data []byte, path, _ string) (string, error) {
	key := strings.TrimLeft(filepath.ToSlash(path), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("storage: invalid path %q", path)
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// ObjectKey maps a URL returned by Upload back to its path under root.
func (s *LocalStorage) ObjectKey(url string) (string, error) {
	return objectKey(s.baseURL, url)
}

func (s *LocalStorage) Delete(_ context.Context, url string) error {
	key, err := s.ObjectKey(url)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
