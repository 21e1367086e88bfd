package artifactstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes artifacts under root/<projectID>/<path>.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = "generated_projects"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Put(ctx context.Context, projectID, path string, data []byte) error {
	full, err := s.join(projectID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (s *FileStore) Get(ctx context.Context, projectID, path string) ([]byte, error) {
	full, err := s.join(projectID, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) List(ctx context.Context, projectID string) ([]string, error) {
	base, err := s.join(projectID, ".")
	if err != nil {
		return nil, err
	}
	var paths []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	return paths, err
}

// join builds the on-disk path, rejecting traversal outside the project
// directory.
func (s *FileStore) join(projectID, path string) (string, error) {
	if projectID == "" || strings.Contains(projectID, "..") || strings.ContainsAny(projectID, `/\`) {
		return "", fmt.Errorf("artifact: invalid project id %q", projectID)
	}
	base := filepath.Join(s.root, projectID)
	full := filepath.Join(base, filepath.FromSlash(path))
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact: path %q escapes project dir", path)
	}
	return full, nil
}
