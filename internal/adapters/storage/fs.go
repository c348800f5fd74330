// Package storage provides ArtifactStore backends: local filesystem,
// S3-compatible object storage, and an in-memory store for tests.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore persists artifacts under root/<jobID>/<name>. Writes are
// append-only per job, so concurrent jobs never contend.
type FSStore struct {
	root string
}

// NewFSStore creates the output directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		root = "outputs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Put implements ports.ArtifactStore.
func (s *FSStore) Put(_ context.Context, jobID, name string, data []byte) (string, error) {
	if err := validName(jobID); err != nil {
		return "", err
	}
	if err := validName(name); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Get implements ports.ArtifactStore.
func (s *FSStore) Get(_ context.Context, jobID, name string) ([]byte, error) {
	if err := validName(jobID); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, jobID, name))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// List implements ports.ArtifactStore.
func (s *FSStore) List(_ context.Context, jobID string) ([]string, error) {
	if err := validName(jobID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// validName rejects path traversal in identifiers that end up in paths.
func validName(s string) error {
	if s == "" || strings.ContainsAny(s, "/\\") || strings.Contains(s, "..") {
		return fmt.Errorf("invalid artifact name %q", s)
	}
	return nil
}
