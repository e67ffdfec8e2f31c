// Package artifact provides the content reference abstraction used between
// pipeline stages: write content and get back an opaque reference, read
// content back by reference.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Store reads and writes stage artifacts by opaque reference.
type Store interface {
	// Write stores content and returns a new reference to it. The optional
	// label becomes part of the reference for human inspection.
	Write(label string, content []byte) (string, error)
	// Read returns the content for a reference previously returned by Write.
	Read(ref string) ([]byte, error)
}

// FileStore keeps artifacts as files under a base directory. References are
// paths relative to the base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a FileStore rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Write stores content under a fresh name and returns its reference.
func (s *FileStore) Write(label string, content []byte) (string, error) {
	if label == "" {
		label = "artifact"
	}
	ref := fmt.Sprintf("%s-%s", label, uuid.NewString())
	path := filepath.Join(s.baseDir, ref)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", ref, err)
	}
	return ref, nil
}

// Read returns the content for a reference.
func (s *FileStore) Read(ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, ref))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", ref, err)
	}
	return data, nil
}

// Path resolves a reference to its absolute path on disk, for collaborators
// that take file paths (the rendering tool).
func (s *FileStore) Path(ref string) string {
	return filepath.Join(s.baseDir, ref)
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
	n    int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Write stores content in memory and returns its reference.
func (s *MemStore) Write(label string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	ref := fmt.Sprintf("%s-%d", label, s.n)
	s.data[ref] = append([]byte(nil), content...)
	return ref, nil
}

// Read returns the content for a reference.
func (s *MemStore) Read(ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.data[ref]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", ref)
	}
	return append([]byte(nil), content...), nil
}
