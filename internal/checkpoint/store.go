// Package checkpoint tracks which assertions a batch run has already
// processed. The store is the only mutable shared resource in the pipeline
// and is injected into the orchestrator, never accessed as a global.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store is the checkpoint abstraction the orchestrator depends on
type Store interface {
	// Load reads the persisted checkpoint into memory
	Load() error

	// Append records a completed stage and its processed ids atomically
	Append(stage int, ids []string) error

	// Contains reports whether an assertion id was already processed
	Contains(id string) bool

	// LastCompletedStage returns the highest stage recorded, 0 if none
	LastCompletedStage() int
}

type checkpointFile struct {
	LastCompletedStage int      `json:"last_completed_stage"`
	ProcessedIDs       []string `json:"processed_ids"`
}

// FileStore persists the checkpoint as a JSON file with
// write-to-temp-then-rename discipline: a crash mid-write never leaves a
// partial checkpoint visible to a resuming process.
type FileStore struct {
	path string

	mu        sync.Mutex
	lastStage int
	processed map[string]struct{}
}

// NewFileStore creates a file-backed checkpoint store
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:      path,
		processed: make(map[string]struct{}),
	}
}

// Load reads the checkpoint file; a missing file means a fresh run
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}

	var file checkpointFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse checkpoint: %w", err)
	}

	s.lastStage = file.LastCompletedStage
	s.processed = make(map[string]struct{}, len(file.ProcessedIDs))
	for _, id := range file.ProcessedIDs {
		s.processed[id] = struct{}{}
	}
	return nil
}

// Append records one completed stage atomically
func (s *FileStore) Append(stage int, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.processed[id] = struct{}{}
	}
	if stage > s.lastStage {
		s.lastStage = stage
	}

	all := make([]string, 0, len(s.processed))
	for id := range s.processed {
		all = append(all, id)
	}
	sort.Strings(all)

	data, err := json.MarshalIndent(checkpointFile{
		LastCompletedStage: s.lastStage,
		ProcessedIDs:       all,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Contains reports whether an assertion id was already processed
func (s *FileStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[id]
	return ok
}

// LastCompletedStage returns the highest recorded stage number
func (s *FileStore) LastCompletedStage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStage
}
