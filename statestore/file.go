package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"hedge-machine/models"
	"hedge-machine/observability"
)

// FileStore persists the run state as a single JSON document on disk. Writes
// go to a temp file that is fsynced and renamed over the target, so readers
// never observe a partial state and an acknowledged Set survives a crash.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by the given path. The parent
// directory must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the stored state, or ErrStateAbsent when nothing has been
// stored yet.
func (s *FileStore) Get(ctx context.Context) (*models.AgentState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveStateStore("get")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateAbsent
		}
		metrics.RecordStateStoreError("get")
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state models.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		metrics.RecordStateStoreError("get")
		return nil, fmt.Errorf("failed to decode state file: %w", err)
	}

	return &state, nil
}

// Set durably replaces the stored state.
func (s *FileStore) Set(ctx context.Context, state *models.AgentState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("state must not be nil")
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveStateStore("set")

	data, err := json.Marshal(state)
	if err != nil {
		metrics.RecordStateStoreError("set")
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		metrics.RecordStateStoreError("set")
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		metrics.RecordStateStoreError("set")
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		metrics.RecordStateStoreError("set")
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		metrics.RecordStateStoreError("set")
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		metrics.RecordStateStoreError("set")
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Compile-time interface verification
var _ Store = (*FileStore)(nil)
