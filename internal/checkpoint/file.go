// Package checkpoint persists run progress so long runs survive
// interruption. The file store is the default backend; the postgres
// adapter covers shared environments.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crosstab/domain/core"
	"crosstab/internal/errors"
	"crosstab/ports"
)

// FileStore keeps one JSON checkpoint file per run under a base
// directory. Writes go through a temp file and rename so a crash mid-
// write never leaves a truncated checkpoint behind.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to create checkpoint directory %s", basePath))
	}
	return &FileStore{basePath: basePath}, nil
}

// Save writes the state atomically.
func (s *FileStore) Save(_ context.Context, state ports.CheckpointState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode checkpoint")
	}
	path := s.path(state.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.New(errors.CodeCheckpointError, fmt.Sprintf("failed to write checkpoint: %v", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.New(errors.CodeCheckpointError, fmt.Sprintf("failed to commit checkpoint: %v", err))
	}
	return nil
}

// Load returns nil state when no checkpoint exists for the run.
func (s *FileStore) Load(_ context.Context, runID core.RunID) (*ports.CheckpointState, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.CodeCheckpointError, fmt.Sprintf("failed to read checkpoint: %v", err))
	}
	var state ports.CheckpointState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.New(errors.CodeCheckpointError, fmt.Sprintf("checkpoint for run %s is corrupt: %v", runID, err))
	}
	return &state, nil
}

// Clear removes the run's checkpoint; clearing a missing checkpoint is
// not an error.
func (s *FileStore) Clear(_ context.Context, runID core.RunID) error {
	err := os.Remove(s.path(runID))
	if err != nil && !os.IsNotExist(err) {
		return errors.New(errors.CodeCheckpointError, fmt.Sprintf("failed to clear checkpoint: %v", err))
	}
	return nil
}

// path sanitizes the run ID into a filename.
func (s *FileStore) path(runID core.RunID) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, runID.String())
	return filepath.Join(s.basePath, name+".json")
}
