package ports

import (
	"context"

	"crosstab/domain/core"
	"crosstab/domain/survey"
)

// CheckpointState is the persisted partial progress of a run: the
// completed tables plus the processed question codes, keyed by run.
type CheckpointState struct {
	RunID     core.RunID             `json:"run_id"`
	Processed []core.QuestionCode    `json:"processed"`
	Tables    []survey.QuestionTable `json:"tables"`
	SavedAt   core.Timestamp         `json:"saved_at"`
}

// CheckpointStore persists and restores run progress. Load returns
// nil state when no checkpoint exists for the run.
type CheckpointStore interface {
	Save(ctx context.Context, state CheckpointState) error
	Load(ctx context.Context, runID core.RunID) (*CheckpointState, error)
	Clear(ctx context.Context, runID core.RunID) error
}
