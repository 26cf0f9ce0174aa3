// Package postgres provides the shared-environment checkpoint backend.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
	"crosstab/ports"
)

// checkpointRepository implements ports.CheckpointStore over a
// checkpoints table keyed by run ID. Tables and processed codes are
// stored as JSON documents.
type checkpointRepository struct {
	db *sqlx.DB
}

// NewCheckpointRepository creates a checkpoint repository.
func NewCheckpointRepository(db *sqlx.DB) ports.CheckpointStore {
	return &checkpointRepository{db: db}
}

// Connect opens and pings a postgres connection.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.New(errors.CodeDatabaseError, fmt.Sprintf("failed to connect to postgres: %v", err))
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// EnsureSchema creates the checkpoints table when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS checkpoints (
		run_id TEXT PRIMARY KEY,
		processed JSONB NOT NULL,
		tables JSONB NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return errors.New(errors.CodeDatabaseError, fmt.Sprintf("failed to ensure checkpoint schema: %v", err))
	}
	return nil
}

// Save upserts the run's checkpoint.
func (r *checkpointRepository) Save(ctx context.Context, state ports.CheckpointState) error {
	processedJSON, err := json.Marshal(state.Processed)
	if err != nil {
		return errors.Wrap(err, "failed to marshal processed codes")
	}
	tablesJSON, err := json.Marshal(state.Tables)
	if err != nil {
		return errors.Wrap(err, "failed to marshal checkpoint tables")
	}

	query := `INSERT INTO checkpoints (run_id, processed, tables, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE SET
			processed = EXCLUDED.processed,
			tables = EXCLUDED.tables,
			saved_at = EXCLUDED.saved_at`
	_, err = r.db.ExecContext(ctx, query, state.RunID.String(), processedJSON, tablesJSON, state.SavedAt.Time())
	if err != nil {
		return errors.New(errors.CodeDatabaseError, fmt.Sprintf("failed to save checkpoint: %v", err))
	}
	return nil
}

// Load returns nil when no checkpoint exists for the run.
func (r *checkpointRepository) Load(ctx context.Context, runID core.RunID) (*ports.CheckpointState, error) {
	query := `SELECT processed, tables, saved_at FROM checkpoints WHERE run_id = $1`

	var processedJSON, tablesJSON []byte
	var savedAt time.Time
	err := r.db.QueryRowContext(ctx, query, runID.String()).Scan(&processedJSON, &tablesJSON, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeDatabaseError, fmt.Sprintf("failed to load checkpoint: %v", err))
	}

	state := ports.CheckpointState{RunID: runID, SavedAt: core.NewTimestamp(savedAt)}
	if err := json.Unmarshal(processedJSON, &state.Processed); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("checkpoint for run %s has corrupt processed codes", runID))
	}
	if err := json.Unmarshal(tablesJSON, &state.Tables); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("checkpoint for run %s has corrupt tables", runID))
	}
	if state.Tables == nil {
		state.Tables = []survey.QuestionTable{}
	}
	return &state, nil
}

// Clear removes the run's checkpoint.
func (r *checkpointRepository) Clear(ctx context.Context, runID core.RunID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = $1`, runID.String())
	if err != nil {
		return errors.New(errors.CodeDatabaseError, fmt.Sprintf("failed to clear checkpoint: %v", err))
	}
	return nil
}
