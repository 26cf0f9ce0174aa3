// Package app orchestrates a crosstab run: weighting, per-question
// processing, composites, checkpointing and the final result.
package app

import (
	"context"
	"fmt"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/run"
	"crosstab/domain/survey"
	"crosstab/internal"
	"crosstab/internal/composite"
	"crosstab/internal/errors"
	"crosstab/internal/ranking"
	"crosstab/internal/weighting"
	"crosstab/ports"
)

// Config carries the run-level parameters.
type Config struct {
	RunID              core.RunID
	WeightColumn       string
	WeightPolicy       weighting.Policy
	Alpha              float64
	MinBase            int
	ZeroRowTotalAsZero bool
	CheckpointEvery    int
	RankingThresholds  ranking.Thresholds
}

// normalize fills safe defaults for zero-valued parameters.
func (c *Config) normalize() {
	if c.RunID == "" {
		c.RunID = core.RunID(core.NewID())
	}
	if c.WeightPolicy == "" {
		c.WeightPolicy = weighting.PolicyExclude
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		c.Alpha = 0.05
	}
	if c.MinBase < 0 {
		c.MinBase = 0
	}
	if c.RankingThresholds == (ranking.Thresholds{}) {
		c.RankingThresholds = ranking.DefaultThresholds()
	}
}

// Runner executes one crosstab run over a loaded respondent table.
type Runner struct {
	table      *survey.RespondentTable
	structure  *banner.Structure
	questions  []survey.Question
	composites []composite.Definition
	cfg        Config
	store      ports.CheckpointStore // nil disables checkpointing
	log        *internal.Logger
}

// NewRunner assembles a runner. The checkpoint store may be nil.
func NewRunner(table *survey.RespondentTable, structure *banner.Structure, questions []survey.Question, composites []composite.Definition, cfg Config, store ports.CheckpointStore, logger *internal.Logger) *Runner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	cfg.normalize()
	return &Runner{
		table:      table,
		structure:  structure,
		questions:  questions,
		composites: composites,
		cfg:        cfg,
		store:      store,
		log:        logger,
	}
}

// Run processes every configured question and composite in declared
// order. A question that fails is skipped and itemized; the run keeps
// going and finishes as partial. Only run-level failures (bad weight
// column, no valid weights) abort the whole run.
func (r *Runner) Run(ctx context.Context) (*run.Result, error) {
	diags := &survey.Diagnostics{}
	result := &run.Result{
		RunID:     r.cfg.RunID,
		StartedAt: core.Now(),
	}

	weights, summary, err := r.buildWeights(diags)
	if err != nil {
		return nil, err
	}
	result.Weights = run.WeightDiagnostics{
		Enabled:      weights.Enabled(),
		NonZero:      summary.NonZero,
		EffectiveN:   summary.EffectiveN,
		DesignEffect: summary.DesignEffect,
		CV:           summary.CV,
	}

	processed := make(map[core.QuestionCode]bool)
	if restored := r.restore(ctx, result); restored != nil {
		for _, code := range restored {
			processed[code] = true
		}
	}

	catalog := make(map[core.QuestionCode]survey.Question, len(r.questions))
	for _, q := range r.questions {
		catalog[q.Code] = q
	}

	proc := newProcessor(r.table, r.structure, weights, r.cfg, diags)

	sinceSave := 0
	for _, q := range r.questions {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run cancelled")
		}
		if processed[q.Code] {
			continue
		}
		table, err := proc.process(q, nil)
		if err != nil {
			r.skip(result, q.Code, err)
			continue
		}
		result.Tables = append(result.Tables, table)
		processed[q.Code] = true
		sinceSave++
		r.maybeCheckpoint(ctx, result, processed, &sinceSave)
	}

	for _, def := range r.composites {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "run cancelled")
		}
		if processed[def.Code] {
			continue
		}
		column, virtual, err := composite.Compute(def, r.table, catalog)
		if err != nil {
			r.skip(result, def.Code, err)
			continue
		}
		table, err := proc.process(virtual, column)
		if err != nil {
			r.skip(result, def.Code, err)
			continue
		}
		result.Tables = append(result.Tables, table)
		processed[def.Code] = true
		sinceSave++
		r.maybeCheckpoint(ctx, result, processed, &sinceSave)
	}

	result.FinishedAt = core.Now()
	result.Diagnostics = diags.Items()
	result.Finalize()

	if r.store != nil {
		if err := r.store.Clear(ctx, result.RunID); err != nil {
			r.log.Warn("failed to clear checkpoint for run %s: %v", result.RunID, err)
		}
	}
	r.log.Info("run %s finished with status %s: %d tables, %d skipped, %d diagnostics",
		result.RunID, result.Status, len(result.Tables), len(result.Skipped), len(result.Diagnostics))
	return result, nil
}

// buildWeights resolves the configured weight column and validates it.
func (r *Runner) buildWeights(diags *survey.Diagnostics) (*weighting.Sequence, weighting.Summary, error) {
	if r.cfg.WeightColumn == "" {
		seq := weighting.Unit(r.table.RowCount())
		return seq, weighting.Summary{NonZero: r.table.RowCount()}, nil
	}
	column, ok := r.table.Column(r.cfg.WeightColumn)
	if !ok {
		return nil, weighting.Summary{}, errors.ConfigInvalid(
			fmt.Sprintf("weight column %q not found in data", r.cfg.WeightColumn))
	}
	return weighting.Build(column, r.table.RowCount(), r.cfg.WeightPolicy, diags)
}

// restore loads a prior checkpoint for this run ID, if any, and seeds
// the result with the completed tables.
func (r *Runner) restore(ctx context.Context, result *run.Result) []core.QuestionCode {
	if r.store == nil {
		return nil
	}
	state, err := r.store.Load(ctx, result.RunID)
	if err != nil {
		r.log.Warn("failed to load checkpoint for run %s: %v", result.RunID, err)
		return nil
	}
	if state == nil {
		return nil
	}
	result.Tables = append(result.Tables, state.Tables...)
	result.Resumed = len(state.Tables)
	r.log.Info("run %s resumed from checkpoint: %d questions already complete", result.RunID, len(state.Processed))
	return state.Processed
}

// maybeCheckpoint saves progress once the configured interval is
// reached. Checkpoint failures never fail the run.
func (r *Runner) maybeCheckpoint(ctx context.Context, result *run.Result, processed map[core.QuestionCode]bool, sinceSave *int) {
	if r.store == nil || r.cfg.CheckpointEvery <= 0 || *sinceSave < r.cfg.CheckpointEvery {
		return
	}
	codes := make([]core.QuestionCode, 0, len(processed))
	for _, t := range result.Tables {
		if processed[t.Code] {
			codes = append(codes, t.Code)
		}
	}
	state := ports.CheckpointState{
		RunID:     result.RunID,
		Processed: codes,
		Tables:    result.Tables,
		SavedAt:   core.Now(),
	}
	if err := r.store.Save(ctx, state); err != nil {
		r.log.Warn("failed to save checkpoint for run %s: %v", result.RunID, err)
		return
	}
	*sinceSave = 0
	r.log.Debug("checkpoint saved for run %s after %d questions", result.RunID, len(codes))
}

// skip records a failed question and keeps the run going.
func (r *Runner) skip(result *run.Result, code core.QuestionCode, err error) {
	r.log.Warn("question %s skipped: %v", code, err)
	result.Skipped = append(result.Skipped, run.SkippedQuestion{
		Code:      code,
		ErrorCode: errors.GetCode(err),
		Reason:    err.Error(),
	})
}
