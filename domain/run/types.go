package run

import (
	"crosstab/domain/core"
	"crosstab/domain/survey"
)

// Status is the overall outcome of a run. Any skipped question or
// omitted statistical test downgrades the run to Partial; that status
// must be surfaced prominently, not logged away.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
)

// SkippedQuestion records one question that failed and was skipped so
// the rest of the run could continue.
type SkippedQuestion struct {
	Code      core.QuestionCode `json:"code"`
	ErrorCode string            `json:"error_code"`
	Reason    string            `json:"reason"`
}

// WeightDiagnostics is the run-level weighting summary surfaced in
// the report.
type WeightDiagnostics struct {
	Enabled      bool    `json:"enabled"`
	NonZero      int     `json:"non_zero"`
	EffectiveN   float64 `json:"effective_n"`
	DesignEffect float64 `json:"design_effect"`
	CV           float64 `json:"cv"`
}

// Result is the full outcome of one crosstab run: every completed
// question table in processing order plus the itemized record of what
// was skipped and why.
type Result struct {
	RunID       core.RunID             `json:"run_id"`
	Status      Status                 `json:"status"`
	StartedAt   core.Timestamp         `json:"started_at"`
	FinishedAt  core.Timestamp         `json:"finished_at"`
	Tables      []survey.QuestionTable `json:"tables"`
	Skipped     []SkippedQuestion      `json:"skipped"`
	Diagnostics []survey.Diagnostic    `json:"diagnostics"`
	Weights     WeightDiagnostics      `json:"weights"`
	Resumed     int                    `json:"resumed,omitempty"` // tables restored from a checkpoint
}

// Finalize computes the overall status from the skip list and the
// diagnostics: omitted significance or chi-square tests count as
// partial results.
func (r *Result) Finalize() {
	r.Status = StatusComplete
	if len(r.Skipped) > 0 {
		r.Status = StatusPartial
		return
	}
	for _, d := range r.Diagnostics {
		switch d.Code {
		case survey.DiagSigTestSkipped, survey.DiagChiSquareSkipped:
			r.Status = StatusPartial
			return
		}
	}
}

// TableFor returns the completed table for a question code.
func (r *Result) TableFor(code core.QuestionCode) (survey.QuestionTable, bool) {
	for _, t := range r.Tables {
		if t.Code == code {
			return t, true
		}
	}
	return survey.QuestionTable{}, false
}
