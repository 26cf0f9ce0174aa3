package survey

import (
	"crosstab/domain/core"
)

// Cell is one aggregated value in a question table. A zero base makes
// the value undefined, which is distinct from zero.
type Cell struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
	Letters string  `json:"letters,omitempty"`
}

// UndefinedCell returns the undefined cell.
func UndefinedCell() Cell {
	return Cell{}
}

// NewCell returns a defined cell.
func NewCell(v float64) Cell {
	return Cell{Value: v, Defined: true}
}

// QuestionRow is one output row: a label, a row kind and one cell per
// banner key.
type QuestionRow struct {
	Label string                     `json:"label"`
	Kind  RowKind                    `json:"kind"`
	Cells map[core.SegmentKey]Cell   `json:"cells"`
	Text  map[core.SegmentKey]string `json:"text,omitempty"` // letter rows render text, not numbers
}

// QuestionTable is the full result for one question: data rows first,
// then supplementary rows (significance, chi-square, bases). It is
// immutable once assembled.
type QuestionTable struct {
	Code       core.QuestionCode `json:"code"`
	Title      string            `json:"title"`
	Type       VariableType      `json:"type"`
	BannerKeys []core.SegmentKey `json:"banner_keys"`
	Rows       []QuestionRow     `json:"rows"`
}

// BaseSize is the per-segment sample size triple.
type BaseSize struct {
	Unweighted int     `json:"unweighted"`
	Weighted   float64 `json:"weighted"`
	Effective  float64 `json:"effective"`
}

// Diagnostic is one structured warning produced while processing.
type Diagnostic struct {
	Code     string            `json:"code"`
	Question core.QuestionCode `json:"question,omitempty"`
	Message  string            `json:"message"`
}

// Diagnostics accumulates warnings for the run. It is passed by
// pointer through the pipeline instead of living in package state.
type Diagnostics struct {
	items []Diagnostic
}

// Add records a warning.
func (d *Diagnostics) Add(code string, question core.QuestionCode, message string) {
	d.items = append(d.items, Diagnostic{Code: code, Question: question, Message: message})
}

// Items returns all recorded warnings in order.
func (d *Diagnostics) Items() []Diagnostic {
	return d.items
}

// Merge appends another collector's warnings.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// Len returns the number of recorded warnings.
func (d *Diagnostics) Len() int {
	return len(d.items)
}

// Diagnostic codes for data-quality and statistical-assumption issues.
const (
	DiagWeightRepair     = "WEIGHT_REPAIR"
	DiagWeightVariance   = "WEIGHT_VARIANCE"
	DiagRankingQuality   = "RANKING_QUALITY"
	DiagSigTestSkipped   = "SIG_TEST_SKIPPED"
	DiagChiSquareSkipped = "CHI_SQUARE_SKIPPED"
	DiagCategoryDropped  = "CHI_SQUARE_CATEGORY_DROPPED"
	DiagTopNClamped      = "TOP_N_CLAMPED"
)
