package survey

import (
	"crosstab/domain/core"
)

// VariableType is the closed set of question types the engine knows.
// Every consuming switch must handle all of them.
type VariableType string

const (
	TypeCategorical  VariableType = "categorical"
	TypeMultiMention VariableType = "multi_mention"
	TypeRating       VariableType = "rating"
	TypeLikert       VariableType = "likert"
	TypeNPS          VariableType = "nps"
	TypeNumeric      VariableType = "numeric"
	TypeRanking      VariableType = "ranking"
)

// ParseVariableType validates a raw type tag.
func ParseVariableType(s string) (VariableType, bool) {
	switch VariableType(s) {
	case TypeCategorical, TypeMultiMention, TypeRating, TypeLikert, TypeNPS, TypeNumeric, TypeRanking:
		return VariableType(s), true
	}
	return "", false
}

// RowKind tags every output row so that rendering and significance
// testing can dispatch exhaustively instead of inspecting labels.
type RowKind string

const (
	RowFrequency     RowKind = "frequency"
	RowColumnPercent RowKind = "column_percent"
	RowRowPercent    RowKind = "row_percent"
	RowMean          RowKind = "mean"
	RowIndex         RowKind = "index"
	RowNPS           RowKind = "nps"
	RowSigLetters    RowKind = "sig_letters"
	RowChiSquare     RowKind = "chi_square"
	RowBase          RowKind = "base"
	RowBaseWeighted  RowKind = "base_weighted"
	RowBaseEffective RowKind = "base_effective"
)

// IsSupplementary reports whether the row belongs after the data rows.
func (k RowKind) IsSupplementary() bool {
	switch k {
	case RowSigLetters, RowChiSquare, RowBase, RowBaseWeighted, RowBaseEffective:
		return true
	}
	return false
}

// Option is one response option of a closed question.
type Option struct {
	Text             string   `json:"text"`
	NumericValue     *float64 `json:"numeric_value,omitempty"`
	IndexWeight      *float64 `json:"index_weight,omitempty"`
	ExcludeFromIndex bool     `json:"exclude_from_index,omitempty"`
}

// RankingFormat distinguishes the two physical encodings of
// rank-order questions.
type RankingFormat string

const (
	// RankingByPosition: one column per item, cell holds the rank.
	RankingByPosition RankingFormat = "position"
	// RankingByItem: one column per rank position, cell holds the item.
	RankingByItem RankingFormat = "item"
)

// RankingSpec describes a rank-order question's physical layout.
type RankingSpec struct {
	Format      RankingFormat `json:"format"`
	Items       []string      `json:"items"`
	Positions   int           `json:"positions"`
	WorstToBest bool          `json:"worst_to_best,omitempty"`
	TopN        int           `json:"top_n,omitempty"`
}

// Question is the analysis metadata for one survey question.
type Question struct {
	Code           core.QuestionCode `json:"code"`
	Label          string            `json:"label"`
	Type           VariableType      `json:"type"`
	Column         string            `json:"column,omitempty"`
	MentionColumns []string          `json:"mention_columns,omitempty"`
	Options        []Option          `json:"options,omitempty"`
	BaseFilter     string            `json:"base_filter,omitempty"`
	Ranking        *RankingSpec      `json:"ranking,omitempty"`
}

// DataColumns returns the physical columns holding this question's
// responses: the single column, the mention columns, or the ranking
// columns depending on type.
func (q Question) DataColumns() []string {
	if len(q.MentionColumns) > 0 {
		return q.MentionColumns
	}
	if q.Column != "" {
		return []string{q.Column}
	}
	return nil
}
