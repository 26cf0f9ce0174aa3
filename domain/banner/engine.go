package banner

import (
	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// RowIndexMap is the materialized segmentation: one set of respondent
// row indices per banner key. Indices point into the full table; no
// data or weights are duplicated per segment.
type RowIndexMap map[core.SegmentKey][]int

// BuildRowIndexMap evaluates every banner column's membership
// predicate over the given row subset. The subset is the question's
// base-filtered row index set; segmentation is rebuilt per question
// because base filters differ.
//
// A banner column that names a data column absent from the table is a
// configuration error and fails the build; it is never skipped.
func BuildRowIndexMap(table *survey.RespondentTable, subset []int, s *Structure) (RowIndexMap, error) {
	out := make(RowIndexMap, len(s.Keys()))

	// Total membership is the whole subset.
	total := make([]int, len(subset))
	copy(total, subset)
	out[core.TotalSegmentKey] = total

	for _, g := range s.Groups() {
		for _, col := range g.Columns {
			indices, err := memberIndices(table, subset, col)
			if err != nil {
				return nil, err
			}
			out[col.Key] = indices
		}
	}
	return out, nil
}

// memberIndices evaluates one column's predicate over the subset.
func memberIndices(table *survey.RespondentTable, subset []int, col Column) ([]int, error) {
	sources, err := sourceColumns(table, col)
	if err != nil {
		return nil, err
	}

	indices := make([]int, 0)
	for _, row := range subset {
		if matchesAny(sources, row, col.Values) {
			indices = append(indices, row)
		}
	}
	return indices, nil
}

// sourceColumns resolves the physical columns a banner column reads.
func sourceColumns(table *survey.RespondentTable, col Column) ([][]core.Value, error) {
	names := col.MentionColumns
	if len(names) == 0 {
		names = []string{col.SourceColumn}
	}
	sources := make([][]core.Value, 0, len(names))
	for _, name := range names {
		values, ok := table.Column(name)
		if !ok {
			return nil, errors.BannerColumnNotFound(name)
		}
		sources = append(sources, values)
	}
	return sources, nil
}

// matchesAny is the membership predicate: the respondent belongs when
// any source column holds any of the segment's option values. Missing
// values never match. This OR semantics dedups multi-mention
// membership, unlike frequency counting which sums across slots.
func matchesAny(sources [][]core.Value, row int, options []string) bool {
	for _, values := range sources {
		v := values[row]
		if v.IsMissing() {
			continue
		}
		for _, opt := range options {
			if v.EqualsText(opt) {
				return true
			}
		}
	}
	return false
}
