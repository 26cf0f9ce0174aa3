package ranking

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// Matrix holds rank-order responses: one row per respondent, one
// column per item, cell = rank in [1, Positions] or NaN when missing.
// After normalization rank 1 always means best.
type Matrix struct {
	Items     []string
	Positions int
	tableRows []int
	rowIndex  map[int]int // table row -> matrix row
	ranks     [][]float64
}

// Context threads ranking state through the pipeline explicitly
// instead of module-level trackers: the question being processed, the
// warning collector and the validation tallies.
type Context struct {
	Question core.QuestionCode
	Diags    *survey.Diagnostics
	Stats    ValidationStats
}

// NewContext creates a pipeline context for one ranking question.
func NewContext(question core.QuestionCode, diags *survey.Diagnostics) *Context {
	return &Context{Question: question, Diags: diags}
}

// Rows returns the number of respondents in the matrix.
func (m *Matrix) Rows() int {
	return len(m.ranks)
}

// Rank returns the rank a table row gave an item, NaN when missing or
// when the respondent is not in the matrix.
func (m *Matrix) Rank(tableRow, item int) float64 {
	r, ok := m.rowIndex[tableRow]
	if !ok {
		return math.NaN()
	}
	return m.ranks[r][item]
}

// HasResponse reports whether a table row ranked at least one item.
func (m *Matrix) HasResponse(tableRow int) bool {
	r, ok := m.rowIndex[tableRow]
	if !ok {
		return false
	}
	for _, v := range m.ranks[r] {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Extract builds the ranking matrix from the question's physical
// columns. Both encodings derive meaning from the column name, never
// from column position, so sparse exports cannot misnumber ranks.
func Extract(table *survey.RespondentTable, subset []int, q survey.Question, ctx *Context) (*Matrix, error) {
	if q.Ranking == nil {
		return nil, errors.InvalidRankingFormat(fmt.Sprintf("question %s has no ranking specification", q.Code))
	}
	spec := q.Ranking
	if spec.Positions < 1 {
		return nil, errors.InvalidRankingFormat(fmt.Sprintf("question %s declares %d rank positions", q.Code, spec.Positions))
	}
	if len(spec.Items) < 2 {
		return nil, errors.InvalidRankingFormat(fmt.Sprintf("question %s declares %d items; ranking needs at least two", q.Code, len(spec.Items)))
	}

	m := &Matrix{
		Items:     spec.Items,
		Positions: spec.Positions,
		tableRows: subset,
		rowIndex:  make(map[int]int, len(subset)),
		ranks:     make([][]float64, len(subset)),
	}
	for i, row := range subset {
		m.rowIndex[row] = i
		cells := make([]float64, len(spec.Items))
		for j := range cells {
			cells[j] = math.NaN()
		}
		m.ranks[i] = cells
	}

	var err error
	switch spec.Format {
	case survey.RankingByPosition:
		err = extractByPosition(table, subset, q, m)
	case survey.RankingByItem:
		err = extractByItem(table, subset, q, m)
	default:
		return nil, errors.InvalidRankingFormat(fmt.Sprintf("question %s has unknown ranking format %q", q.Code, spec.Format))
	}
	if err != nil {
		return nil, err
	}

	if m.isEmpty() {
		return nil, errors.New(errors.CodeEmptyRankingMatrix,
			fmt.Sprintf("question %s has no ranked responses in the current base", q.Code))
	}

	if spec.WorstToBest {
		m.flip()
	}
	return m, nil
}

// extractByPosition reads one column per item holding that item's
// rank. Item identity comes from the column name suffix.
func extractByPosition(table *survey.RespondentTable, subset []int, q survey.Question, m *Matrix) error {
	for j, item := range m.Items {
		name := rankingColumnName(q, item)
		column, ok := table.Column(name)
		if !ok {
			return errors.BannerColumnNotFound(name)
		}
		for _, row := range subset {
			if f, ok := column[row].Float(); ok {
				m.ranks[m.rowIndex[row]][j] = f
			}
		}
	}
	return nil
}

// extractByItem reads one column per rank position holding the item
// identifier. The rank is parsed from the column name suffix: a
// sparse export like Q7_1, Q7_3 keeps ranks 1 and 3 rather than being
// renumbered 1 and 2.
func extractByItem(table *survey.RespondentTable, subset []int, q survey.Question, m *Matrix) error {
	prefix := string(q.Code) + "_"
	itemIndex := make(map[string]int, len(m.Items))
	for j, item := range m.Items {
		itemIndex[strings.TrimSpace(item)] = j
	}

	found := false
	for _, name := range table.Columns() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		position, err := strconv.Atoi(strings.TrimPrefix(name, prefix))
		if err != nil {
			continue
		}
		if position < 1 || position > m.Positions {
			return errors.InvalidRankingFormat(
				fmt.Sprintf("column %s names rank position %d outside [1,%d]", name, position, m.Positions))
		}
		found = true
		column, _ := table.Column(name)
		for _, row := range subset {
			v := column[row]
			if v.IsMissing() {
				continue
			}
			j, ok := itemIndex[v.Text()]
			if !ok {
				continue // unknown item identifiers are counted by validation
			}
			m.ranks[m.rowIndex[row]][j] = float64(position)
		}
	}
	if !found {
		return errors.InvalidRankingFormat(
			fmt.Sprintf("no columns with prefix %q found for item-format ranking question %s", prefix, q.Code))
	}
	return nil
}

// rankingColumnName is the physical column for an item in position
// format.
func rankingColumnName(q survey.Question, item string) string {
	return string(q.Code) + "_" + item
}

// flip converts worst-to-best data to the canonical best-to-worst
// convention: rank' = (positions+1) - rank. The transform is its own
// inverse.
func (m *Matrix) flip() {
	for i := range m.ranks {
		for j, v := range m.ranks[i] {
			if !math.IsNaN(v) {
				m.ranks[i][j] = float64(m.Positions+1) - v
			}
		}
	}
}

// Flip exposes the direction transform for round-trip verification.
func (m *Matrix) Flip() {
	m.flip()
}

func (m *Matrix) isEmpty() bool {
	for i := range m.ranks {
		for _, v := range m.ranks[i] {
			if !math.IsNaN(v) {
				return false
			}
		}
	}
	return true
}
