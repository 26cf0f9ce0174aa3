package tabulate

import (
	"strconv"
	"strings"

	"crosstab/domain/core"
	"crosstab/domain/survey"
)

// MeanStat carries a weighted mean with the pieces significance
// testing needs. Undefined when no valid value or no positive weight
// entered the aggregate.
type MeanStat struct {
	Mean       float64
	Variance   float64
	WeightSum  float64
	EffectiveN float64
	Defined    bool
}

// Cell converts the stat to an output cell.
func (m MeanStat) Cell() survey.Cell {
	if !m.Defined {
		return survey.UndefinedCell()
	}
	return survey.NewCell(m.Mean)
}

// Summary computes the question's summary statistic over a segment.
// Dispatch is exhaustive over the closed VariableType set:
//
//	Rating  -> weighted mean of numeric option values
//	Likert  -> weighted index over options carrying index weights
//	NPS     -> net promoter score as a weighted mean of +100/0/-100
//	Numeric -> weighted mean of raw values
//
// Categorical, multi-mention and ranking questions have no summary
// row here (ranking metrics live in the ranking pipeline).
func (c *Calculator) Summary(q survey.Question, column []core.Value, indices []int) (MeanStat, survey.RowKind, bool) {
	scorer, kind, ok := ScorerFor(q)
	if !ok {
		return MeanStat{}, "", false
	}
	return c.weightedMean(column, indices, scorer), kind, true
}

// Scorer resolves a respondent value to a numeric score, or reports
// that the respondent does not enter the aggregate.
type Scorer func(v core.Value) (float64, bool)

// ScorerFor returns the per-respondent scoring function and summary
// row kind for a question type, or false when the type has no scalar
// summary.
func ScorerFor(q survey.Question) (Scorer, survey.RowKind, bool) {
	switch q.Type {
	case survey.TypeRating:
		return ratingScorer(q.Options), survey.RowMean, true
	case survey.TypeLikert:
		return likertScorer(q.Options), survey.RowIndex, true
	case survey.TypeNPS:
		return npsScorer, survey.RowNPS, true
	case survey.TypeNumeric:
		return numericScorer, survey.RowMean, true
	case survey.TypeCategorical, survey.TypeMultiMention, survey.TypeRanking:
		return nil, "", false
	}
	return nil, "", false
}

// ratingScorer maps option text to its numeric value, preferring the
// explicit numeric value field and falling back to parsing the option
// label. Options flagged exclude-from-index are skipped. Without
// declared options, raw numeric responses are used directly.
func ratingScorer(options []survey.Option) Scorer {
	if len(options) == 0 {
		return numericScorer
	}
	byText := make(map[string]float64, len(options))
	for _, opt := range options {
		if opt.ExcludeFromIndex {
			continue
		}
		if opt.NumericValue != nil {
			byText[strings.TrimSpace(opt.Text)] = *opt.NumericValue
			continue
		}
		if f, ok := parseLeadingNumber(opt.Text); ok {
			byText[strings.TrimSpace(opt.Text)] = f
		}
	}
	return func(v core.Value) (float64, bool) {
		if v.IsMissing() {
			return 0, false
		}
		f, ok := byText[v.Text()]
		return f, ok
	}
}

// likertScorer maps option text to its configured index weight;
// options without one do not enter the index.
func likertScorer(options []survey.Option) Scorer {
	byText := make(map[string]float64, len(options))
	for _, opt := range options {
		if opt.IndexWeight != nil {
			byText[strings.TrimSpace(opt.Text)] = *opt.IndexWeight
		}
	}
	return func(v core.Value) (float64, bool) {
		if v.IsMissing() {
			return 0, false
		}
		f, ok := byText[v.Text()]
		return f, ok
	}
}

// npsScorer classifies a 0-10 response: promoters (>=9) score +100,
// detractors (<=6) score -100, passives 0. A response of exactly 0 is
// a valid detractor. Non-numeric responses (blank, "don't know") do
// not enter the base.
func npsScorer(v core.Value) (float64, bool) {
	f, ok := v.Float()
	if !ok || f < 0 || f > 10 {
		return 0, false
	}
	switch {
	case f >= 9:
		return 100, true
	case f <= 6:
		return -100, true
	}
	return 0, true
}

// numericScorer uses the raw numeric response.
func numericScorer(v core.Value) (float64, bool) {
	return v.Float()
}

// weightedMean aggregates scores over a segment's index set:
// mean = Σ(w·x)/Σw, with a weighted variance and the Kish effective n
// of the contributing respondents for downstream testing.
func (c *Calculator) weightedMean(column []core.Value, indices []int, score Scorer) MeanStat {
	var sumW, sumWX, sumW2 float64
	contributing := make([]int, 0, len(indices))
	scores := make([]float64, 0, len(indices))
	for _, i := range indices {
		x, ok := score(column[i])
		if !ok {
			continue
		}
		w := c.weights.At(i)
		if w <= 0 {
			continue
		}
		sumW += w
		sumW2 += w * w
		sumWX += w * x
		contributing = append(contributing, i)
		scores = append(scores, x)
	}
	if sumW == 0 || len(contributing) == 0 {
		return MeanStat{}
	}

	mean := sumWX / sumW
	var sumWDev float64
	for k, i := range contributing {
		dev := scores[k] - mean
		sumWDev += c.weights.At(i) * dev * dev
	}
	stat := MeanStat{
		Mean:       mean,
		Variance:   sumWDev / sumW,
		WeightSum:  sumW,
		EffectiveN: sumW * sumW / sumW2,
		Defined:    true,
	}
	return stat
}

// parseLeadingNumber extracts a numeric prefix from an option label
// such as "5 - Excellent".
func parseLeadingNumber(label string) (float64, bool) {
	trimmed := strings.TrimSpace(label)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, true
	}
	end := 0
	for end < len(trimmed) {
		ch := trimmed[end]
		if (ch >= '0' && ch <= '9') || ch == '.' || (end == 0 && ch == '-') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
