package composite

import (
	"fmt"
	"strings"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
	"crosstab/internal/tabulate"
)

// CalcType is the closed set of composite calculation types.
type CalcType string

const (
	CalcMean         CalcType = "mean"
	CalcSum          CalcType = "sum"
	CalcWeightedMean CalcType = "weighted_mean"
)

// ParseCalcType validates a raw calculation type tag.
func ParseCalcType(s string) (CalcType, error) {
	switch CalcType(strings.ToLower(strings.TrimSpace(s))) {
	case CalcMean:
		return CalcMean, nil
	case CalcSum:
		return CalcSum, nil
	case CalcWeightedMean:
		return CalcWeightedMean, nil
	}
	return "", errors.InvalidComposite(fmt.Sprintf("unknown calculation type %q", s))
}

// Definition is one virtual question built from several source
// questions of a single shared variable type.
type Definition struct {
	Code    core.QuestionCode   `json:"code"`
	Label   string              `json:"label"`
	Calc    CalcType            `json:"calc"`
	Sources []core.QuestionCode `json:"sources"`
	Weights []float64           `json:"weights,omitempty"`
}

// Validate checks the definition against the question catalog. Rating,
// Likert and Numeric sources are allowed; mixing types fails.
func (d Definition) Validate(questions map[core.QuestionCode]survey.Question) error {
	if len(d.Sources) < 2 {
		return errors.InvalidComposite(
			fmt.Sprintf("composite %s needs at least two sources, has %d", d.Code, len(d.Sources)))
	}
	var shared survey.VariableType
	for i, code := range d.Sources {
		q, ok := questions[code]
		if !ok {
			return errors.InvalidComposite(fmt.Sprintf("composite %s references unknown question %s", d.Code, code))
		}
		switch q.Type {
		case survey.TypeRating, survey.TypeLikert, survey.TypeNumeric:
		default:
			return errors.InvalidComposite(
				fmt.Sprintf("composite %s source %s has type %s; only rating, likert and numeric are allowed", d.Code, code, q.Type))
		}
		if i == 0 {
			shared = q.Type
		} else if q.Type != shared {
			return errors.InvalidComposite(
				fmt.Sprintf("composite %s mixes variable types %s and %s", d.Code, shared, q.Type))
		}
	}
	if d.Calc == CalcWeightedMean {
		if len(d.Weights) != len(d.Sources) {
			return errors.InvalidComposite(
				fmt.Sprintf("composite %s has %d weights for %d sources", d.Code, len(d.Weights), len(d.Sources)))
		}
		for _, w := range d.Weights {
			if w <= 0 {
				return errors.InvalidComposite(
					fmt.Sprintf("composite %s has non-positive source weight %.4g", d.Code, w))
			}
		}
	} else if len(d.Weights) > 0 {
		return errors.InvalidComposite(
			fmt.Sprintf("composite %s declares source weights but calculation type %s ignores them", d.Code, d.Calc))
	}
	return nil
}

// Compute builds the per-respondent score column. Missing sources are
// ignored per respondent; the score is missing only when every source
// is missing. The result behaves exactly like a numeric question
// column and re-enters segmentation, aggregation and mean-path
// significance unchanged.
func Compute(d Definition, table *survey.RespondentTable, questions map[core.QuestionCode]survey.Question) ([]core.Value, survey.Question, error) {
	if err := d.Validate(questions); err != nil {
		return nil, survey.Question{}, err
	}

	type source struct {
		column []core.Value
		score  tabulate.Scorer
		weight float64
	}
	sources := make([]source, 0, len(d.Sources))
	for i, code := range d.Sources {
		q := questions[code]
		column, ok := table.Column(q.Column)
		if !ok {
			return nil, survey.Question{}, errors.BannerColumnNotFound(q.Column)
		}
		score, _, ok := tabulate.ScorerFor(q)
		if !ok {
			return nil, survey.Question{}, errors.InvalidComposite(
				fmt.Sprintf("composite %s source %s has no scalar interpretation", d.Code, code))
		}
		w := 1.0
		if d.Calc == CalcWeightedMean {
			w = d.Weights[i]
		}
		sources = append(sources, source{column: column, score: score, weight: w})
	}

	values := make([]core.Value, table.RowCount())
	for row := range values {
		var sum, weightSum float64
		available := 0
		for _, src := range sources {
			x, ok := src.score(src.column[row])
			if !ok {
				continue
			}
			available++
			sum += src.weight * x
			weightSum += src.weight
		}
		if available == 0 {
			values[row] = core.Missing()
			continue
		}
		switch d.Calc {
		case CalcSum:
			values[row] = core.NewNumber(sum)
		case CalcMean:
			values[row] = core.NewNumber(sum / float64(available))
		case CalcWeightedMean:
			values[row] = core.NewNumber(sum / weightSum)
		}
	}

	virtual := survey.Question{
		Code:  d.Code,
		Label: d.Label,
		Type:  survey.TypeNumeric,
	}
	return values, virtual, nil
}
