package weighting

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// Policy selects how invalid weight values are repaired.
type Policy string

const (
	// PolicyExclude zeroes missing and infinite weights, keeps zeros
	// and refuses negatives. Default.
	PolicyExclude Policy = "exclude"
	// PolicyCoerceToOne forces every invalid value to 1. Legacy
	// behavior that biases estimates; opt-in only.
	PolicyCoerceToOne Policy = "coerce_to_one"
	// PolicyError fails on any missing, zero, negative or infinite
	// value.
	PolicyError Policy = "error"
)

// ParsePolicy validates a raw policy tag; empty selects the default.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.TrimSpace(s)) {
	case PolicyExclude, "":
		return PolicyExclude, nil
	case PolicyCoerceToOne:
		return PolicyCoerceToOne, nil
	case PolicyError:
		return PolicyError, nil
	}
	return "", errors.ConfigInvalid(fmt.Sprintf("unknown weight repair policy %q", s))
}

// zeroWarnShare is the share of zero weights above which the exclude
// policy warns.
const zeroWarnShare = 0.05

// cvWarnThreshold is the weight coefficient of variation above which
// an informational warning is recorded.
const cvWarnThreshold = 1.0

// Sequence is the validated per-respondent design weight vector.
// Segments never copy it; they read through index sets.
type Sequence struct {
	values  []float64
	uniform bool
}

// Unit returns unit weights for n respondents: weighting is off.
func Unit(n int) *Sequence {
	values := make([]float64, n)
	for i := range values {
		values[i] = 1
	}
	return &Sequence{values: values, uniform: true}
}

// Len returns the number of respondents.
func (s *Sequence) Len() int {
	return len(s.values)
}

// At returns the weight of one respondent row.
func (s *Sequence) At(i int) float64 {
	return s.values[i]
}

// Enabled reports whether a real weight variable is in effect.
func (s *Sequence) Enabled() bool {
	return !s.uniform
}

// Summary holds the run-level weighting diagnostics.
type Summary struct {
	NonZero      int     `json:"non_zero"`
	Zeroed       int     `json:"zeroed"`
	Coerced      int     `json:"coerced"`
	EffectiveN   float64 `json:"effective_n"`
	DesignEffect float64 `json:"design_effect"`
	CV           float64 `json:"cv"`
}

// Build validates and repairs a raw weight column into a usable
// sequence. A nil column means no weight variable is configured and
// yields unit weights. The column length must equal rows.
func Build(column []core.Value, rows int, policy Policy, diags *survey.Diagnostics) (*Sequence, Summary, error) {
	if column == nil {
		seq := Unit(rows)
		return seq, seq.describe(), nil
	}
	if len(column) != rows {
		return nil, Summary{}, errors.InternalError(
			fmt.Sprintf("weight column has %d values, expected %d", len(column), rows))
	}

	values := make([]float64, rows)
	var zeroed, coerced, zeros int
	for i, v := range column {
		if !v.IsMissing() && !v.IsNumeric() {
			return nil, Summary{}, errors.InvalidType(
				fmt.Sprintf("weight value %q at row %d is not numeric", v.Text(), i))
		}
		w, ok := v.Float()
		switch {
		case !ok: // missing or infinite
			switch policy {
			case PolicyError:
				return nil, Summary{}, errors.New(errors.CodeInvalidWeight,
					fmt.Sprintf("missing weight at row %d under error policy", i))
			case PolicyCoerceToOne:
				values[i] = 1
				coerced++
			default:
				values[i] = 0
				zeroed++
			}
		case w < 0:
			switch policy {
			case PolicyCoerceToOne:
				values[i] = 1
				coerced++
			default:
				// exclude and error both refuse negatives
				return nil, Summary{}, errors.NegativeWeights(
					fmt.Sprintf("negative weight %.6g at row %d", w, i))
			}
		case w == 0:
			switch policy {
			case PolicyError:
				return nil, Summary{}, errors.New(errors.CodeInvalidWeight,
					fmt.Sprintf("zero weight at row %d under error policy", i))
			case PolicyCoerceToOne:
				values[i] = 1
				coerced++
			default:
				values[i] = 0
				zeros++
			}
		default:
			values[i] = w
		}
	}

	seq := &Sequence{values: values}
	summary := seq.describe()
	summary.Zeroed = zeroed
	summary.Coerced = coerced
	if summary.NonZero == 0 {
		return nil, Summary{}, errors.NoValidWeights("no respondent has a positive finite weight after repair")
	}

	if coerced > 0 {
		diags.Add(survey.DiagWeightRepair, "",
			fmt.Sprintf("coerce_to_one forced %d invalid weights to 1; estimates are biased", coerced))
	}
	if zeroed > 0 {
		diags.Add(survey.DiagWeightRepair, "",
			fmt.Sprintf("%d missing or infinite weights set to 0", zeroed))
	}
	if rows > 0 && float64(zeros)/float64(rows) > zeroWarnShare {
		diags.Add(survey.DiagWeightRepair, "",
			fmt.Sprintf("%d of %d respondents carry a zero weight", zeros, rows))
	}
	if summary.CV > cvWarnThreshold {
		diags.Add(survey.DiagWeightVariance, "",
			fmt.Sprintf("weight coefficient of variation %.2f exceeds %.1f; effective sample size is substantially reduced", summary.CV, cvWarnThreshold))
	}
	return seq, summary, nil
}

// describe computes the run-level summary over positive weights.
func (s *Sequence) describe() Summary {
	positive := make([]float64, 0, len(s.values))
	for _, w := range s.values {
		if w > 0 {
			positive = append(positive, w)
		}
	}
	summary := Summary{NonZero: len(positive)}
	if len(positive) == 0 {
		return summary
	}

	summary.EffectiveN = kish(positive)
	if summary.EffectiveN > 0 {
		summary.DesignEffect = float64(len(positive)) / summary.EffectiveN
	}
	mean, _ := stats.Mean(positive)
	sd, _ := stats.StandardDeviationSample(positive)
	if mean > 0 {
		summary.CV = sd / mean
	}
	return summary
}

// kish computes Kish's effective sample size (Σw)²/Σw².
func kish(weights []float64) float64 {
	var sum, sumSq float64
	for _, w := range weights {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}

// BaseSize computes the per-segment sample size triple over an index
// set: unweighted n, weighted n and Kish effective n. Only strictly
// positive weights enter the effective-n formula.
func (s *Sequence) BaseSize(indices []int) survey.BaseSize {
	var sum, sumSq float64
	for _, i := range indices {
		w := s.values[i]
		if w > 0 {
			sum += w
			sumSq += w * w
		}
	}
	base := survey.BaseSize{Unweighted: len(indices), Weighted: s.WeightedCount(indices)}
	if sumSq > 0 {
		base.Effective = sum * sum / sumSq
	}
	return base
}

// WeightedCount sums weights over an index set.
func (s *Sequence) WeightedCount(indices []int) float64 {
	var sum float64
	for _, i := range indices {
		sum += s.values[i]
	}
	return sum
}
