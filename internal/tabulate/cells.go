package tabulate

import (
	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/weighting"
)

// Calculator produces weighted cell values for one question. It reads
// the shared weight sequence through index sets and never copies it.
type Calculator struct {
	weights *weighting.Sequence
	// zeroRowTotalAsZero renders the Total row % as 0% instead of
	// blank when the row total across the group is 0.
	zeroRowTotalAsZero bool
}

// NewCalculator creates a calculator over the run's weight sequence.
func NewCalculator(weights *weighting.Sequence, zeroRowTotalAsZero bool) *Calculator {
	return &Calculator{weights: weights, zeroRowTotalAsZero: zeroRowTotalAsZero}
}

// Weights exposes the underlying sequence for base-size computation.
func (c *Calculator) Weights() *weighting.Sequence {
	return c.weights
}

// CountSingle is the weighted frequency of one option in a
// single-choice column over a segment's index set.
func (c *Calculator) CountSingle(column []core.Value, indices []int, option string) float64 {
	var sum float64
	for _, i := range indices {
		if column[i].EqualsText(option) {
			sum += c.weights.At(i)
		}
	}
	return sum
}

// MentionWeight is the weighted frequency of one option across every
// mention column. The matched weight is summed per slot, so a
// respondent whose answer legitimately appears in more than one
// mention slot contributes more than once. Segmentation membership
// for the same question dedups via OR; the asymmetry is deliberate
// and matches the source behavior.
func (c *Calculator) MentionWeight(columns [][]core.Value, indices []int, option string) float64 {
	var sum float64
	for _, i := range indices {
		w := c.weights.At(i)
		for _, column := range columns {
			if column[i].EqualsText(option) {
				sum += w
			}
		}
	}
	return sum
}

// Percentage computes (count/base)*100. A zero or negative base makes
// the result undefined, never zero.
func Percentage(count, base float64) survey.Cell {
	if base <= 0 {
		return survey.UndefinedCell()
	}
	return survey.NewCell(count / base * 100)
}

// ColumnPercent divides a count by the segment's own base: the
// weighted base when weighting is on, otherwise the unweighted n.
func (c *Calculator) ColumnPercent(count float64, base survey.BaseSize) survey.Cell {
	if c.weights.Enabled() {
		return Percentage(count, base.Weighted)
	}
	return Percentage(count, float64(base.Unweighted))
}

// RowPercents divides each segment's count by the within-group total
// of the row's counts. The Total column always reports 100% unless
// its own row total is 0, in which case it is blank (or 0% by
// configuration).
func (c *Calculator) RowPercents(structure *banner.Structure, counts map[core.SegmentKey]float64) map[core.SegmentKey]survey.Cell {
	out := make(map[core.SegmentKey]survey.Cell, len(counts))

	if total, ok := counts[core.TotalSegmentKey]; ok {
		if total > 0 {
			out[core.TotalSegmentKey] = survey.NewCell(100)
		} else if c.zeroRowTotalAsZero {
			out[core.TotalSegmentKey] = survey.NewCell(0)
		} else {
			out[core.TotalSegmentKey] = survey.UndefinedCell()
		}
	}

	for _, g := range structure.Groups() {
		var groupTotal float64
		for _, col := range g.Columns {
			groupTotal += counts[col.Key]
		}
		for _, col := range g.Columns {
			out[col.Key] = Percentage(counts[col.Key], groupTotal)
		}
	}
	return out
}
