package ranking

import (
	"fmt"
	"math"

	"crosstab/domain/survey"
	"crosstab/internal/significance"
	"crosstab/internal/weighting"
)

// ItemStats are one item's metrics for one segment. Mean rank is on
// the canonical scale where lower means better; rendered labels must
// say so.
type ItemStats struct {
	First    significance.ProportionInput
	TopN     significance.ProportionInput
	MeanRank significance.MeanInput
}

// ResolveTopN clamps the configured top-N to the number of rank
// positions, warning when it had to.
func ResolveTopN(spec *survey.RankingSpec, ctx *Context) int {
	n := spec.TopN
	if n < 1 {
		n = 1
	}
	if n > spec.Positions {
		ctx.Diags.Add(survey.DiagTopNClamped, ctx.Question,
			fmt.Sprintf("top-%d clamped to the %d available rank positions", n, spec.Positions))
		n = spec.Positions
	}
	return n
}

// ItemMetrics computes one item's metrics over a segment's index set.
// % ranked first and % top-N use the respondents who ranked anything
// as their base; mean rank averages over the respondents who ranked
// this item with a usable (integer, in-range) rank.
func ItemMetrics(m *Matrix, item int, indices []int, weights *weighting.Sequence, topN int) ItemStats {
	var baseW, baseW2, firstW, topW float64
	baseN := 0

	var sumW, sumW2, sumWX float64
	contributing := make([]int, 0, len(indices))
	ranks := make([]float64, 0, len(indices))

	for _, row := range indices {
		if !m.HasResponse(row) {
			continue
		}
		w := weights.At(row)
		if w <= 0 {
			continue
		}
		baseN++
		baseW += w
		baseW2 += w * w

		r, ok := usableRank(m, row, item)
		if !ok {
			continue
		}
		if r == 1 {
			firstW += w
		}
		if r <= topN {
			topW += w
		}
		sumW += w
		sumW2 += w * w
		sumWX += w * float64(r)
		contributing = append(contributing, row)
		ranks = append(ranks, float64(r))
	}

	stats := ItemStats{}
	if baseW > 0 {
		effN := baseW * baseW / baseW2
		stats.First = significance.ProportionInput{
			Proportion: firstW / baseW,
			EffectiveN: effN,
			Base:       baseN,
			Defined:    true,
		}
		stats.TopN = significance.ProportionInput{
			Proportion: topW / baseW,
			EffectiveN: effN,
			Base:       baseN,
			Defined:    true,
		}
	}
	if sumW > 0 {
		mean := sumWX / sumW
		var sumWDev float64
		for k, row := range contributing {
			dev := ranks[k] - mean
			sumWDev += weights.At(row) * dev * dev
		}
		stats.MeanRank = significance.MeanInput{
			Mean:       mean,
			Variance:   sumWDev / sumW,
			EffectiveN: sumW * sumW / sumW2,
			Base:       len(contributing),
			Defined:    true,
		}
	}
	return stats
}

// usableRank returns the item's rank for a row when it is present,
// integer and within [1, positions].
func usableRank(m *Matrix, row, item int) (int, bool) {
	v := m.Rank(row, item)
	if math.IsNaN(v) || v != math.Trunc(v) {
		return 0, false
	}
	r := int(v)
	if r < 1 || r > m.Positions {
		return 0, false
	}
	return r, true
}
