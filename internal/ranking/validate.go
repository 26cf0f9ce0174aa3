package ranking

import (
	"fmt"
	"math"

	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// Thresholds are the independently configurable data-quality limits.
// Shares are in [0,1]. Exceeding a threshold records a warning; with
// Strict set it fails the question instead.
type Thresholds struct {
	MaxOutOfRangeShare float64 `mapstructure:"max_out_of_range_share"`
	MaxNonIntegerShare float64 `mapstructure:"max_non_integer_share"`
	MinCompleteness    float64 `mapstructure:"min_completeness"`
	MaxTieRate         float64 `mapstructure:"max_tie_rate"`
	MaxGapRate         float64 `mapstructure:"max_gap_rate"`
	Strict             bool    `mapstructure:"strict"`
}

// DefaultThresholds are permissive: everything is reported, nothing
// fails.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxOutOfRangeShare: 1,
		MaxNonIntegerShare: 1,
		MinCompleteness:    0,
		MaxTieRate:         1,
		MaxGapRate:         1,
	}
}

// ValidationStats are the tallies produced by Validate.
type ValidationStats struct {
	Respondents  int     `json:"respondents"`
	OutOfRange   int     `json:"out_of_range"`
	NonInteger   int     `json:"non_integer"`
	Completeness float64 `json:"completeness"`
	TieRate      float64 `json:"tie_rate"`
	GapRate      float64 `json:"gap_rate"`
}

// Validate inspects the normalized matrix and records data-quality
// warnings in the context. Invalid cells stay in the matrix; metrics
// exclude them per the degradation rules.
func Validate(m *Matrix, thresholds Thresholds, ctx *Context) error {
	stats := ValidationStats{Respondents: m.Rows()}
	cells := 0
	answered := 0
	ties := 0
	gaps := 0

	for i := range m.ranks {
		used := make(map[int]int)
		rowAnswered := false
		for _, v := range m.ranks[i] {
			if math.IsNaN(v) {
				continue
			}
			cells++
			rowAnswered = true
			if v != math.Trunc(v) {
				stats.NonInteger++
				continue
			}
			r := int(v)
			if r < 1 || r > m.Positions {
				stats.OutOfRange++
				continue
			}
			used[r]++
		}
		if !rowAnswered {
			continue
		}
		answered++
		if hasTie(used) {
			ties++
		}
		if hasGap(used) {
			gaps++
		}
	}

	totalCells := m.Rows() * len(m.Items)
	if totalCells > 0 {
		stats.Completeness = float64(cells) / float64(totalCells)
	}
	if answered > 0 {
		stats.TieRate = float64(ties) / float64(answered)
		stats.GapRate = float64(gaps) / float64(answered)
	}
	ctx.Stats = stats

	checks := []struct {
		exceeded bool
		message  string
	}{
		{cells > 0 && float64(stats.OutOfRange)/float64(cells) > thresholds.MaxOutOfRangeShare,
			fmt.Sprintf("%d ranks outside [1,%d]", stats.OutOfRange, m.Positions)},
		{cells > 0 && float64(stats.NonInteger)/float64(cells) > thresholds.MaxNonIntegerShare,
			fmt.Sprintf("%d non-integer ranks", stats.NonInteger)},
		{stats.Completeness < thresholds.MinCompleteness,
			fmt.Sprintf("completeness %.0f%% below %.0f%%", stats.Completeness*100, thresholds.MinCompleteness*100)},
		{stats.TieRate > thresholds.MaxTieRate,
			fmt.Sprintf("tie rate %.0f%% above %.0f%%", stats.TieRate*100, thresholds.MaxTieRate*100)},
		{stats.GapRate > thresholds.MaxGapRate,
			fmt.Sprintf("gap rate %.0f%% above %.0f%%", stats.GapRate*100, thresholds.MaxGapRate*100)},
	}
	for _, check := range checks {
		if !check.exceeded {
			continue
		}
		if thresholds.Strict {
			return errors.InvalidRankingFormat(
				fmt.Sprintf("question %s: %s (strict thresholds)", ctx.Question, check.message))
		}
		ctx.Diags.Add(survey.DiagRankingQuality, ctx.Question, check.message)
	}

	// Always-on informational warnings for ties and gaps even under
	// permissive thresholds: they change how mean ranks read.
	if ties > 0 && stats.TieRate <= thresholds.MaxTieRate {
		ctx.Diags.Add(survey.DiagRankingQuality, ctx.Question,
			fmt.Sprintf("%d respondents assigned the same rank to several items", ties))
	}
	if gaps > 0 && stats.GapRate <= thresholds.MaxGapRate {
		ctx.Diags.Add(survey.DiagRankingQuality, ctx.Question,
			fmt.Sprintf("%d respondents used non-contiguous ranks", gaps))
	}
	return nil
}

// hasTie reports whether any rank was used more than once.
func hasTie(used map[int]int) bool {
	for _, n := range used {
		if n > 1 {
			return true
		}
	}
	return false
}

// hasGap reports whether the used ranks are not contiguous from 1.
func hasGap(used map[int]int) bool {
	if len(used) == 0 {
		return false
	}
	for r := 1; r <= len(used); r++ {
		if _, ok := used[r]; !ok {
			return true
		}
	}
	return false
}
