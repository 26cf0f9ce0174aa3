package significance

import (
	"fmt"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/survey"
)

// Config carries the run-level testing parameters.
type Config struct {
	Alpha   float64
	MinBase int
}

// ProportionInput is one segment's statistic for a proportion row.
type ProportionInput struct {
	Proportion float64
	EffectiveN float64
	Base       int
	Defined    bool
}

// MeanInput is one segment's statistic for a mean or index row.
type MeanInput struct {
	Mean       float64
	Variance   float64
	EffectiveN float64
	Base       int
	Defined    bool
}

// ProportionLetters runs every pairwise two-proportion z-test within
// one banner group and returns the letter string per segment: the
// letters of every other segment it is significantly greater than at
// the Bonferroni-corrected alpha. The Total column is never tested.
// Pairs where either base is below the minimum are skipped, not
// failed, and recorded as diagnostics.
func ProportionLetters(group banner.Group, inputs map[core.SegmentKey]ProportionInput, cfg Config, question core.QuestionCode, diags *survey.Diagnostics) map[core.SegmentKey]string {
	corrected := BonferroniAlpha(cfg.Alpha, len(group.Columns))
	letters := make(map[core.SegmentKey]string, len(group.Columns))

	forEachPair(group, cfg, question, diags, inputs0(inputs), func(a, b banner.Column) {
		ia, ib := inputs[a.Key], inputs[b.Key]
		res := TwoProportionZ(ia.Proportion, ia.EffectiveN, ib.Proportion, ib.EffectiveN)
		if !res.Performed {
			return
		}
		if res.PValue < corrected {
			if ia.Proportion > ib.Proportion {
				letters[a.Key] += b.Letter
			} else if ib.Proportion > ia.Proportion {
				letters[b.Key] += a.Letter
			}
		}
	})
	return letters
}

// MeanLetters is the mean-row counterpart of ProportionLetters, using
// the two-sample weighted t-test.
func MeanLetters(group banner.Group, inputs map[core.SegmentKey]MeanInput, cfg Config, question core.QuestionCode, diags *survey.Diagnostics) map[core.SegmentKey]string {
	corrected := BonferroniAlpha(cfg.Alpha, len(group.Columns))
	letters := make(map[core.SegmentKey]string, len(group.Columns))

	forEachPair(group, cfg, question, diags, inputsM(inputs), func(a, b banner.Column) {
		ia, ib := inputs[a.Key], inputs[b.Key]
		res := WelchT(ia.Mean, ia.Variance, ia.EffectiveN, ib.Mean, ib.Variance, ib.EffectiveN)
		if !res.Performed {
			return
		}
		if res.PValue < corrected {
			if ia.Mean > ib.Mean {
				letters[a.Key] += b.Letter
			} else if ib.Mean > ia.Mean {
				letters[b.Key] += a.Letter
			}
		}
	})
	return letters
}

// pairInput is the gate view of a segment's input.
type pairInput struct {
	base    int
	defined bool
}

func inputs0(in map[core.SegmentKey]ProportionInput) func(core.SegmentKey) pairInput {
	return func(k core.SegmentKey) pairInput {
		i := in[k]
		return pairInput{base: i.Base, defined: i.Defined}
	}
}

func inputsM(in map[core.SegmentKey]MeanInput) func(core.SegmentKey) pairInput {
	return func(k core.SegmentKey) pairInput {
		i := in[k]
		return pairInput{base: i.Base, defined: i.Defined}
	}
}

// forEachPair walks pairs in declared column order, applying the
// minimum-base gate. Declared order keeps letter assignment
// deterministic: letters are positional identifiers in the output.
func forEachPair(group banner.Group, cfg Config, question core.QuestionCode, diags *survey.Diagnostics, input func(core.SegmentKey) pairInput, test func(a, b banner.Column)) {
	cols := group.Columns
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			a, b := cols[i], cols[j]
			ia, ib := input(a.Key), input(b.Key)
			if !ia.defined || !ib.defined {
				continue
			}
			if ia.base < cfg.MinBase || ib.base < cfg.MinBase {
				diags.Add(survey.DiagSigTestSkipped, question,
					fmt.Sprintf("%s vs %s skipped: base below minimum %d", a.Label, b.Label, cfg.MinBase))
				continue
			}
			test(a, b)
		}
	}
}
