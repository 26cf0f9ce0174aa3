package tabulate

import (
	"math"
	"testing"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/weighting"
)

func floatPtr(f float64) *float64 { return &f }

func TestNPSZeroIsValidDetractor(t *testing.T) {
	calc := NewCalculator(weighting.Unit(4), false)
	q := survey.Question{Code: "Q2", Type: survey.TypeNPS}
	column := []core.Value{core.NewNumber(0), core.NewNumber(0), core.NewNumber(9), core.NewNumber(10)}

	stat, kind, ok := calc.Summary(q, column, []int{0, 1, 2, 3})
	if !ok || kind != survey.RowNPS {
		t.Fatalf("expected an NPS summary, got kind=%q ok=%v", kind, ok)
	}
	// Two detractors at -100 and two promoters at +100 cancel exactly;
	// losing the zero responses would report +100 instead.
	if !stat.Defined || stat.Mean != 0 {
		t.Errorf("expected NPS 0, got %+v", stat)
	}
}

func TestNPSExcludesNonNumeric(t *testing.T) {
	calc := NewCalculator(weighting.Unit(3), false)
	q := survey.Question{Code: "Q2", Type: survey.TypeNPS}
	column := []core.Value{core.NewNumber(10), core.NewText("Don't know"), core.Missing()}

	stat, _, _ := calc.Summary(q, column, []int{0, 1, 2})
	if !stat.Defined || stat.Mean != 100 {
		t.Errorf("only the promoter should enter the base, got %+v", stat)
	}
}

func TestRatingMeanFromOptionValues(t *testing.T) {
	calc := NewCalculator(weighting.Unit(3), false)
	q := survey.Question{
		Code: "Q1", Type: survey.TypeRating,
		Options: []survey.Option{
			{Text: "Poor", NumericValue: floatPtr(1)},
			{Text: "Fair", NumericValue: floatPtr(3)},
			{Text: "Excellent", NumericValue: floatPtr(5)},
		},
	}
	column := []core.Value{core.NewText("Poor"), core.NewText("Excellent"), core.NewText("Fair")}

	stat, kind, ok := calc.Summary(q, column, []int{0, 1, 2})
	if !ok || kind != survey.RowMean {
		t.Fatalf("expected a mean row, got %q %v", kind, ok)
	}
	if math.Abs(stat.Mean-3) > 1e-9 {
		t.Errorf("expected mean 3, got %.4f", stat.Mean)
	}
}

func TestRatingParsesLeadingNumberLabels(t *testing.T) {
	calc := NewCalculator(weighting.Unit(2), false)
	q := survey.Question{
		Code: "Q1", Type: survey.TypeRating,
		Options: []survey.Option{{Text: "1 - Poor"}, {Text: "5 - Excellent"}},
	}
	column := []core.Value{core.NewText("1 - Poor"), core.NewText("5 - Excellent")}
	stat, _, _ := calc.Summary(q, column, []int{0, 1})
	if math.Abs(stat.Mean-3) > 1e-9 {
		t.Errorf("expected mean 3 from parsed labels, got %.4f", stat.Mean)
	}
}

func TestLikertIndexUsesConfiguredWeights(t *testing.T) {
	calc := NewCalculator(weighting.Unit(2), false)
	q := survey.Question{
		Code: "Q3", Type: survey.TypeLikert,
		Options: []survey.Option{
			{Text: "Agree", IndexWeight: floatPtr(100)},
			{Text: "Disagree", IndexWeight: floatPtr(0)},
			{Text: "No opinion"}, // no weight, excluded
		},
	}
	column := []core.Value{core.NewText("Agree"), core.NewText("No opinion")}
	stat, kind, _ := calc.Summary(q, column, []int{0, 1})
	if kind != survey.RowIndex {
		t.Errorf("expected index row, got %q", kind)
	}
	if !stat.Defined || stat.Mean != 100 {
		t.Errorf("unweighted options must not enter the index, got %+v", stat)
	}
}

func TestWeightedMeanRespectsWeights(t *testing.T) {
	diags := &survey.Diagnostics{}
	weights, _, err := weighting.Build([]core.Value{core.NewNumber(1), core.NewNumber(3)}, 2, weighting.PolicyExclude, diags)
	if err != nil {
		t.Fatalf("weights: %v", err)
	}
	calc := NewCalculator(weights, false)
	q := survey.Question{Code: "Q6", Type: survey.TypeNumeric}
	column := []core.Value{core.NewNumber(10), core.NewNumber(20)}

	stat, _, _ := calc.Summary(q, column, []int{0, 1})
	want := (1*10.0 + 3*20.0) / 4.0
	if math.Abs(stat.Mean-want) > 1e-9 {
		t.Errorf("expected weighted mean %.4f, got %.4f", want, stat.Mean)
	}
}

func TestSummaryUndefinedWhenNoContributors(t *testing.T) {
	calc := NewCalculator(weighting.Unit(2), false)
	q := survey.Question{Code: "Q6", Type: survey.TypeNumeric}
	column := []core.Value{core.Missing(), core.NewText("n/a")}
	stat, _, _ := calc.Summary(q, column, []int{0, 1})
	if stat.Defined {
		t.Errorf("no numeric responses should leave the mean undefined, got %+v", stat)
	}
	if stat.Cell().Defined {
		t.Error("undefined stat must render an undefined cell")
	}
}

func TestCategoricalHasNoSummary(t *testing.T) {
	calc := NewCalculator(weighting.Unit(1), false)
	q := survey.Question{Code: "Q0", Type: survey.TypeCategorical}
	if _, _, ok := calc.Summary(q, []core.Value{core.NewText("a")}, []int{0}); ok {
		t.Error("categorical questions have no scalar summary")
	}
}
