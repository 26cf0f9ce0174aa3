package composite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

func floatPtr(f float64) *float64 { return &f }

func catalogAndTable(t *testing.T) (map[core.QuestionCode]survey.Question, *survey.RespondentTable) {
	t.Helper()
	questions := map[core.QuestionCode]survey.Question{
		"Q1": {Code: "Q1", Type: survey.TypeRating, Column: "Q1"},
		"Q2": {Code: "Q2", Type: survey.TypeRating, Column: "Q2"},
		"Q3": {Code: "Q3", Type: survey.TypeRating, Column: "Q3"},
		"Q4": {Code: "Q4", Type: survey.TypeCategorical, Column: "Q4",
			Options: []survey.Option{{Text: "Yes", NumericValue: floatPtr(1)}}},
		"Q5": {Code: "Q5", Type: survey.TypeNumeric, Column: "Q5"},
	}
	columns := []string{"Q1", "Q2", "Q3", "Q4", "Q5"}
	data := [][]core.Value{
		{core.NewNumber(4), core.Missing()},
		{core.Missing(), core.Missing()},
		{core.NewNumber(8), core.Missing()},
		{core.NewText("Yes"), core.NewText("No")},
		{core.NewNumber(2), core.NewNumber(3)},
	}
	table, err := survey.NewRespondentTable(columns, data)
	require.NoError(t, err)
	return questions, table
}

func TestWeightedMeanRenormalizesOverPresent(t *testing.T) {
	questions, table := catalogAndTable(t)
	def := Definition{
		Code: "SAT", Label: "Satisfaction", Calc: CalcWeightedMean,
		Sources: []core.QuestionCode{"Q1", "Q2", "Q3"},
		Weights: []float64{1, 1, 2},
	}
	values, virtual, err := Compute(def, table, questions)
	require.NoError(t, err)
	require.Equal(t, survey.TypeNumeric, virtual.Type)

	// Respondent 0: Q2 is missing, so the weights renormalize over Q1
	// and Q3: (1*4 + 2*8) / (1+2).
	f, ok := values[0].Float()
	require.True(t, ok)
	require.InDelta(t, 20.0/3.0, f, 1e-9)
}

func TestAllMissingSourcesYieldMissing(t *testing.T) {
	questions, table := catalogAndTable(t)
	def := Definition{
		Code: "SAT", Calc: CalcMean,
		Sources: []core.QuestionCode{"Q1", "Q2", "Q3"},
	}
	values, _, err := Compute(def, table, questions)
	require.NoError(t, err)
	// Respondent 1 answered none of the sources.
	require.True(t, values[1].IsMissing(), "all-missing respondent must stay missing, never zero")
}

func TestMeanAndSum(t *testing.T) {
	questions, table := catalogAndTable(t)
	mean := Definition{Code: "M", Calc: CalcMean, Sources: []core.QuestionCode{"Q1", "Q3"}}
	values, _, err := Compute(mean, table, questions)
	require.NoError(t, err)
	f, _ := values[0].Float()
	require.InDelta(t, 6, f, 1e-9)

	sum := Definition{Code: "S", Calc: CalcSum, Sources: []core.QuestionCode{"Q1", "Q3"}}
	values, _, err = Compute(sum, table, questions)
	require.NoError(t, err)
	f, _ = values[0].Float()
	require.InDelta(t, 12, f, 1e-9)
}

func TestValidateRejectsBadDefinitions(t *testing.T) {
	questions, _ := catalogAndTable(t)

	cases := []struct {
		name string
		def  Definition
	}{
		{"single source", Definition{Code: "X", Calc: CalcMean, Sources: []core.QuestionCode{"Q1"}}},
		{"unknown source", Definition{Code: "X", Calc: CalcMean, Sources: []core.QuestionCode{"Q1", "NOPE"}}},
		{"categorical source", Definition{Code: "X", Calc: CalcMean, Sources: []core.QuestionCode{"Q1", "Q4"}}},
		{"mixed types", Definition{Code: "X", Calc: CalcMean, Sources: []core.QuestionCode{"Q1", "Q5"}}},
		{"weight count mismatch", Definition{Code: "X", Calc: CalcWeightedMean,
			Sources: []core.QuestionCode{"Q1", "Q2"}, Weights: []float64{1}}},
		{"non-positive weight", Definition{Code: "X", Calc: CalcWeightedMean,
			Sources: []core.QuestionCode{"Q1", "Q2"}, Weights: []float64{1, 0}}},
		{"weights without weighted_mean", Definition{Code: "X", Calc: CalcMean,
			Sources: []core.QuestionCode{"Q1", "Q2"}, Weights: []float64{1, 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate(questions)
			require.Error(t, err)
			require.Equal(t, errors.CodeInvalidComposite, errors.GetCode(err))
		})
	}
}

func TestParseCalcType(t *testing.T) {
	for raw, want := range map[string]CalcType{
		"mean": CalcMean, " Sum ": CalcSum, "WEIGHTED_MEAN": CalcWeightedMean,
	} {
		got, err := ParseCalcType(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseCalcType("median")
	require.Error(t, err)
}
