package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"crosstab/domain/survey"
)

const studyYAML = `
data_file: survey.xlsx
output_file: report.xlsx

weighting:
  column: weight
  policy: exclude

significance:
  alpha: 0.05
  min_base: 30

checkpoint:
  backend: file
  interval: 3

banner:
  - name: Gender
    question: gender
    source_column: gender
    columns:
      - label: Male
        value: Male
      - label: Female
        value: Female

questions:
  - code: Q1
    label: Overall satisfaction
    type: rating
    column: Q1
    options:
      - text: Poor
        numeric_value: 1
      - text: Excellent
        numeric_value: 5
  - code: Q5
    label: Priority ranking
    type: ranking
    ranking:
      format: position
      items: [Price, Quality, Service]
      positions: 3
      top_n: 2

composites:
  - code: SCORE
    label: Combined score
    calc: weighted_mean
    sources: [Q1, Q5]
    weights: [1, 2]
`

func writeStudy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStudy(t *testing.T) {
	study, err := LoadStudy(writeStudy(t, studyYAML))
	require.NoError(t, err)

	require.Equal(t, "survey.xlsx", study.DataFile)
	require.Equal(t, "weight", study.Weighting.Column)
	require.Equal(t, 3, study.Checkpoint.Interval)

	structure, err := study.Structure()
	require.NoError(t, err)
	require.Len(t, structure.Groups(), 1)
	require.Equal(t, "A", structure.Groups()[0].Columns[0].Letter)

	questions, err := study.BuildQuestions()
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, survey.TypeRating, questions[0].Type)
	require.NotNil(t, questions[0].Options[1].NumericValue)
	require.Equal(t, 5.0, *questions[0].Options[1].NumericValue)
	require.Equal(t, survey.RankingByPosition, questions[1].Ranking.Format)
	require.Equal(t, 3, questions[1].Ranking.Positions)

	composites, err := study.BuildComposites()
	require.NoError(t, err)
	require.Len(t, composites, 1)
	require.Equal(t, []float64{1, 2}, composites[0].Weights)
}

func TestLoadStudyDefaults(t *testing.T) {
	study, err := LoadStudy(writeStudy(t, `
data_file: survey.csv
questions:
  - code: Q1
    type: numeric
    column: Q1
`))
	require.NoError(t, err)
	require.Equal(t, 0.05, study.Significance.Alpha)
	require.Equal(t, 30, study.Significance.MinBase)
	require.Equal(t, 5, study.Checkpoint.Interval)
	require.Equal(t, 1.0, study.Ranking.MaxTieRate)
}

func TestLoadStudyValidation(t *testing.T) {
	cases := map[string]string{
		"missing data file": `
questions:
  - code: Q1
    type: numeric
    column: Q1
`,
		"no questions": `
data_file: survey.csv
`,
		"duplicate codes": `
data_file: survey.csv
questions:
  - code: Q1
    type: numeric
    column: Q1
  - code: Q1
    type: numeric
    column: Q2
`,
		"unknown type": `
data_file: survey.csv
questions:
  - code: Q1
    type: sentiment
    column: Q1
`,
		"ranking without block": `
data_file: survey.csv
questions:
  - code: Q5
    type: ranking
`,
		"bad alpha": `
data_file: survey.csv
significance:
  alpha: 1.5
questions:
  - code: Q1
    type: numeric
    column: Q1
`,
		"bad checkpoint backend": `
data_file: survey.csv
checkpoint:
  backend: redis
questions:
  - code: Q1
    type: numeric
    column: Q1
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadStudy(writeStudy(t, content))
			require.Error(t, err)
		})
	}
}

func TestQuestionWithoutColumnsFails(t *testing.T) {
	_, err := LoadStudy(writeStudy(t, `
data_file: survey.csv
questions:
  - code: Q1
    type: categorical
`))
	require.Error(t, err)
}

func TestRuntimeDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHECKPOINT_DIR", "")
	rt := LoadRuntime()
	require.Equal(t, ".crosstab/checkpoints", rt.CheckpointDir)
}
