// Package config loads the study definition and runtime settings. The
// study file (YAML, read through viper) declares the banner, questions
// and composites; environment variables (.env supported) carry the
// runtime knobs that change between machines, not between studies.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/composite"
	"crosstab/internal/errors"
	"crosstab/internal/ranking"
	"crosstab/internal/weighting"
)

// Study is the full declarative run definition.
type Study struct {
	DataFile     string             `mapstructure:"data_file"`
	Sheet        string             `mapstructure:"sheet"`
	OutputFile   string             `mapstructure:"output_file"`
	Weighting    WeightingSpec      `mapstructure:"weighting"`
	Significance SignificanceSpec   `mapstructure:"significance"`
	Rendering    RenderingSpec      `mapstructure:"rendering"`
	Checkpoint   CheckpointSpec     `mapstructure:"checkpoint"`
	Ranking      ranking.Thresholds `mapstructure:"ranking"`
	Banner       []banner.GroupSpec `mapstructure:"banner"`
	Questions    []QuestionSpec     `mapstructure:"questions"`
	Composites   []CompositeSpec    `mapstructure:"composites"`
}

// WeightingSpec selects the weight variable and repair policy.
type WeightingSpec struct {
	Column string `mapstructure:"column"`
	Policy string `mapstructure:"policy"`
}

// SignificanceSpec carries the testing parameters.
type SignificanceSpec struct {
	Alpha   float64 `mapstructure:"alpha"`
	MinBase int     `mapstructure:"min_base"`
}

// RenderingSpec carries display conventions.
type RenderingSpec struct {
	ZeroRowTotalAsZero bool `mapstructure:"zero_row_total_as_zero"`
}

// CheckpointSpec selects the checkpoint backend and save interval.
// Backend is "file", "postgres" or empty for none.
type CheckpointSpec struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Interval int    `mapstructure:"interval"`
}

// OptionSpec declares one response option.
type OptionSpec struct {
	Text             string   `mapstructure:"text"`
	NumericValue     *float64 `mapstructure:"numeric_value"`
	IndexWeight      *float64 `mapstructure:"index_weight"`
	ExcludeFromIndex bool     `mapstructure:"exclude_from_index"`
}

// RankingSpec declares a rank-order question's layout.
type RankingSpec struct {
	Format      string   `mapstructure:"format"`
	Items       []string `mapstructure:"items"`
	Positions   int      `mapstructure:"positions"`
	WorstToBest bool     `mapstructure:"worst_to_best"`
	TopN        int      `mapstructure:"top_n"`
}

// QuestionSpec declares one question to tabulate.
type QuestionSpec struct {
	Code           string       `mapstructure:"code"`
	Label          string       `mapstructure:"label"`
	Type           string       `mapstructure:"type"`
	Column         string       `mapstructure:"column"`
	MentionColumns []string     `mapstructure:"mention_columns"`
	Options        []OptionSpec `mapstructure:"options"`
	BaseFilter     string       `mapstructure:"base_filter"`
	Ranking        *RankingSpec `mapstructure:"ranking"`
}

// CompositeSpec declares one derived metric.
type CompositeSpec struct {
	Code    string    `mapstructure:"code"`
	Label   string    `mapstructure:"label"`
	Calc    string    `mapstructure:"calc"`
	Sources []string  `mapstructure:"sources"`
	Weights []float64 `mapstructure:"weights"`
}

// Runtime holds machine-level settings read from the environment.
type Runtime struct {
	DatabaseURL   string
	CheckpointDir string
}

// LoadRuntime reads environment settings, loading .env when present.
func LoadRuntime() Runtime {
	_ = godotenv.Load()
	rt := Runtime{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CheckpointDir: os.Getenv("CHECKPOINT_DIR"),
	}
	if rt.CheckpointDir == "" {
		rt.CheckpointDir = ".crosstab/checkpoints"
	}
	return rt
}

// LoadStudy reads and validates a study file.
func LoadStudy(path string) (*Study, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("significance.alpha", 0.05)
	v.SetDefault("significance.min_base", 30)
	v.SetDefault("checkpoint.interval", 5)
	v.SetDefault("ranking", map[string]interface{}{
		"max_out_of_range_share": 1.0,
		"max_non_integer_share":  1.0,
		"min_completeness":       0.0,
		"max_tie_rate":           1.0,
		"max_gap_rate":           1.0,
	})

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("failed to read study file %s: %v", path, err))
	}
	var study Study
	if err := v.Unmarshal(&study); err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("failed to decode study file %s: %v", path, err))
	}
	if err := study.validate(); err != nil {
		return nil, err
	}
	return &study, nil
}

func (s *Study) validate() error {
	if strings.TrimSpace(s.DataFile) == "" {
		return errors.ConfigInvalid("data_file is required")
	}
	if len(s.Questions) == 0 {
		return errors.ConfigInvalid("at least one question is required")
	}
	if _, err := weighting.ParsePolicy(s.Weighting.Policy); err != nil {
		return err
	}
	if s.Significance.Alpha <= 0 || s.Significance.Alpha >= 1 {
		return errors.ConfigInvalid(
			fmt.Sprintf("significance alpha %s must be in (0,1)", strconv.FormatFloat(s.Significance.Alpha, 'g', -1, 64)))
	}
	switch s.Checkpoint.Backend {
	case "", "file", "postgres":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown checkpoint backend %q", s.Checkpoint.Backend))
	}
	seen := make(map[string]bool)
	for _, q := range s.Questions {
		if strings.TrimSpace(q.Code) == "" {
			return errors.ConfigInvalid("every question needs a code")
		}
		if seen[q.Code] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate question code %q", q.Code))
		}
		seen[q.Code] = true
	}
	for _, c := range s.Composites {
		if strings.TrimSpace(c.Code) == "" {
			return errors.ConfigInvalid("every composite needs a code")
		}
		if seen[c.Code] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate code %q", c.Code))
		}
		seen[c.Code] = true
	}
	return nil
}

// Structure builds the validated banner structure.
func (s *Study) Structure() (*banner.Structure, error) {
	return banner.StructureFromSpec(s.Banner)
}

// BuildQuestions converts the question specs to domain questions.
func (s *Study) BuildQuestions() ([]survey.Question, error) {
	questions := make([]survey.Question, 0, len(s.Questions))
	for _, spec := range s.Questions {
		q, err := spec.build()
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (spec QuestionSpec) build() (survey.Question, error) {
	code, err := core.ParseQuestionCode(spec.Code)
	if err != nil {
		return survey.Question{}, errors.ConfigInvalid(err.Error())
	}
	vtype, ok := survey.ParseVariableType(spec.Type)
	if !ok {
		return survey.Question{}, errors.ConfigInvalid(
			fmt.Sprintf("question %s has unknown type %q", spec.Code, spec.Type))
	}
	q := survey.Question{
		Code:           code,
		Label:          spec.Label,
		Type:           vtype,
		Column:         spec.Column,
		MentionColumns: spec.MentionColumns,
		BaseFilter:     spec.BaseFilter,
	}
	if q.Label == "" {
		q.Label = spec.Code
	}
	for _, o := range spec.Options {
		q.Options = append(q.Options, survey.Option{
			Text:             o.Text,
			NumericValue:     o.NumericValue,
			IndexWeight:      o.IndexWeight,
			ExcludeFromIndex: o.ExcludeFromIndex,
		})
	}
	if vtype == survey.TypeRanking {
		if spec.Ranking == nil {
			return survey.Question{}, errors.ConfigInvalid(
				fmt.Sprintf("ranking question %s needs a ranking block", spec.Code))
		}
		format := survey.RankingFormat(spec.Ranking.Format)
		switch format {
		case survey.RankingByPosition, survey.RankingByItem:
		default:
			return survey.Question{}, errors.ConfigInvalid(
				fmt.Sprintf("question %s has unknown ranking format %q", spec.Code, spec.Ranking.Format))
		}
		q.Ranking = &survey.RankingSpec{
			Format:      format,
			Items:       spec.Ranking.Items,
			Positions:   spec.Ranking.Positions,
			WorstToBest: spec.Ranking.WorstToBest,
			TopN:        spec.Ranking.TopN,
		}
	}
	if q.Type != survey.TypeRanking && len(q.DataColumns()) == 0 {
		return survey.Question{}, errors.ConfigInvalid(
			fmt.Sprintf("question %s declares no data columns", spec.Code))
	}
	return q, nil
}

// BuildComposites converts the composite specs to definitions.
func (s *Study) BuildComposites() ([]composite.Definition, error) {
	defs := make([]composite.Definition, 0, len(s.Composites))
	for _, spec := range s.Composites {
		calc, err := composite.ParseCalcType(spec.Calc)
		if err != nil {
			return nil, err
		}
		code, err := core.ParseQuestionCode(spec.Code)
		if err != nil {
			return nil, errors.ConfigInvalid(err.Error())
		}
		sources := make([]core.QuestionCode, 0, len(spec.Sources))
		for _, s := range spec.Sources {
			sc, err := core.ParseQuestionCode(s)
			if err != nil {
				return nil, errors.ConfigInvalid(err.Error())
			}
			sources = append(sources, sc)
		}
		label := spec.Label
		if label == "" {
			label = spec.Code
		}
		defs = append(defs, composite.Definition{
			Code:    code,
			Label:   label,
			Calc:    calc,
			Sources: sources,
			Weights: spec.Weights,
		})
	}
	return defs, nil
}
