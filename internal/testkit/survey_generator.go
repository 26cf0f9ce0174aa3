// Package testkit generates deterministic synthetic survey datasets
// for tests. The same seed always yields the same respondent table,
// so assertions can rely on exact counts.
package testkit

import (
	"fmt"
	"math/rand"

	"crosstab/domain/core"
	"crosstab/domain/survey"
)

// SurveyConfig configures the synthetic survey generator.
type SurveyConfig struct {
	Respondents int     `json:"respondents"`
	MaleShare   float64 `json:"male_share"`
	Seed        int64   `json:"seed"`
	// WeightSpread > 0 draws design weights uniformly from
	// [1-spread, 1+spread]; zero emits no weight column.
	WeightSpread float64 `json:"weight_spread"`
}

// DefaultSurveyConfig is the standard fixture: 100 respondents split
// 60/40 on gender with unit weights.
func DefaultSurveyConfig() SurveyConfig {
	return SurveyConfig{
		Respondents: 100,
		MaleShare:   0.6,
		Seed:        42,
	}
}

// SurveyGenerator builds synthetic respondent tables.
type SurveyGenerator struct {
	config SurveyConfig
	rng    *rand.Rand
}

// NewSurveyGenerator creates a generator with a seeded source.
func NewSurveyGenerator(config SurveyConfig) *SurveyGenerator {
	return &SurveyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate produces the fixture table. Columns:
//
//	gender   "Male" for the first MaleShare of rows, then "Female"
//	region   cycling North/South/East/West
//	Q1       rating 1..5, males skew high
//	Q2       NPS 0..10
//	Q3       likert Agree/Neutral/Disagree
//	Q4_1..3  multi-mention brand picks, sometimes repeated
//	Q5_<it>  ranking by position over three items
//	weight   optional design weight
func (g *SurveyGenerator) Generate() (*survey.RespondentTable, error) {
	n := g.config.Respondents
	males := int(float64(n) * g.config.MaleShare)
	regions := []string{"North", "South", "East", "West"}
	brands := []string{"Alpha", "Beta", "Gamma"}
	likert := []string{"Agree", "Neutral", "Disagree"}
	items := []string{"Price", "Quality", "Service"}

	columns := []string{"gender", "region", "Q1", "Q2", "Q3", "Q4_1", "Q4_2", "Q4_3"}
	for _, item := range items {
		columns = append(columns, "Q5_"+item)
	}
	hasWeight := g.config.WeightSpread > 0
	if hasWeight {
		columns = append(columns, "weight")
	}

	data := make([][]core.Value, len(columns))
	for c := range data {
		data[c] = make([]core.Value, n)
	}
	col := func(name string) []core.Value {
		for i, cn := range columns {
			if cn == name {
				return data[i]
			}
		}
		panic(fmt.Sprintf("testkit: unknown column %s", name))
	}

	for i := 0; i < n; i++ {
		male := i < males
		if male {
			col("gender")[i] = core.NewText("Male")
		} else {
			col("gender")[i] = core.NewText("Female")
		}
		col("region")[i] = core.NewText(regions[i%len(regions)])

		rating := 1 + g.rng.Intn(5)
		if male && rating < 5 && g.rng.Float64() < 0.3 {
			rating++
		}
		col("Q1")[i] = core.NewNumber(float64(rating))
		col("Q2")[i] = core.NewNumber(float64(g.rng.Intn(11)))
		col("Q3")[i] = core.NewText(likert[g.rng.Intn(len(likert))])

		// First mention always present; later slots may repeat a brand
		// or stay empty.
		col("Q4_1")[i] = core.NewText(brands[g.rng.Intn(len(brands))])
		for slot, name := range []string{"Q4_2", "Q4_3"} {
			if g.rng.Float64() < 0.4+0.2*float64(slot) {
				col(name)[i] = core.Missing()
			} else {
				col(name)[i] = core.NewText(brands[g.rng.Intn(len(brands))])
			}
		}

		// A shuffled complete ranking of the three items.
		perm := g.rng.Perm(len(items))
		for j, item := range items {
			col("Q5_"+item)[i] = core.NewNumber(float64(perm[j] + 1))
		}

		if hasWeight {
			spread := g.config.WeightSpread
			col("weight")[i] = core.NewNumber(1 - spread + 2*spread*g.rng.Float64())
		}
	}
	return survey.NewRespondentTable(columns, data)
}

// MustGenerate panics on error; fixtures are deterministic so an error
// means the generator itself is broken.
func MustGenerate(config SurveyConfig) *survey.RespondentTable {
	table, err := NewSurveyGenerator(config).Generate()
	if err != nil {
		panic(err)
	}
	return table
}
