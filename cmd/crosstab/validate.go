package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the study file against the dataset without running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateStudy()
	},
}

// validateStudy checks every column reference in the study against the
// actual dataset headers and reports all problems at once.
func validateStudy() error {
	study, err := config.LoadStudy(studyFile)
	if err != nil {
		return err
	}
	structure, err := study.Structure()
	if err != nil {
		return err
	}
	questions, err := study.BuildQuestions()
	if err != nil {
		return err
	}
	composites, err := study.BuildComposites()
	if err != nil {
		return err
	}

	table, err := openTableSource(study).ReadTable()
	if err != nil {
		return err
	}

	var problems []string
	missing := func(context, column string) {
		problems = append(problems, fmt.Sprintf("%s: column %q not found in data", context, column))
	}

	if study.Weighting.Column != "" && !table.HasColumn(study.Weighting.Column) {
		missing("weighting", study.Weighting.Column)
	}

	for _, g := range structure.Groups() {
		for _, col := range g.Columns {
			names := col.MentionColumns
			if len(names) == 0 {
				names = []string{col.SourceColumn}
			}
			for _, name := range names {
				if !table.HasColumn(name) {
					missing(fmt.Sprintf("banner group %q", g.Name), name)
				}
			}
		}
	}

	catalog := make(map[core.QuestionCode]survey.Question, len(questions))
	for _, q := range questions {
		catalog[q.Code] = q
		if q.Type == survey.TypeRanking {
			if q.Ranking.Format == survey.RankingByPosition {
				for _, item := range q.Ranking.Items {
					name := string(q.Code) + "_" + item
					if !table.HasColumn(name) {
						missing(fmt.Sprintf("ranking question %s", q.Code), name)
					}
				}
			}
			continue
		}
		for _, name := range q.DataColumns() {
			if !table.HasColumn(name) {
				missing(fmt.Sprintf("question %s", q.Code), name)
			}
		}
	}

	for _, def := range composites {
		if err := def.Validate(catalog); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, "-", p)
		}
		return fmt.Errorf("study validation failed with %d problems", len(problems))
	}
	fmt.Printf("study OK: %d respondents, %d questions, %d composites, %d banner groups\n",
		table.RowCount(), len(questions), len(composites), len(structure.Groups()))
	return nil
}
