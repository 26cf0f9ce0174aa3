package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crosstab/adapters/excel"
	"crosstab/adapters/postgres"
	"crosstab/app"
	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/run"
	"crosstab/domain/survey"
	"crosstab/internal"
	"crosstab/internal/checkpoint"
	"crosstab/internal/composite"
	"crosstab/internal/config"
	"crosstab/internal/errors"
	"crosstab/internal/report"
	"crosstab/internal/weighting"
	"crosstab/ports"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the study and write the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "report path (overrides the study file)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "resume an interrupted run by ID")
}

func runStudy(parent context.Context) error {
	logger := internal.DefaultLogger
	rt := config.LoadRuntime()

	study, err := config.LoadStudy(studyFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Data loading and study compilation are independent; overlap them.
	var (
		table      *survey.RespondentTable
		structure  *banner.Structure
		questions  []survey.Question
		composites []composite.Definition
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := openTableSource(study).ReadTable()
		if err != nil {
			return err
		}
		table = t
		logger.Info("loaded %d respondents, %d columns from %s", t.RowCount(), len(t.Columns()), study.DataFile)
		return nil
	})
	g.Go(func() error {
		s, err := study.Structure()
		if err != nil {
			return err
		}
		q, err := study.BuildQuestions()
		if err != nil {
			return err
		}
		c, err := study.BuildComposites()
		if err != nil {
			return err
		}
		structure, questions, composites = s, q, c
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	store, cleanup, err := buildCheckpointStore(ctx, study, rt)
	if err != nil {
		return err
	}
	defer cleanup()

	policy, _ := weighting.ParsePolicy(study.Weighting.Policy)
	cfg := app.Config{
		RunID:              core.RunID(runID),
		WeightColumn:       study.Weighting.Column,
		WeightPolicy:       policy,
		Alpha:              study.Significance.Alpha,
		MinBase:            study.Significance.MinBase,
		ZeroRowTotalAsZero: study.Rendering.ZeroRowTotalAsZero,
		CheckpointEvery:    study.Checkpoint.Interval,
		RankingThresholds:  study.Ranking,
	}

	runner := app.NewRunner(table, structure, questions, composites, cfg, store, logger)
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	output := study.OutputFile
	if outputFile != "" {
		output = outputFile
	}
	if output == "" {
		output = "crosstab.xlsx"
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))
	sinks := []ports.ReportSink{
		excel.NewReportWriter(output),
		report.NewSummaryWriter(base+"_summary.md", base+"_summary.html"),
	}
	for _, sink := range sinks {
		if err := sink.WriteReport(result, structure); err != nil {
			return err
		}
	}

	fmt.Printf("report written to %s (%d tables)\n", output, len(result.Tables))
	if result.Status == run.StatusPartial {
		fmt.Fprintf(os.Stderr, "PARTIAL RESULTS: %d questions skipped, %d diagnostics; see %s_summary.md\n",
			len(result.Skipped), len(result.Diagnostics), base)
	}
	return nil
}

// openTableSource builds the reader for the study's data file.
func openTableSource(study *config.Study) ports.TableSource {
	reader := excel.NewDataReader(study.DataFile)
	if study.Sheet != "" {
		reader.WithSheet(study.Sheet)
	}
	return reader
}

// buildCheckpointStore resolves the configured checkpoint backend.
func buildCheckpointStore(ctx context.Context, study *config.Study, rt config.Runtime) (ports.CheckpointStore, func(), error) {
	noop := func() {}
	switch study.Checkpoint.Backend {
	case "":
		return nil, noop, nil
	case "file":
		dir := study.Checkpoint.Dir
		if dir == "" {
			dir = rt.CheckpointDir
		}
		store, err := checkpoint.NewFileStore(dir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case "postgres":
		if rt.DatabaseURL == "" {
			return nil, noop, errors.ConfigInvalid("postgres checkpoint backend needs DATABASE_URL")
		}
		db, err := postgres.Connect(rt.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, noop, err
		}
		return postgres.NewCheckpointRepository(db), func() { db.Close() }, nil
	}
	return nil, noop, errors.ConfigInvalid(fmt.Sprintf("unknown checkpoint backend %q", study.Checkpoint.Backend))
}
