package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/run"
	"crosstab/domain/survey"
)

func summaryResult() *run.Result {
	return &run.Result{
		RunID:      core.RunID("run-42"),
		Status:     run.StatusComplete,
		StartedAt:  core.Now(),
		FinishedAt: core.Now(),
		Tables: []survey.QuestionTable{
			{Code: "Q1", Title: "Overall satisfaction"},
		},
		Weights: run.WeightDiagnostics{
			Enabled: true, NonZero: 97, EffectiveN: 88.4, DesignEffect: 1.1, CV: 0.33,
		},
	}
}

func summaryStructure(t *testing.T) *banner.Structure {
	t.Helper()
	s, err := banner.StructureFromSpec([]banner.GroupSpec{{
		Name: "Gender", Question: "gender", SourceColumn: "gender",
		Columns: []banner.ColumnSpec{
			{Label: "Male", Value: "Male"},
			{Label: "Female", Value: "Female"},
		},
	}})
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	return s
}

func TestMarkdownCompleteRun(t *testing.T) {
	md := Markdown(summaryResult(), summaryStructure(t))
	for _, want := range []string{
		"# Crosstab run run-42",
		"Status: complete.",
		"Effective sample size: 88.4",
		"Male (A)",
		"Female (B)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "PARTIAL") {
		t.Error("a complete run must not be flagged partial")
	}
}

func TestMarkdownPartialRunLeadsWithWarning(t *testing.T) {
	result := summaryResult()
	result.Status = run.StatusPartial
	result.Skipped = []run.SkippedQuestion{
		{Code: "Q9", ErrorCode: "BANNER_COLUMN_NOT_FOUND", Reason: "column q9 | missing"},
	}
	result.Diagnostics = []survey.Diagnostic{
		{Code: survey.DiagSigTestSkipped, Question: "Q1", Message: "base below minimum"},
	}

	md := Markdown(result, nil)
	if !strings.Contains(md, "**PARTIAL RESULTS.**") {
		t.Fatal("partial runs must lead with the warning")
	}
	if !strings.Contains(md, "BANNER_COLUMN_NOT_FOUND") {
		t.Error("skipped questions table missing")
	}
	if !strings.Contains(md, `q9 \| missing`) {
		t.Error("pipes in reasons must be escaped for the markdown table")
	}
	if !strings.Contains(md, survey.DiagSigTestSkipped) {
		t.Error("diagnostics table missing")
	}
}

func TestHTMLRendersTables(t *testing.T) {
	result := summaryResult()
	result.Status = run.StatusPartial
	result.Skipped = []run.SkippedQuestion{{Code: "Q9", ErrorCode: "X", Reason: "broken"}}

	out := string(HTML(Markdown(result, nil)))
	if !strings.Contains(out, "<table>") {
		t.Error("skip list should render as an HTML table")
	}
	if !strings.Contains(out, "<strong>PARTIAL RESULTS.</strong>") {
		t.Error("warning should render bold")
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "summary.md")
	htmlPath := filepath.Join(dir, "summary.html")

	w := NewSummaryWriter(mdPath, htmlPath)
	if err := w.WriteReport(summaryResult(), summaryStructure(t)); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	md, err := os.ReadFile(mdPath)
	if err != nil || len(md) == 0 {
		t.Fatalf("markdown summary missing: %v", err)
	}
	html, err := os.ReadFile(htmlPath)
	if err != nil || len(html) == 0 {
		t.Fatalf("html summary missing: %v", err)
	}
}
