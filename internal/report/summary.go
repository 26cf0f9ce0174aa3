// Package report renders the run summary: a markdown digest of what
// was produced, what was skipped and every diagnostic, plus an HTML
// rendering for sharing.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"crosstab/domain/banner"
	"crosstab/domain/run"
	"crosstab/internal/errors"
)

// SummaryWriter writes summary.md and summary.html beside the report.
type SummaryWriter struct {
	mdPath   string
	htmlPath string
}

// NewSummaryWriter targets the two summary files.
func NewSummaryWriter(mdPath, htmlPath string) *SummaryWriter {
	return &SummaryWriter{mdPath: mdPath, htmlPath: htmlPath}
}

// WriteReport renders and saves both summary files.
func (w *SummaryWriter) WriteReport(result *run.Result, structure *banner.Structure) error {
	md := Markdown(result, structure)
	if err := os.WriteFile(w.mdPath, []byte(md), 0o644); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to write %s", w.mdPath))
	}
	if w.htmlPath != "" {
		if err := os.WriteFile(w.htmlPath, HTML(md), 0o644); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to write %s", w.htmlPath))
		}
	}
	return nil
}

// Markdown builds the digest. A partial run leads with its status so
// the omission cannot be overlooked.
func Markdown(result *run.Result, structure *banner.Structure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Crosstab run %s\n\n", result.RunID)
	if result.Status == run.StatusPartial {
		b.WriteString("**PARTIAL RESULTS.** Some questions or statistical tests were skipped; see below.\n\n")
	} else {
		b.WriteString("Status: complete.\n\n")
	}

	fmt.Fprintf(&b, "- Started: %s\n", result.StartedAt.Time().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Finished: %s\n", result.FinishedAt.Time().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Tables produced: %d\n", len(result.Tables))
	if result.Resumed > 0 {
		fmt.Fprintf(&b, "- Restored from checkpoint: %d\n", result.Resumed)
	}

	b.WriteString("\n## Weighting\n\n")
	if result.Weights.Enabled {
		fmt.Fprintf(&b, "- Respondents with positive weight: %d\n", result.Weights.NonZero)
		fmt.Fprintf(&b, "- Effective sample size: %.1f\n", result.Weights.EffectiveN)
		fmt.Fprintf(&b, "- Design effect: %.2f\n", result.Weights.DesignEffect)
		fmt.Fprintf(&b, "- Weight CV: %.2f\n", result.Weights.CV)
	} else {
		b.WriteString("Weighting off; all respondents count equally.\n")
	}

	if structure != nil {
		b.WriteString("\n## Banner\n\n")
		for _, g := range structure.Groups() {
			labels := make([]string, len(g.Columns))
			for i, c := range g.Columns {
				labels[i] = fmt.Sprintf("%s (%s)", c.Label, c.Letter)
			}
			fmt.Fprintf(&b, "- %s: %s\n", g.Name, strings.Join(labels, ", "))
		}
	}

	if len(result.Skipped) > 0 {
		b.WriteString("\n## Skipped questions\n\n")
		b.WriteString("| Question | Error | Reason |\n|---|---|---|\n")
		for _, s := range result.Skipped {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Code, s.ErrorCode, escapePipes(s.Reason))
		}
	}

	if len(result.Diagnostics) > 0 {
		b.WriteString("\n## Diagnostics\n\n")
		b.WriteString("| Code | Question | Message |\n|---|---|---|\n")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", d.Code, d.Question, escapePipes(d.Message))
		}
	}
	return b.String()
}

// HTML renders the markdown digest.
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	return markdown.Render(doc, renderer)
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
