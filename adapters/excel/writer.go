package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/run"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// ReportWriter renders a finished run to an Excel workbook: one
// summary sheet plus one sheet per question table.
type ReportWriter struct {
	filePath string
}

// NewReportWriter creates a writer targeting an .xlsx path.
func NewReportWriter(filePath string) *ReportWriter {
	return &ReportWriter{filePath: filePath}
}

// WriteReport renders the run and saves the workbook.
func (w *ReportWriter) WriteReport(result *run.Result, structure *banner.Structure) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummary(f, result); err != nil {
		return err
	}
	used := map[string]bool{"Summary": true}
	for _, table := range result.Tables {
		if err := w.writeTable(f, table, structure, used); err != nil {
			return err
		}
	}
	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(w.filePath); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to save report to %s", w.filePath))
	}
	return nil
}

// writeSummary renders run metadata, the skip list and diagnostics.
func (w *ReportWriter) writeSummary(f *excelize.File, result *run.Result) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "failed to create summary sheet")
	}

	row := 1
	put := func(values ...interface{}) {
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	put("Run", result.RunID.String())
	put("Status", string(result.Status))
	put("Started", result.StartedAt.Time().Format("2006-01-02 15:04:05"))
	put("Finished", result.FinishedAt.Time().Format("2006-01-02 15:04:05"))
	put("Tables", len(result.Tables))
	if result.Resumed > 0 {
		put("Resumed from checkpoint", result.Resumed)
	}
	if result.Weights.Enabled {
		put("Weighting", "on")
		put("Respondents with positive weight", result.Weights.NonZero)
		put("Effective sample size", result.Weights.EffectiveN)
		put("Design effect", result.Weights.DesignEffect)
		put("Weight CV", result.Weights.CV)
	} else {
		put("Weighting", "off")
	}

	if len(result.Skipped) > 0 {
		put()
		put("Skipped questions")
		put("Code", "Error", "Reason")
		for _, s := range result.Skipped {
			put(s.Code.String(), s.ErrorCode, s.Reason)
		}
	}
	if len(result.Diagnostics) > 0 {
		put()
		put("Diagnostics")
		put("Code", "Question", "Message")
		for _, d := range result.Diagnostics {
			put(d.Code, d.Question.String(), d.Message)
		}
	}
	return nil
}

// writeTable renders one question table. Cells carrying significance
// letters render as "value LETTERS" strings; undefined cells stay
// blank.
func (w *ReportWriter) writeTable(f *excelize.File, table survey.QuestionTable, structure *banner.Structure, used map[string]bool) error {
	sheet := sheetName(table.Code.String(), used)
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to create sheet for %s", table.Code))
	}

	f.SetCellValue(sheet, "A1", table.Title)

	// Header row: one column per banner key.
	for c, key := range table.BannerKeys {
		cell, _ := excelize.CoordinatesToCellName(c+2, 2)
		f.SetCellValue(sheet, cell, structure.Label(key))
	}

	for r, qrow := range table.Rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, r+3)
		f.SetCellValue(sheet, labelCell, qrow.Label)
		for c, key := range table.BannerKeys {
			cell, _ := excelize.CoordinatesToCellName(c+2, r+3)
			w.setCell(f, sheet, cell, qrow, key)
		}
	}
	return nil
}

func (w *ReportWriter) setCell(f *excelize.File, sheet, cell string, qrow survey.QuestionRow, key core.SegmentKey) {
	c, ok := qrow.Cells[key]
	text := qrow.Text[key]

	if !ok || !c.Defined {
		if text != "" {
			f.SetCellValue(sheet, cell, text)
		}
		return
	}
	rendered := formatValue(qrow.Kind, c.Value)
	if c.Letters != "" {
		f.SetCellValue(sheet, cell, rendered+" "+c.Letters)
		return
	}
	if n, err := strconv.ParseFloat(rendered, 64); err == nil {
		f.SetCellValue(sheet, cell, n)
	} else {
		f.SetCellValue(sheet, cell, rendered)
	}
}

// formatValue applies the row kind's display precision.
func formatValue(kind survey.RowKind, v float64) string {
	switch kind {
	case survey.RowColumnPercent, survey.RowRowPercent:
		return strconv.FormatFloat(v, 'f', 1, 64)
	case survey.RowChiSquare:
		return strconv.FormatFloat(v, 'f', 4, 64)
	case survey.RowBase:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// sheetName sanitizes a question code into a unique worksheet name.
// Excel limits names to 31 characters.
func sheetName(code string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, code)
	if name == "" {
		name = "Table"
	}
	if len(name) > 28 {
		name = name[:28]
	}
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	used[candidate] = true
	return candidate
}
