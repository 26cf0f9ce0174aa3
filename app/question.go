package app

import (
	"fmt"

	"crosstab/domain/banner"
	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
	"crosstab/internal/filter"
	"crosstab/internal/ranking"
	"crosstab/internal/significance"
	"crosstab/internal/tabulate"
	"crosstab/internal/weighting"
)

// processor assembles one question table at a time. It owns nothing
// mutable beyond the shared diagnostics collector.
type processor struct {
	table     *survey.RespondentTable
	structure *banner.Structure
	weights   *weighting.Sequence
	calc      *tabulate.Calculator
	cfg       Config
	sig       significance.Config
	diags     *survey.Diagnostics
}

func newProcessor(table *survey.RespondentTable, structure *banner.Structure, weights *weighting.Sequence, cfg Config, diags *survey.Diagnostics) *processor {
	return &processor{
		table:     table,
		structure: structure,
		weights:   weights,
		calc:      tabulate.NewCalculator(weights, cfg.ZeroRowTotalAsZero),
		cfg:       cfg,
		sig:       significance.Config{Alpha: cfg.Alpha, MinBase: cfg.MinBase},
		diags:     diags,
	}
}

// process builds the full output table for one question: data rows,
// significance letters, chi-square, summary and base rows. The
// override column carries composite scores, which have no physical
// column in the table.
func (p *processor) process(q survey.Question, override []core.Value) (survey.QuestionTable, error) {
	subset, err := filter.Apply(q.BaseFilter, p.table)
	if err != nil {
		return survey.QuestionTable{}, err
	}
	rim, err := banner.BuildRowIndexMap(p.table, subset, p.structure)
	if err != nil {
		return survey.QuestionTable{}, err
	}
	bases := p.baseSizes(rim)

	out := survey.QuestionTable{
		Code:       q.Code,
		Title:      q.Label,
		Type:       q.Type,
		BannerKeys: p.structure.Keys(),
	}

	if q.Type == survey.TypeRanking {
		rows, err := p.rankingRows(q, subset, rim)
		if err != nil {
			return survey.QuestionTable{}, err
		}
		out.Rows = rows
	} else {
		rows, err := p.standardRows(q, rim, bases, override)
		if err != nil {
			return survey.QuestionTable{}, err
		}
		out.Rows = rows
	}

	out.Rows = append(out.Rows, p.letterLegendRow())
	out.Rows = append(out.Rows, p.baseRows(bases)...)
	return out, nil
}

// baseSizes computes the per-segment sample size triple.
func (p *processor) baseSizes(rim banner.RowIndexMap) map[core.SegmentKey]survey.BaseSize {
	bases := make(map[core.SegmentKey]survey.BaseSize, len(rim))
	for key, indices := range rim {
		bases[key] = p.weights.BaseSize(indices)
	}
	return bases
}

// standardRows builds frequency, column-% and row-% rows per option,
// followed by the type's summary row and the chi-square row.
func (p *processor) standardRows(q survey.Question, rim banner.RowIndexMap, bases map[core.SegmentKey]survey.BaseSize, override []core.Value) ([]survey.QuestionRow, error) {
	columns, primary, err := p.dataColumns(q, override)
	if err != nil {
		return nil, err
	}
	options := p.optionTexts(q, columns, rim[core.TotalSegmentKey])

	var rows []survey.QuestionRow
	countsByOption := make([]map[core.SegmentKey]float64, len(options))
	for oi, option := range options {
		counts := make(map[core.SegmentKey]float64, len(rim))
		for key, indices := range rim {
			if len(columns) > 1 {
				counts[key] = p.calc.MentionWeight(columns, indices, option)
			} else {
				counts[key] = p.calc.CountSingle(columns[0], indices, option)
			}
		}
		countsByOption[oi] = counts
		rows = append(rows, p.optionRows(q.Code, option, counts, bases)...)
	}

	if stat, kind, ok := p.summaryRow(q, primary, rim, bases); ok {
		rows = append(rows, survey.QuestionRow{Label: summaryLabel(kind), Kind: kind, Cells: stat})
	}

	if chi, ok := p.chiSquareRow(q, options, countsByOption); ok {
		rows = append(rows, chi)
	}
	return rows, nil
}

// optionRows is the three-row block for one option.
func (p *processor) optionRows(code core.QuestionCode, option string, counts map[core.SegmentKey]float64, bases map[core.SegmentKey]survey.BaseSize) []survey.QuestionRow {
	freq := survey.QuestionRow{Label: option, Kind: survey.RowFrequency, Cells: make(map[core.SegmentKey]survey.Cell, len(counts))}
	colPct := survey.QuestionRow{Label: option + " %", Kind: survey.RowColumnPercent, Cells: make(map[core.SegmentKey]survey.Cell, len(counts))}

	inputs := make(map[core.SegmentKey]significance.ProportionInput, len(counts))
	for key, count := range counts {
		base := bases[key]
		freq.Cells[key] = survey.NewCell(count)
		colPct.Cells[key] = p.calc.ColumnPercent(count, base)

		basis := base.Weighted
		if !p.weights.Enabled() {
			basis = float64(base.Unweighted)
		}
		if basis > 0 {
			inputs[key] = significance.ProportionInput{
				Proportion: count / basis,
				EffectiveN: base.Effective,
				Base:       base.Unweighted,
				Defined:    true,
			}
		}
	}
	p.attachProportionLetters(code, &colPct, inputs)

	rowPct := survey.QuestionRow{Label: option + " row %", Kind: survey.RowRowPercent,
		Cells: p.calc.RowPercents(p.structure, counts)}
	return []survey.QuestionRow{freq, colPct, rowPct}
}

// summaryRow computes the type's scalar summary per segment and runs
// the mean-path pairwise tests.
func (p *processor) summaryRow(q survey.Question, primary []core.Value, rim banner.RowIndexMap, bases map[core.SegmentKey]survey.BaseSize) (map[core.SegmentKey]survey.Cell, survey.RowKind, bool) {
	if _, _, ok := tabulate.ScorerFor(q); !ok || primary == nil {
		return nil, "", false
	}

	cells := make(map[core.SegmentKey]survey.Cell, len(rim))
	inputs := make(map[core.SegmentKey]significance.MeanInput, len(rim))
	var kind survey.RowKind
	for key, indices := range rim {
		stat, k, _ := p.calc.Summary(q, primary, indices)
		kind = k
		cells[key] = stat.Cell()
		if stat.Defined {
			inputs[key] = significance.MeanInput{
				Mean:       stat.Mean,
				Variance:   stat.Variance,
				EffectiveN: stat.EffectiveN,
				Base:       bases[key].Unweighted,
				Defined:    true,
			}
		}
	}

	for _, g := range p.structure.Groups() {
		letters := significance.MeanLetters(g, inputs, p.sig, q.Code, p.diags)
		for key, l := range letters {
			cell := cells[key]
			cell.Letters = l
			cells[key] = cell
		}
	}
	return cells, kind, true
}

// chiSquareRow runs the independence test per banner group over the
// option frequency table and reports the p-value under every tested
// column of the group. Only closed-choice questions are tested.
func (p *processor) chiSquareRow(q survey.Question, options []string, countsByOption []map[core.SegmentKey]float64) (survey.QuestionRow, bool) {
	switch q.Type {
	case survey.TypeCategorical, survey.TypeMultiMention:
	default:
		return survey.QuestionRow{}, false
	}
	if len(options) < 2 {
		return survey.QuestionRow{}, false
	}

	row := survey.QuestionRow{
		Label: "Chi-square p-value",
		Kind:  survey.RowChiSquare,
		Cells: make(map[core.SegmentKey]survey.Cell),
		Text:  make(map[core.SegmentKey]string),
	}
	performed := false
	for _, g := range p.structure.Groups() {
		if len(g.Columns) < 2 {
			continue
		}
		matrix := make([][]float64, len(options))
		for oi := range options {
			cells := make([]float64, len(g.Columns))
			for ci, col := range g.Columns {
				cells[ci] = countsByOption[oi][col.Key]
			}
			matrix[oi] = cells
		}
		res := significance.ChiSquare(matrix, q.Code, p.diags)
		if !res.Performed {
			continue
		}
		performed = true
		for _, col := range g.Columns {
			row.Cells[col.Key] = survey.NewCell(res.PValue)
			row.Text[col.Key] = fmt.Sprintf("chi2(%d)=%.2f", res.DF, res.Statistic)
		}
	}
	return row, performed
}

// rankingRows builds the per-item metric rows for a rank-order
// question: % ranked first, % in top-N and mean rank.
func (p *processor) rankingRows(q survey.Question, subset []int, rim banner.RowIndexMap) ([]survey.QuestionRow, error) {
	ctx := ranking.NewContext(q.Code, p.diags)
	m, err := ranking.Extract(p.table, subset, q, ctx)
	if err != nil {
		return nil, err
	}
	if err := ranking.Validate(m, p.cfg.RankingThresholds, ctx); err != nil {
		return nil, err
	}
	topN := ranking.ResolveTopN(q.Ranking, ctx)

	var rows []survey.QuestionRow
	for j, item := range m.Items {
		stats := make(map[core.SegmentKey]ranking.ItemStats, len(rim))
		for key, indices := range rim {
			stats[key] = ranking.ItemMetrics(m, j, indices, p.weights, topN)
		}

		first := survey.QuestionRow{Label: fmt.Sprintf("%s: %% ranked first", item),
			Kind: survey.RowColumnPercent, Cells: make(map[core.SegmentKey]survey.Cell, len(stats))}
		top := survey.QuestionRow{Label: fmt.Sprintf("%s: %% in top %d", item, topN),
			Kind: survey.RowColumnPercent, Cells: make(map[core.SegmentKey]survey.Cell, len(stats))}
		mean := survey.QuestionRow{Label: fmt.Sprintf("%s: mean rank (1 = best)", item),
			Kind: survey.RowMean, Cells: make(map[core.SegmentKey]survey.Cell, len(stats))}

		firstIn := make(map[core.SegmentKey]significance.ProportionInput, len(stats))
		topIn := make(map[core.SegmentKey]significance.ProportionInput, len(stats))
		meanIn := make(map[core.SegmentKey]significance.MeanInput, len(stats))
		for key, s := range stats {
			first.Cells[key] = proportionCell(s.First)
			top.Cells[key] = proportionCell(s.TopN)
			if s.MeanRank.Defined {
				mean.Cells[key] = survey.NewCell(s.MeanRank.Mean)
			} else {
				mean.Cells[key] = survey.UndefinedCell()
			}
			firstIn[key] = s.First
			topIn[key] = s.TopN
			meanIn[key] = s.MeanRank
		}

		p.attachProportionLetters(q.Code, &first, firstIn)
		p.attachProportionLetters(q.Code, &top, topIn)
		for _, g := range p.structure.Groups() {
			letters := significance.MeanLetters(g, meanIn, p.sig, q.Code, p.diags)
			for key, l := range letters {
				cell := mean.Cells[key]
				cell.Letters = l
				mean.Cells[key] = cell
			}
		}
		rows = append(rows, first, top, mean)
	}
	return rows, nil
}

// proportionCell renders a share as a percent cell, undefined when the
// segment had no base.
func proportionCell(in significance.ProportionInput) survey.Cell {
	if !in.Defined {
		return survey.UndefinedCell()
	}
	return survey.NewCell(in.Proportion * 100)
}

// attachProportionLetters runs the pairwise z-tests per group and
// merges the letters into the row's cells.
func (p *processor) attachProportionLetters(code core.QuestionCode, row *survey.QuestionRow, inputs map[core.SegmentKey]significance.ProportionInput) {
	for _, g := range p.structure.Groups() {
		letters := significance.ProportionLetters(g, inputs, p.sig, code, p.diags)
		for key, l := range letters {
			cell := row.Cells[key]
			cell.Letters = l
			row.Cells[key] = cell
		}
	}
}

// letterLegendRow renders each tested column's significance letter.
func (p *processor) letterLegendRow() survey.QuestionRow {
	row := survey.QuestionRow{
		Label: "Column letter",
		Kind:  survey.RowSigLetters,
		Cells: make(map[core.SegmentKey]survey.Cell),
		Text:  make(map[core.SegmentKey]string),
	}
	for _, g := range p.structure.Groups() {
		for _, col := range g.Columns {
			row.Text[col.Key] = col.Letter
		}
	}
	return row
}

// baseRows renders the sample-size block: unweighted n always, the
// weighted and effective n only when weighting is on.
func (p *processor) baseRows(bases map[core.SegmentKey]survey.BaseSize) []survey.QuestionRow {
	unweighted := survey.QuestionRow{Label: "Base (unweighted)", Kind: survey.RowBase,
		Cells: make(map[core.SegmentKey]survey.Cell, len(bases))}
	for key, b := range bases {
		unweighted.Cells[key] = survey.NewCell(float64(b.Unweighted))
	}
	rows := []survey.QuestionRow{unweighted}

	if p.weights.Enabled() {
		weighted := survey.QuestionRow{Label: "Base (weighted)", Kind: survey.RowBaseWeighted,
			Cells: make(map[core.SegmentKey]survey.Cell, len(bases))}
		effective := survey.QuestionRow{Label: "Base (effective)", Kind: survey.RowBaseEffective,
			Cells: make(map[core.SegmentKey]survey.Cell, len(bases))}
		for key, b := range bases {
			weighted.Cells[key] = survey.NewCell(b.Weighted)
			effective.Cells[key] = survey.NewCell(b.Effective)
		}
		rows = append(rows, weighted, effective)
	}
	return rows
}

// dataColumns resolves the question's physical response columns. The
// returned primary column feeds summary statistics; for multi-mention
// questions there is no single scalar column.
func (p *processor) dataColumns(q survey.Question, override []core.Value) ([][]core.Value, []core.Value, error) {
	if override != nil {
		return [][]core.Value{override}, override, nil
	}
	names := q.DataColumns()
	if len(names) == 0 {
		return nil, nil, errors.ConfigInvalid(
			fmt.Sprintf("question %s declares no data columns", q.Code))
	}
	columns := make([][]core.Value, 0, len(names))
	for _, name := range names {
		values, ok := p.table.Column(name)
		if !ok {
			return nil, nil, errors.BannerColumnNotFound(name)
		}
		columns = append(columns, values)
	}
	var primary []core.Value
	if len(columns) == 1 {
		primary = columns[0]
	}
	return columns, primary, nil
}

// optionTexts returns the declared options, or derives them from the
// data in first-appearance order over the question's base. Numeric
// questions are summarized, never enumerated.
func (p *processor) optionTexts(q survey.Question, columns [][]core.Value, subset []int) []string {
	if len(q.Options) > 0 {
		texts := make([]string, len(q.Options))
		for i, opt := range q.Options {
			texts[i] = opt.Text
		}
		return texts
	}
	if q.Type == survey.TypeNumeric {
		return nil
	}
	seen := make(map[string]bool)
	var texts []string
	for _, row := range subset {
		for _, column := range columns {
			v := column[row]
			if v.IsMissing() {
				continue
			}
			t := v.Text()
			if !seen[t] {
				seen[t] = true
				texts = append(texts, t)
			}
		}
	}
	return texts
}

// summaryLabel maps the summary row kind to its display label.
func summaryLabel(kind survey.RowKind) string {
	switch kind {
	case survey.RowIndex:
		return "Index"
	case survey.RowNPS:
		return "NPS"
	}
	return "Mean"
}
