package significance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"crosstab/domain/core"
	"crosstab/domain/survey"
)

// ChiSquareResult is the outcome of the box-category independence
// test. Skipped tests report why without failing the question.
type ChiSquareResult struct {
	Statistic      float64
	DF             int
	PValue         float64
	Performed      bool
	DroppedRows    int
	DroppedColumns int
	SkippedReason  string
}

// minExpectedFloor skips the test when any expected cell falls below
// this count.
const minExpectedFloor = 0.5

// lowExpectedShare skips the test when more than this share of cells
// has an expected count under 5.
const lowExpectedShare = 0.4

// ChiSquare tests independence over a box-category frequency table of
// weighted counts (rows = categories, columns = segments). Rows and
// columns whose weighted n falls below max(5, 1% of the grand total)
// are dropped before testing; the drop threshold is computed from the
// original grand total.
func ChiSquare(table [][]float64, question core.QuestionCode, diags *survey.Diagnostics) ChiSquareResult {
	if len(table) == 0 || len(table[0]) == 0 {
		return ChiSquareResult{SkippedReason: "empty table"}
	}

	var grand float64
	for _, row := range table {
		for _, v := range row {
			grand += v
		}
	}
	threshold := math.Max(5, 0.01*grand)

	kept, droppedRows, droppedCols := dropSparse(table, threshold)
	if droppedRows > 0 || droppedCols > 0 {
		diags.Add(survey.DiagCategoryDropped, question,
			fmt.Sprintf("%d categories and %d segments below weighted n %.1f dropped before chi-square", droppedRows, droppedCols, threshold))
	}
	result := ChiSquareResult{DroppedRows: droppedRows, DroppedColumns: droppedCols}
	if len(kept) < 2 || len(kept[0]) < 2 {
		result.SkippedReason = "fewer than two categories or segments after dropping"
		diags.Add(survey.DiagChiSquareSkipped, question, result.SkippedReason)
		return result
	}

	rows, cols := len(kept), len(kept[0])
	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	var total float64
	for i := range kept {
		for j, v := range kept[i] {
			rowTotals[i] += v
			colTotals[j] += v
			total += v
		}
	}
	if total == 0 {
		result.SkippedReason = "zero total after dropping"
		diags.Add(survey.DiagChiSquareSkipped, question, result.SkippedReason)
		return result
	}

	// Expected-count assumptions gate the test, they never fail it.
	var lowExpected int
	minExpected := math.Inf(1)
	var stat float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			expected := rowTotals[i] * colTotals[j] / total
			if expected < minExpected {
				minExpected = expected
			}
			if expected < 5 {
				lowExpected++
			}
			if expected > 0 {
				diff := kept[i][j] - expected
				stat += diff * diff / expected
			}
		}
	}
	if minExpected < minExpectedFloor {
		result.SkippedReason = fmt.Sprintf("minimum expected cell count %.2f below %.1f", minExpected, minExpectedFloor)
		diags.Add(survey.DiagChiSquareSkipped, question, result.SkippedReason)
		return result
	}
	if float64(lowExpected) > lowExpectedShare*float64(rows*cols) {
		result.SkippedReason = fmt.Sprintf("%d of %d cells have expected count below 5", lowExpected, rows*cols)
		diags.Add(survey.DiagChiSquareSkipped, question, result.SkippedReason)
		return result
	}

	df := (rows - 1) * (cols - 1)
	dist := distuv.ChiSquared{K: float64(df)}
	result.Statistic = stat
	result.DF = df
	result.PValue = 1 - dist.CDF(stat)
	result.Performed = true
	return result
}

// dropSparse removes rows and columns whose weighted total falls
// below the threshold.
func dropSparse(table [][]float64, threshold float64) ([][]float64, int, int) {
	rows, cols := len(table), len(table[0])

	keepRow := make([]bool, rows)
	droppedRows := 0
	for i, row := range table {
		var sum float64
		for _, v := range row {
			sum += v
		}
		keepRow[i] = sum >= threshold
		if !keepRow[i] {
			droppedRows++
		}
	}

	keepCol := make([]bool, cols)
	droppedCols := 0
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += table[i][j]
		}
		keepCol[j] = sum >= threshold
		if !keepCol[j] {
			droppedCols++
		}
	}

	kept := make([][]float64, 0, rows-droppedRows)
	for i := range table {
		if !keepRow[i] {
			continue
		}
		row := make([]float64, 0, cols-droppedCols)
		for j, v := range table[i] {
			if keepCol[j] {
				row = append(row, v)
			}
		}
		kept = append(kept, row)
	}
	return kept, droppedRows, droppedCols
}
