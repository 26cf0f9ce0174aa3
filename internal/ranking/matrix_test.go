package ranking

import (
	"math"
	"testing"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

func rankingQuestion(format survey.RankingFormat, positions int, worstToBest bool) survey.Question {
	return survey.Question{
		Code: "Q7",
		Type: survey.TypeRanking,
		Ranking: &survey.RankingSpec{
			Format:      format,
			Items:       []string{"Price", "Quality", "Service"},
			Positions:   positions,
			WorstToBest: worstToBest,
			TopN:        2,
		},
	}
}

func positionTable(t *testing.T) *survey.RespondentTable {
	t.Helper()
	columns := []string{"Q7_Price", "Q7_Quality", "Q7_Service"}
	data := [][]core.Value{
		{core.NewNumber(1), core.NewNumber(2), core.Missing()},
		{core.NewNumber(2), core.NewNumber(1), core.Missing()},
		{core.NewNumber(3), core.NewNumber(3), core.Missing()},
	}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	return table
}

func TestExtractByPosition(t *testing.T) {
	table := positionTable(t)
	ctx := NewContext("Q7", &survey.Diagnostics{})
	m, err := Extract(table, table.AllRows(), rankingQuestion(survey.RankingByPosition, 3, false), ctx)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := m.Rank(0, 0); got != 1 {
		t.Errorf("respondent 0 ranked Price 1, got %v", got)
	}
	if got := m.Rank(1, 2); got != 3 {
		t.Errorf("respondent 1 ranked Service 3, got %v", got)
	}
	if !math.IsNaN(m.Rank(2, 0)) {
		t.Error("respondent 2 did not rank anything")
	}
	if m.HasResponse(2) {
		t.Error("all-missing respondent has no response")
	}
}

func TestFlipRoundTrip(t *testing.T) {
	q := rankingQuestion(survey.RankingByPosition, 5, false)
	columns := []string{"Q7_Price", "Q7_Quality", "Q7_Service"}
	data := [][]core.Value{
		{core.NewNumber(1), core.NewNumber(5)},
		{core.NewNumber(3), core.NewNumber(2)},
		{core.NewNumber(5), core.Missing()},
	}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	ctx := NewContext("Q7", &survey.Diagnostics{})
	m, err := Extract(table, table.AllRows(), q, ctx)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	before := make([]float64, len(m.Items))
	for j := range m.Items {
		before[j] = m.Rank(0, j)
	}
	m.Flip()
	if got := m.Rank(0, 0); got != 5 {
		t.Errorf("rank 1 of 5 positions flips to 5, got %v", got)
	}
	m.Flip()
	for j := range m.Items {
		if got := m.Rank(0, j); got != before[j] {
			t.Errorf("double flip must restore item %d: %v != %v", j, got, before[j])
		}
	}
}

func TestWorstToBestNormalizedOnExtract(t *testing.T) {
	q := rankingQuestion(survey.RankingByPosition, 3, true)
	table := positionTable(t)
	ctx := NewContext("Q7", &survey.Diagnostics{})
	m, err := Extract(table, table.AllRows(), q, ctx)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	// Raw 1 under worst-to-best means worst; canonical rank is 3.
	if got := m.Rank(0, 0); got != 3 {
		t.Errorf("expected normalized rank 3, got %v", got)
	}
}

func TestExtractByItemParsesPositionFromColumnName(t *testing.T) {
	// Sparse export: columns for ranks 1 and 3 only. Rank identity
	// comes from the name, so the gap must survive.
	columns := []string{"Q7_1", "Q7_3"}
	data := [][]core.Value{
		{core.NewText("Price"), core.NewText("Quality")},
		{core.NewText("Service"), core.NewText("Unknown item")},
	}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	ctx := NewContext("Q7", &survey.Diagnostics{})
	m, err := Extract(table, table.AllRows(), rankingQuestion(survey.RankingByItem, 3, false), ctx)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := m.Rank(0, 0); got != 1 {
		t.Errorf("Price holds rank 1 for respondent 0, got %v", got)
	}
	if got := m.Rank(0, 2); got != 3 {
		t.Errorf("Service holds rank 3 for respondent 0, not 2: got %v", got)
	}
	if got := m.Rank(1, 2); got != 1 {
		t.Errorf("Service holds rank 1 for respondent 1, got %v", got)
	}
	if !math.IsNaN(m.Rank(1, 1)) {
		t.Error("the unknown item must not land on Quality")
	}
}

func TestExtractByItemRejectsOutOfRangePositionColumn(t *testing.T) {
	columns := []string{"Q7_9"}
	data := [][]core.Value{{core.NewText("Price")}}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	ctx := NewContext("Q7", &survey.Diagnostics{})
	_, err = Extract(table, table.AllRows(), rankingQuestion(survey.RankingByItem, 3, false), ctx)
	if err == nil {
		t.Fatal("position 9 of 3 must fail")
	}
	if errors.GetCode(err) != errors.CodeInvalidRankingFormat {
		t.Errorf("expected INVALID_RANKING_FORMAT, got %s", errors.GetCode(err))
	}
}

func TestExtractMissingColumnFails(t *testing.T) {
	columns := []string{"Q7_Price"}
	data := [][]core.Value{{core.NewNumber(1)}}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	ctx := NewContext("Q7", &survey.Diagnostics{})
	_, err = Extract(table, table.AllRows(), rankingQuestion(survey.RankingByPosition, 3, false), ctx)
	if err == nil {
		t.Fatal("missing item column must fail")
	}
}

func TestExtractEmptyMatrixFails(t *testing.T) {
	columns := []string{"Q7_Price", "Q7_Quality", "Q7_Service"}
	data := [][]core.Value{
		{core.Missing()}, {core.Missing()}, {core.Missing()},
	}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	ctx := NewContext("Q7", &survey.Diagnostics{})
	_, err = Extract(table, table.AllRows(), rankingQuestion(survey.RankingByPosition, 3, false), ctx)
	if errors.GetCode(err) != errors.CodeEmptyRankingMatrix {
		t.Errorf("expected EMPTY_RANKING_MATRIX, got %v", err)
	}
}

func TestExtractRejectsDegenerateSpecs(t *testing.T) {
	table := positionTable(t)
	ctx := NewContext("Q7", &survey.Diagnostics{})

	q := rankingQuestion(survey.RankingByPosition, 0, false)
	if _, err := Extract(table, table.AllRows(), q, ctx); err == nil {
		t.Error("zero positions must fail")
	}

	q = rankingQuestion(survey.RankingByPosition, 3, false)
	q.Ranking.Items = []string{"Price"}
	if _, err := Extract(table, table.AllRows(), q, ctx); err == nil {
		t.Error("a single item is not a ranking")
	}
}
