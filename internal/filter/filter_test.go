package filter

import (
	"testing"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

func filterTable(t *testing.T) *survey.RespondentTable {
	t.Helper()
	columns := []string{"gender", "age", "region"}
	data := [][]core.Value{
		{core.NewText("Male"), core.NewText("Female"), core.NewText("Male"), core.Missing()},
		{core.NewNumber(25), core.NewNumber(40), core.NewNumber(60), core.NewNumber(35)},
		{core.NewText("North"), core.NewText("South"), core.NewText("North"), core.NewText("East")},
	}
	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	return table
}

func TestEmptyExpressionSelectsEverything(t *testing.T) {
	table := filterTable(t)
	rows, err := Apply("  ", table)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("expected all 4 rows, got %d", len(rows))
	}
}

func TestComparisonOperators(t *testing.T) {
	table := filterTable(t)
	cases := []struct {
		expr string
		want []int
	}{
		{"gender = 'Male'", []int{0, 2}},
		{"gender == Male", []int{0, 2}},
		{"gender != 'Male'", []int{1}}, // missing never matches, even for !=
		{"age > 30", []int{1, 2, 3}},
		{"age <= 35", []int{0, 3}},
		{"age <> 40", []int{0, 2, 3}},
		{"region IN ('North', 'East')", []int{0, 2, 3}},
		{"age IN (25, 60)", []int{0, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			rows, err := Apply(tc.expr, table)
			if err != nil {
				t.Fatalf("Apply(%q) failed: %v", tc.expr, err)
			}
			if len(rows) != len(tc.want) {
				t.Fatalf("Apply(%q) = %v, want %v", tc.expr, rows, tc.want)
			}
			for i := range rows {
				if rows[i] != tc.want[i] {
					t.Fatalf("Apply(%q) = %v, want %v", tc.expr, rows, tc.want)
				}
			}
		})
	}
}

func TestBooleanCombinators(t *testing.T) {
	table := filterTable(t)
	rows, err := Apply("gender = 'Male' AND age < 50", table)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(rows) != 1 || rows[0] != 0 {
		t.Errorf("expected row 0, got %v", rows)
	}

	rows, err = Apply("region = 'South' OR region = 'East'", table)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %v", rows)
	}

	rows, err = Apply("NOT (gender = 'Male') AND age >= 30", table)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// NOT flips the missing-gender row to true; the age clause keeps it.
	if len(rows) != 2 {
		t.Errorf("expected rows 1 and 3, got %v", rows)
	}
}

func TestOrderingNeedsNumbers(t *testing.T) {
	table := filterTable(t)
	rows, err := Apply("gender > 'Apple'", table)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("ordering on text must match nothing, got %v", rows)
	}
}

func TestMalformedExpressionsFail(t *testing.T) {
	table := filterTable(t)
	for _, expr := range []string{
		"gender =",
		"= 'Male'",
		"gender = 'Male' extra",
		"region IN ('North'",
		"gender ~ 'Male'",
		"gender = 'unterminated",
		"(gender = 'Male'",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Apply(expr, table)
			if err == nil {
				t.Fatalf("Apply(%q) should fail", expr)
			}
			if errors.GetCode(err) != errors.CodeInvalidFilter {
				t.Errorf("expected INVALID_FILTER, got %s", errors.GetCode(err))
			}
		})
	}
}

func TestUnknownColumnFails(t *testing.T) {
	table := filterTable(t)
	if _, err := Apply("nope = 1", table); err == nil {
		t.Error("unknown column must fail")
	}
}
