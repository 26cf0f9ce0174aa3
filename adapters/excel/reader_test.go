package excel

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, "gender,age,Q1\nMale,25,4\nFemale,40,\nMale,,5\n")
	table, err := NewDataReader(path).ReadTable()
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if table.RowCount() != 3 {
		t.Fatalf("expected 3 respondents, got %d", table.RowCount())
	}

	age, ok := table.Column("age")
	if !ok {
		t.Fatal("age column missing")
	}
	if f, numeric := age[0].Float(); !numeric || f != 25 {
		t.Errorf("age[0] should parse as 25, got %v", age[0])
	}
	if !age[2].IsMissing() {
		t.Error("blank cell should read as missing")
	}

	q1, _ := table.Column("Q1")
	if !q1[1].IsMissing() {
		t.Error("empty Q1 answer should be missing")
	}
}

func TestReadCSVRaggedRowsArePadded(t *testing.T) {
	path := writeCSV(t, "a,b,c\n1,2,3\n4\n")
	table, err := NewDataReader(path).ReadTable()
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	c, _ := table.Column("c")
	if !c[1].IsMissing() {
		t.Error("short rows pad trailing columns with missing")
	}
}

func TestReadCSVBlankHeadersGetPositionalNames(t *testing.T) {
	path := writeCSV(t, "gender,,age\nMale,x,25\n")
	table, err := NewDataReader(path).ReadTable()
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if !table.HasColumn("column_2") {
		t.Errorf("blank header should become column_2, columns: %v", table.Columns())
	}
}

func TestReadMissingFileFails(t *testing.T) {
	if _, err := NewDataReader("/nonexistent/data.csv").ReadTable(); err == nil {
		t.Error("missing file must fail")
	}
}

func TestReadHeaderOnlyFails(t *testing.T) {
	path := writeCSV(t, "gender,age\n")
	if _, err := NewDataReader(path).ReadTable(); err == nil {
		t.Error("a header with no data rows must fail")
	}
}
