// Package excel loads respondent data from Excel and CSV exports and
// renders finished crosstab reports back to Excel.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// DataReader reads a respondent table from an .xlsx or .csv export.
// The first row is the header; every later row is one respondent.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
}

// NewDataReader picks the format from the file extension.
func NewDataReader(filePath string) *DataReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: "Sheet1"}
}

// WithSheet overrides the worksheet name for xlsx files.
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// ReadTable loads the dataset into a column-major respondent table.
func (r *DataReader) ReadTable() (*survey.RespondentTable, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.ConfigInvalid(fmt.Sprintf("data file not found: %s", r.filePath))
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.ConfigInvalid("data file must have a header row and at least one data row")
	}
	return buildTable(rows)
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to read sheet %s", r.sheet))
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged exports are padded below
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

// buildTable converts raw string rows into the column-major table.
// Short rows are padded with missing values; blank header cells get a
// positional name so the table stays addressable.
func buildTable(rows [][]string) (*survey.RespondentTable, error) {
	header := rows[0]
	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = name
	}

	dataRows := rows[1:]
	data := make([][]core.Value, len(columns))
	for c := range data {
		values := make([]core.Value, len(dataRows))
		for r, row := range dataRows {
			if c < len(row) {
				values[r] = core.ParseValue(row[c])
			} else {
				values[r] = core.Missing()
			}
		}
		data[c] = values
	}

	table, err := survey.NewRespondentTable(columns, data)
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	return table, nil
}
