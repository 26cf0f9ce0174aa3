package ports

import (
	"crosstab/domain/survey"
)

// TableSource loads the survey dataset from a tabular file. The core
// only needs random row access and column lookup by name.
type TableSource interface {
	ReadTable() (*survey.RespondentTable, error)
}
