package ports

import (
	"crosstab/domain/banner"
	"crosstab/domain/run"
)

// ReportSink renders a completed run. Implementations own the output
// format; the engine hands over immutable tables only.
type ReportSink interface {
	WriteReport(result *run.Result, structure *banner.Structure) error
}
