package sheets

import (
	"context"

	"eventledger/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a report to a spreadsheet and returns a
	// reference to the written range.
	ReportWriter interface {
		WriteReport(ctx context.Context, r report.Report) (ref string, err error)
	}
)
