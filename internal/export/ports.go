package export

import (
	"context"

	"facturelec/internal/core"
)

// Ports for outbound adapters.
type (
	// InvoiceAppender writes one normalized invoice to an external sheet.
	InvoiceAppender interface {
		Append(ctx context.Context, rec core.InvoiceRecord) (rowRef string, err error)
	}
)

// Header is the column layout shared by the spreadsheet and XLSX exports.
var Header = []string{
	"ID",
	"Provider",
	"Invoice Number",
	"Issue Date",
	"Period Start",
	"Period End",
	"Total Amount",
	"Total kWh",
	"Rate / kWh",
	"Peak kWh",
	"Off-Peak kWh",
	"Potential Savings",
	"Efficiency Score",
}

// Row flattens a record into the Header column order.
func Row(rec core.InvoiceRecord) []any {
	return []any{
		rec.ID,
		rec.Provider,
		rec.InvoiceNumber,
		rec.IssueDate,
		rec.PeriodStart,
		rec.PeriodEnd,
		rec.TotalAmount,
		rec.TotalKwh,
		rec.RatePerKwh,
		rec.PeakKwh,
		rec.OffPeakKwh,
		rec.PotentialSavings,
		rec.EfficiencyScore,
	}
}
