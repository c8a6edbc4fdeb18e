package core

import "strings"

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DefaultProvider is the sentinel used when a bundle names no provider.
const DefaultProvider = "Autre"

type (
	// Severity classifies an analysis issue.
	Severity string

	// LineItem is one billed line on an invoice.
	LineItem struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unit_price"`
		Total       float64 `json:"total"`
	}

	// Issue is one problem flagged by the invoice analysis.
	Issue struct {
		Description string   `json:"description"`
		Severity    Severity `json:"severity"`
	}

	// InvoiceRecord is the canonical, shape-independent representation of one
	// electricity invoice. It is produced by the normalizer, never mutated
	// afterwards, and consumed by the aggregator and the detail views.
	//
	// JSON field names match the raw bundle vocabulary so that a marshalled
	// record normalizes back to itself.
	InvoiceRecord struct {
		ID            string `json:"id,omitempty"`
		Provider      string `json:"provider"`
		CustomerName  string `json:"customer_name,omitempty"`
		CustomerID    string `json:"customer_id,omitempty"`
		InvoiceNumber string `json:"invoice_number,omitempty"`

		IssueDate   string `json:"issue_date,omitempty"`
		DueDate     string `json:"due_date,omitempty"`
		PeriodStart string `json:"period_start,omitempty"`
		PeriodEnd   string `json:"period_end,omitempty"`

		TotalAmount float64 `json:"total_amount"`
		TotalKwh    float64 `json:"total_kwh"`
		RatePerKwh  float64 `json:"rate_per_kwh"`
		PeakKwh     float64 `json:"peak_kwh"`
		OffPeakKwh  float64 `json:"off_peak_kwh"`

		// 0 means "not supplied"; scores are excluded from averages unless > 0.
		EfficiencyScore float64 `json:"efficiency_score,omitempty"`

		Items []LineItem         `json:"items"`
		Taxes map[string]float64 `json:"taxes"`

		PotentialSavings    float64  `json:"potential_savings"`
		Issues              []Issue  `json:"issues"`
		RecommendationsText []string `json:"recommendations"`
	}
)

// Valid reports whether s is one of the recognized severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Tariff-period markers looked for in line-item descriptions.
const (
	peakMarker    = "pointe"
	offPeakMarker = "creuse"
	normalMarker  = "normale"
)

// TimeOfUse returns the record's peak/off-peak/normal energy contributions.
// The summary fields and matching line-item quantities are additive: an
// invoice carrying both a peak_kwh field and a "Consommation Pointe" item
// contributes both (the permissive upstream policy; each item counts toward
// at most one bucket).
func (r InvoiceRecord) TimeOfUse() TimeOfUseSplit {
	split := TimeOfUseSplit{Peak: r.PeakKwh, OffPeak: r.OffPeakKwh}
	for _, item := range r.Items {
		desc := strings.ToLower(item.Description)
		switch {
		case strings.Contains(desc, peakMarker):
			split.Peak += item.Quantity
		case strings.Contains(desc, offPeakMarker):
			split.OffPeak += item.Quantity
		case strings.Contains(desc, normalMarker):
			split.Normal += item.Quantity
		}
	}
	return split
}

// MonthKey returns the YYYY-MM bucket for the record, preferring the issue
// date and falling back to the billing period start. Empty when the record
// carries neither date.
func (r InvoiceRecord) MonthKey() string {
	date := r.IssueDate
	if date == "" {
		date = r.PeriodStart
	}
	if len(date) > 7 {
		return date[:7]
	}
	return date
}
