package normalize

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"facturelec/internal/core"
)

// Bundle field names, shared with the upstream extraction pipeline.
const (
	keyInvoice         = "invoice"
	keyAnalysis        = "analysis"
	keyRecommendations = "recommendations"
	keyConsumption     = "consumption"
	keySavings         = "potential_savings"
)

// Normalize maps one raw invoice bundle to its canonical record. It is a
// total function: nil or empty input yields the default record (provider
// "Autre", zero numerics, empty containers).
//
// Fields are resolved top-level first, then one level under "invoice"; first
// hit wins and levels are never merged for a single field. The exceptions
// are spelled out below: potential savings searches deeper, items/taxes fall
// back to the nested copy only when the top-level one is empty, and the
// peak/off-peak summary fields are additive across both levels.
func Normalize(raw map[string]any) core.InvoiceRecord {
	invoice := subObject(raw[keyInvoice])
	recs := subObject(raw[keyRecommendations])
	consumption := subObject(raw[keyConsumption])
	if len(consumption) == 0 {
		consumption = subObject(invoice[keyConsumption])
	}

	rec := core.InvoiceRecord{
		ID:            asString(lookup(raw, invoice, "id")),
		Provider:      asString(lookup(raw, invoice, "provider")),
		CustomerName:  asString(lookup(raw, invoice, "customer_name")),
		CustomerID:    asString(lookup(raw, invoice, "customer_id")),
		InvoiceNumber: asString(lookup(raw, invoice, "invoice_number")),
		IssueDate:     asString(lookup(raw, invoice, "issue_date")),
		DueDate:       asString(lookup(raw, invoice, "due_date")),
	}
	if rec.Provider == "" {
		rec.Provider = core.DefaultProvider
	}

	// Billing period and energy figures may also live in a "consumption"
	// sub-object, the shape the extraction pipeline's data model uses.
	rec.PeriodStart = stringWithFallback(raw, invoice, consumption, "period_start")
	rec.PeriodEnd = stringWithFallback(raw, invoice, consumption, "period_end")
	rec.TotalAmount = coerceNonNegative(lookup(raw, invoice, "total_amount"))
	rec.TotalKwh = numberWithFallback(raw, invoice, consumption, "total_kwh")
	rec.RatePerKwh = numberWithFallback(raw, invoice, consumption, "rate_per_kwh")
	rec.PeakKwh = additiveKwh(raw, invoice, consumption, "peak_kwh")
	rec.OffPeakKwh = additiveKwh(raw, invoice, consumption, "off_peak_kwh")

	rec.Items = resolveItems(raw, invoice)
	rec.Taxes = resolveTaxes(raw, invoice)
	rec.PotentialSavings = resolveSavings(raw, invoice, recs)
	rec.EfficiencyScore = resolveEfficiency(raw, invoice, recs)
	rec.Issues = resolveIssues(raw)
	rec.RecommendationsText = resolveRecommendationsText(raw, recs)

	return rec
}

// lookup returns the first present, non-nil value for key: top level, then
// one level under "invoice".
func lookup(raw, invoice map[string]any, key string) any {
	if v, ok := raw[key]; ok && v != nil {
		return v
	}
	if v, ok := invoice[key]; ok && v != nil {
		return v
	}
	return nil
}

func stringWithFallback(raw, invoice, consumption map[string]any, key string) string {
	if s := asString(lookup(raw, invoice, key)); s != "" {
		return s
	}
	return asString(consumption[key])
}

func numberWithFallback(raw, invoice, consumption map[string]any, key string) float64 {
	if v := lookup(raw, invoice, key); v != nil {
		return coerceNonNegative(v)
	}
	return coerceNonNegative(consumption[key])
}

// additiveKwh sums the top-level and invoice-nested summary fields. Both
// levels count when both are present; this mirrors the permissive upstream
// policy for time-of-use figures. The consumption sub-object is only
// consulted when neither level carries the field.
func additiveKwh(raw, invoice, consumption map[string]any, key string) float64 {
	top, topOK := raw[key]
	nested, nestedOK := invoice[key]
	if !topOK && !nestedOK {
		return coerceNonNegative(consumption[key])
	}
	var sum float64
	if topOK {
		sum += coerceNonNegative(top)
	}
	if nestedOK {
		sum += coerceNonNegative(nested)
	}
	return sum
}

// resolveSavings applies the dedicated potential-savings search: top level,
// under "invoice", under "recommendations", and finally a scan of every
// top-level sub-object for a potential_savings member. The scan walks keys
// in sorted order; JSON object order does not survive decoding.
func resolveSavings(raw, invoice, recs map[string]any) float64 {
	if v, ok := raw[keySavings]; ok && v != nil {
		return coerceNonNegative(v)
	}
	if v, ok := invoice[keySavings]; ok && v != nil {
		return coerceNonNegative(v)
	}
	if v, ok := recs[keySavings]; ok && v != nil {
		return coerceNonNegative(v)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sub := subObject(raw[k]); sub != nil {
			if v, ok := sub[keySavings]; ok && v != nil {
				return coerceNonNegative(v)
			}
		}
	}
	return 0
}

func resolveEfficiency(raw, invoice, recs map[string]any) float64 {
	if v := lookup(raw, invoice, "efficiency_score"); v != nil {
		return coerceNonNegative(v)
	}
	return coerceNonNegative(recs["efficiency_score"])
}

// resolveItems takes the top-level item list unless it is empty, then the
// invoice-nested one. The two are never concatenated; merging would double
// count bundles that carry the list at both levels.
func resolveItems(raw, invoice map[string]any) []core.LineItem {
	items := parseItems(raw["items"])
	if len(items) == 0 {
		items = parseItems(invoice["items"])
	}
	return items
}

func parseItems(v any) []core.LineItem {
	list, ok := v.([]any)
	if !ok {
		return []core.LineItem{}
	}
	items := make([]core.LineItem, 0, len(list))
	for _, entry := range list {
		m := subObject(entry)
		if m == nil {
			continue
		}
		items = append(items, core.LineItem{
			Description: asString(m["description"]),
			Quantity:    CoerceNumber(m["quantity"]),
			UnitPrice:   CoerceNumber(m["unit_price"]),
			Total:       CoerceNumber(m["total"]),
		})
	}
	return items
}

// resolveTaxes mirrors resolveItems: one level wins, no merging.
func resolveTaxes(raw, invoice map[string]any) map[string]float64 {
	taxes := parseTaxes(raw["taxes"])
	if len(taxes) == 0 {
		taxes = parseTaxes(invoice["taxes"])
	}
	return taxes
}

func parseTaxes(v any) map[string]float64 {
	m := subObject(v)
	taxes := make(map[string]float64, len(m))
	for name, amount := range m {
		taxes[name] = CoerceNumber(amount)
	}
	return taxes
}

// resolveIssues reads the analysis issues: a top-level "issues" list (the
// canonical shape), else "analysis.issues", else the values of an "analysis"
// object keyed by anything.
func resolveIssues(raw map[string]any) []core.Issue {
	if list, ok := raw["issues"].([]any); ok {
		return parseIssues(list)
	}
	analysis := subObject(raw[keyAnalysis])
	if list, ok := analysis["issues"].([]any); ok {
		return parseIssues(list)
	}
	if len(analysis) > 0 {
		keys := make([]string, 0, len(analysis))
		for k := range analysis {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]any, 0, len(keys))
		for _, k := range keys {
			values = append(values, analysis[k])
		}
		return parseIssues(values)
	}
	return []core.Issue{}
}

func parseIssues(list []any) []core.Issue {
	issues := make([]core.Issue, 0, len(list))
	for _, entry := range list {
		issues = append(issues, parseIssue(entry))
	}
	return issues
}

func parseIssue(v any) core.Issue {
	issue := core.Issue{Severity: core.SeverityMedium}
	switch t := v.(type) {
	case string:
		issue.Description = t
	case map[string]any:
		issue.Description = asString(t["description"])
		if issue.Description == "" {
			issue.Description = compactJSON(t)
		}
		sev := core.Severity(strings.ToLower(asString(t["severity"])))
		if sev.Valid() {
			issue.Severity = sev
		}
	default:
		issue.Description = compactJSON(v)
	}
	return issue
}

// resolveRecommendationsText accepts either a bare list of suggestion strings
// or the recommendations object wrapping one.
func resolveRecommendationsText(raw, recs map[string]any) []string {
	if list, ok := raw[keyRecommendations].([]any); ok {
		return parseStrings(list)
	}
	if list, ok := recs[keyRecommendations].([]any); ok {
		return parseStrings(list)
	}
	return []string{}
}

func parseStrings(list []any) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s := asString(entry); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// subObject returns v as a JSON object, or nil.
func subObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asString renders strings and numbers (ids sometimes arrive numeric) as
// trimmed text; anything else is "".
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
