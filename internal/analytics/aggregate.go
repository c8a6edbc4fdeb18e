// Package analytics folds canonical invoice records into the dashboard
// metrics snapshot. Pure computation over already-normalized data: there is
// no failure mode here, only documented zero values for empty input.
package analytics

import (
	"sort"

	"facturelec/internal/core"
)

// Aggregate computes a Metrics snapshot from a set of canonical records in
// one linear pass. Input order is irrelevant; the monthly series is always
// emitted in ascending chronological order.
func Aggregate(records []core.InvoiceRecord) core.Metrics {
	m := core.Metrics{
		Providers: make(map[string]core.BucketStat),
		ItemTypes: make(map[string]float64),
		Taxes:     make(map[string]float64),
		Monthly:   []core.MonthPoint{},
	}

	months := make(map[string]core.BucketStat)
	var effSum float64
	var effCount int

	for _, rec := range records {
		m.TotalAmount += rec.TotalAmount
		m.TotalKwh += rec.TotalKwh
		m.TotalSavings += rec.PotentialSavings

		if key := rec.MonthKey(); key != "" {
			bucket := months[key]
			bucket.Amount += rec.TotalAmount
			bucket.Kwh += rec.TotalKwh
			bucket.Count++
			months[key] = bucket
		}

		provider := rec.Provider
		if provider == "" {
			provider = core.DefaultProvider
		}
		stat := m.Providers[provider]
		stat.Amount += rec.TotalAmount
		stat.Kwh += rec.TotalKwh
		stat.Count++
		m.Providers[provider] = stat

		split := rec.TimeOfUse()
		m.TimeOfUse.Peak += split.Peak
		m.TimeOfUse.OffPeak += split.OffPeak
		m.TimeOfUse.Normal += split.Normal

		for _, item := range rec.Items {
			desc := item.Description
			if desc == "" {
				desc = core.DefaultProvider
			}
			m.ItemTypes[desc] += item.Total
		}
		for name, amount := range rec.Taxes {
			m.Taxes[name] += amount
		}

		if rec.EfficiencyScore > 0 {
			effSum += rec.EfficiencyScore
			effCount++
		}
	}

	// YYYY-MM keys sort lexicographically into chronological order.
	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		bucket := months[key]
		m.Monthly = append(m.Monthly, core.MonthPoint{
			Month:  key,
			Amount: bucket.Amount,
			Kwh:    bucket.Kwh,
			Count:  bucket.Count,
		})
	}

	// Non-positive buckets are dropped from the breakdowns.
	prune(m.ItemTypes)
	prune(m.Taxes)

	if effCount > 0 {
		avg := effSum / float64(effCount)
		m.AvgEfficiency = &avg
	}

	return m
}

func prune(buckets map[string]float64) {
	for key, total := range buckets {
		if total <= 0 {
			delete(buckets, key)
		}
	}
}
