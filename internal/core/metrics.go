package core

type (
	// BucketStat accumulates amount, consumption and record count for one
	// breakdown bucket (a month or a provider).
	BucketStat struct {
		Amount float64 `json:"amount"`
		Kwh    float64 `json:"kwh"`
		Count  int     `json:"count"`
	}

	// MonthPoint is one point of the monthly series. The series is a slice,
	// not a map, because ascending chronological order is part of the
	// contract.
	MonthPoint struct {
		Month  string  `json:"month"` // YYYY-MM
		Amount float64 `json:"amount"`
		Kwh    float64 `json:"kwh"`
		Count  int     `json:"count"`
	}

	// TimeOfUseSplit is summed kWh per tariff period.
	TimeOfUseSplit struct {
		Peak    float64 `json:"peak"`
		OffPeak float64 `json:"off_peak"`
		Normal  float64 `json:"normal"`
	}

	// Metrics is the aggregated dashboard snapshot computed from a set of
	// canonical records. It is a pure value: recomputed from scratch, never
	// updated incrementally.
	Metrics struct {
		TotalAmount  float64 `json:"total_amount"`
		TotalKwh     float64 `json:"total_kwh"`
		TotalSavings float64 `json:"total_savings"`

		Monthly   []MonthPoint          `json:"monthly"`
		Providers map[string]BucketStat `json:"providers"`
		TimeOfUse TimeOfUseSplit        `json:"time_of_use"`

		// Buckets whose accumulated value is <= 0 are excluded entirely.
		ItemTypes map[string]float64 `json:"item_types"`
		Taxes     map[string]float64 `json:"taxes"`

		// Mean of efficiency scores > 0; nil when no record qualifies.
		AvgEfficiency *float64 `json:"avg_efficiency"`
	}
)
