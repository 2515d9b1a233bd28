package models

// DividendCountrySummary holds the aggregated dividend amounts for a specific
// country in a year.
type DividendCountrySummary struct {
	GrossAmt float64 `json:"gross_amt"`
	TaxedAmt float64 `json:"taxed_amt"`
}

// DividendSummary maps year -> country -> aggregated amounts.
type DividendSummary map[string]map[string]DividendCountrySummary
