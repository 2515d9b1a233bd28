package models

// FrankfurterResponse is the shape of the frankfurter.app latest-rates API,
// which republishes the ECB reference rates.
type FrankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// FXRate is the conversion result returned by the FX endpoint.
type FXRate struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Rate     float64 `json:"rate"`
	Date     string  `json:"date"`
	Fallback bool    `json:"fallback"` // true when served from the static table
}
