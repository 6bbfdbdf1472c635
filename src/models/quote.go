package models

// MQuote is a best-effort real quote from the external market data provider.
type MQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	AsOf          string  `json:"as_of"` // latest trading day, YYYY-MM-DD
}
