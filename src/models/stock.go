package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MStock represents one tradable instrument. Prices are fixed-point with
// two fractional digits; PreviousClose is rolled over to the pre-update
// CurrentPrice on every updater tick, not once per calendar day.
type MStock struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PreviousClose decimal.Decimal `json:"previousClose"`
}

// -----------------------------------------------------------------------------

// MPriceHistory is one observation in a stock's bounded price ledger.
type MPriceHistory struct {
	ID        string          `json:"id"`
	StockID   string          `json:"stockId"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MaxHistoryPerStock caps the price ledger per instrument. The repository
// prunes the oldest excess records immediately after each append.
const MaxHistoryPerStock = 100
