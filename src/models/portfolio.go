package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides recorded on transactions.
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

// -----------------------------------------------------------------------------

// MUser holds the simulated account. Balance is the free cash, fixed-point
// with two fractional digits.
type MUser struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Password string          `json:"-"`
	Balance  decimal.Decimal `json:"balance"`
}

// -----------------------------------------------------------------------------

// MHolding is one user's position in one stock. Quantity is a whole number
// of shares; the holding row is deleted when it reaches zero.
type MHolding struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	StockID      string          `json:"stockId"`
	Quantity     int             `json:"quantity"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
}

// -----------------------------------------------------------------------------

// MTransaction is the immutable record of one executed trade.
type MTransaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	StockID   string          `json:"stockId"`
	Type      string          `json:"type"` // buy | sell
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

// -----------------------------------------------------------------------------

// MPortfolioStats is the aggregate view of account value against the
// configured initial balance.
type MPortfolioStats struct {
	TotalValue             decimal.Decimal `json:"totalValue"`
	TotalCost              decimal.Decimal `json:"totalCost"`
	TotalProfitLoss        decimal.Decimal `json:"totalProfitLoss"`
	TotalProfitLossPercent decimal.Decimal `json:"totalProfitLossPercent"`
	CashBalance            decimal.Decimal `json:"cashBalance"`
}

// -----------------------------------------------------------------------------

// MHoldingDetail is a holding enriched with its stock and derived P&L,
// priced at the last completed updater tick.
type MHoldingDetail struct {
	MHolding
	Stock             MStock          `json:"stock"`
	CurrentValue      decimal.Decimal `json:"currentValue"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal `json:"profitLossPercent"`
}

// -----------------------------------------------------------------------------

// MTransactionDetail is a transaction enriched with its stock.
type MTransactionDetail struct {
	MTransaction
	Stock MStock `json:"stock"`
}

// -----------------------------------------------------------------------------

// MPortfolioHistoryPoint is one day of the portfolio value series, the
// average of all retained price history records from that day.
type MPortfolioHistoryPoint struct {
	ID        string          `json:"id"`
	StockID   string          `json:"stockId"` // always "portfolio"
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}
