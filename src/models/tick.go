package models

import "time"

// Price sources for one stock update within a tick.
const (
	SourceReal   = "real"
	SourceHybrid = "hybrid"
)

// -----------------------------------------------------------------------------

// MStockUpdate is the outcome of recomputing one stock's price in a cycle.
type MStockUpdate struct {
	StockID       string  `json:"stockId"`
	Symbol        string  `json:"symbol"`
	OldPrice      string  `json:"oldPrice"`
	NewPrice      string  `json:"newPrice"`
	Change        string  `json:"change"`
	ChangePercent string  `json:"changePercent"`
	NewsImpact    float64 `json:"newsImpact"`
	Source        string  `json:"source"`
}

// -----------------------------------------------------------------------------

// MTickSummary describes one completed update cycle. It is the payload
// broadcast to websocket clients after every tick.
type MTickSummary struct {
	Type      string         `json:"type"` // "TICK"
	Updated   int            `json:"updated"`
	Failed    int            `json:"failed"`
	Updates   []MStockUpdate `json:"updates"`
	Timestamp time.Time      `json:"timestamp"`
	Elapsed   float64        `json:"elapsed_seconds"`
}
