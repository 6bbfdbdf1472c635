package models

import "time"

// Sentiment labels for news items.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// -----------------------------------------------------------------------------

// MNewsItem is one synthetic news article. Impact is a scalar in [-1, 1]
// describing the expected price effect on the associated symbols.
type MNewsItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Sentiment string    `json:"sentiment"`
	Impact    float64   `json:"impact"`
	Timestamp time.Time `json:"timestamp"`
	Symbols   []string  `json:"symbols"`
}

// -----------------------------------------------------------------------------

// Mentions reports whether the item is associated with the given symbol.
func (n *MNewsItem) Mentions(symbol string) bool {
	for _, s := range n.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
