package interfaces

import "stock-simulator/src/models"

// -----------------------------------------------------------------------------
// INewsFeed is the sentiment/news feed contract.
// -----------------------------------------------------------------------------

type INewsFeed interface {

	// -----------------------------------------------------------------------------

	// LatestNews returns the current items newest first. An empty symbol
	// returns everything; otherwise only items mentioning that symbol.
	// Each call returns a fresh snapshot.
	LatestNews(symbol string) []models.MNewsItem

	// -----------------------------------------------------------------------------

	// ImpactOf returns the average impact of the symbol's items within the
	// trailing window, clamped to the configured bound (±0.05 by default).
	// Zero when no qualifying items exist.
	ImpactOf(symbol string) float64
}
