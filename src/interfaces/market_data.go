package interfaces

import (
	"context"

	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// IMarketData is the external market data provider contract.
// -----------------------------------------------------------------------------

type IMarketData interface {

	// -----------------------------------------------------------------------------

	// Quote returns a best-effort real quote for the provider-side symbol.
	// A (nil, nil) result means "unavailable" (not found, rate limited,
	// market closed); an error is returned only for transport failure,
	// which callers treat identically to unavailable.
	Quote(ctx context.Context, symbol string) (*models.MQuote, error)

	// -----------------------------------------------------------------------------

	// QuoteAll fetches quotes for multiple symbols, serialized with an
	// inter-call delay to respect provider rate limits. Symbols without a
	// quote are absent from the result.
	QuoteAll(ctx context.Context, symbols []string) (map[string]models.MQuote, error)

	// -----------------------------------------------------------------------------

	// TranslateSymbol maps an internal symbol to the provider's symbol.
	// Unmapped symbols pass through unchanged.
	TranslateSymbol(symbol string) string
}
