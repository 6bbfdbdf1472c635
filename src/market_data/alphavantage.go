package market_data

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// AlphaVantageSource fetches best-effort real quotes from the Alpha Vantage
// GLOBAL_QUOTE endpoint. Quotes are cached per symbol for a short TTL and
// external calls are serialized with an inter-call delay to respect the
// free-tier rate limit. A missing quote, a rate-limit note, or a call
// timeout all surface as "unavailable" (nil quote, nil error); only
// transport failure returns an error, which callers treat the same way.
// -----------------------------------------------------------------------------

type AlphaVantageSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	quoteCache map[string]cachedQuote
	cacheMu    sync.RWMutex

	// callMu serializes external calls across all callers.
	callMu   sync.Mutex
	lastCall time.Time

	calendars   map[string]*TradingCalendar
	calendarsMu sync.Mutex

	now func() time.Time
}

type cachedQuote struct {
	quote     models.MQuote
	fetchedAt time.Time
}

// -----------------------------------------------------------------------------

func NewAlphaVantageSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *AlphaVantageSource {
	return &AlphaVantageSource{
		Config:     cfg,
		Network:    netMgr,
		Logger:     log,
		quoteCache: make(map[string]cachedQuote),
		calendars:  make(map[string]*TradingCalendar),
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// SetClock replaces the provider clock. Test hook.
func (s *AlphaVantageSource) SetClock(now func() time.Time) {
	s.now = now
}

// -----------------------------------------------------------------------------

// TranslateSymbol maps an internal symbol to the provider's symbol via the
// configured static table. Unmapped symbols pass through unchanged.
func (s *AlphaVantageSource) TranslateSymbol(symbol string) string {
	if mapped, ok := s.Config.MarketData.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// -----------------------------------------------------------------------------

// Quote returns the quote for one provider-side symbol, or (nil, nil) when
// no real data is available.
func (s *AlphaVantageSource) Quote(ctx context.Context, symbol string) (*models.MQuote, error) {
	// Cached quote within TTL short-circuits everything else.
	cacheTTL := time.Duration(s.Config.MarketData.QuoteCacheSeconds) * time.Second
	s.cacheMu.RLock()
	if cached, ok := s.quoteCache[symbol]; ok && s.now().Sub(cached.fetchedAt) < cacheTTL {
		s.cacheMu.RUnlock()
		q := cached.quote
		return &q, nil
	}
	s.cacheMu.RUnlock()

	// Outside trading hours the provider has nothing fresher than the
	// cache anyway; skip the call instead of burning the rate limit.
	if s.Config.MarketData.RespectMarketHours && !s.marketOpen(symbol) {
		s.Logger.Debug("Market closed for %s, skipping real quote", symbol)
		return nil, nil
	}

	// One external call at a time, spaced by the configured delay.
	s.callMu.Lock()
	defer s.callMu.Unlock()

	delay := time.Duration(s.Config.MarketData.CallDelayMillis) * time.Millisecond
	if wait := delay - s.now().Sub(s.lastCall); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.lastCall = s.now()

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(s.Config.MarketData.CallTimeoutSeconds)*time.Second)
	defer cancel()

	quote, err := s.fetchQuote(callCtx, symbol)
	if err != nil {
		if callCtx.Err() != nil {
			// A stalled provider call must not block the whole cycle;
			// timeout is just another flavor of unavailable.
			s.Logger.Warning("Quote call for %s timed out", symbol)
			return nil, nil
		}
		return nil, err
	}
	if quote == nil {
		return nil, nil
	}

	s.cacheMu.Lock()
	s.quoteCache[symbol] = cachedQuote{quote: *quote, fetchedAt: s.now()}
	s.cacheMu.Unlock()

	s.Logger.Info("Real data for %s: $%.2f (%.2f%%)", symbol, quote.Price, quote.ChangePercent)
	return quote, nil
}

// -----------------------------------------------------------------------------

// QuoteAll fetches quotes for multiple symbols sequentially. Symbols with
// no available quote are simply absent from the result.
func (s *AlphaVantageSource) QuoteAll(ctx context.Context, symbols []string) (map[string]models.MQuote, error) {
	results := make(map[string]models.MQuote)

	for _, symbol := range symbols {
		quote, err := s.Quote(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.Logger.Warning("Quote fetch failed for %s: %v", symbol, err)
			continue
		}
		if quote != nil {
			results[symbol] = *quote
		}
	}

	return results, nil
}

// -----------------------------------------------------------------------------

// globalQuoteResponse mirrors Alpha Vantage's GLOBAL_QUOTE payload. Error
// and rate-limit conditions arrive as alternate top-level fields, not as
// HTTP errors.
type globalQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	ErrorMessage string            `json:"Error Message"`
}

// -----------------------------------------------------------------------------

func (s *AlphaVantageSource) fetchQuote(ctx context.Context, symbol string) (*models.MQuote, error) {
	params := map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
		"apikey":   s.Config.MarketData.APIKey,
	}

	body, err := s.Network.Get(ctx, s.Config.MarketData.BaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("network error for %s: %w", symbol, err)
	}

	return parseGlobalQuote(symbol, body, s.Logger)
}

// -----------------------------------------------------------------------------

func parseGlobalQuote(symbol string, body []byte, log *logger.Logger) (*models.MQuote, error) {
	var resp globalQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed for %s: %w", symbol, err)
	}

	if resp.ErrorMessage != "" {
		log.Warning("Provider error for %s: %s", symbol, resp.ErrorMessage)
		return nil, nil
	}

	if resp.Note != "" {
		log.Warning("Provider rate limit hit: %s", resp.Note)
		return nil, nil
	}

	quote := resp.GlobalQuote
	priceStr, ok := quote["05. price"]
	if !ok || priceStr == "" {
		log.Warning("No quote data for %s", symbol)
		return nil, nil
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for %s: %w", priceStr, symbol, err)
	}

	change, _ := strconv.ParseFloat(quote["09. change"], 64)
	pctStr := strings.TrimSuffix(quote["10. change percent"], "%")
	changePercent, _ := strconv.ParseFloat(pctStr, 64)
	volume, _ := strconv.ParseInt(quote["06. volume"], 10, 64)

	quotedSymbol := quote["01. symbol"]
	if quotedSymbol == "" {
		quotedSymbol = symbol
	}

	return &models.MQuote{
		Symbol:        quotedSymbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        volume,
		AsOf:          quote["07. latest trading day"],
	}, nil
}

// -----------------------------------------------------------------------------

func (s *AlphaVantageSource) marketOpen(symbol string) bool {
	s.calendarsMu.Lock()
	cal, ok := s.calendars[symbol]
	if !ok {
		cal = CalendarFor(symbol)
		s.calendars[symbol] = cal
	}
	s.calendarsMu.Unlock()

	return cal.IsOpenOnMinute(s.now())
}
