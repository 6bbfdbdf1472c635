package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-simulator/src/cache"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
	"stock-simulator/src/news"
	"stock-simulator/src/portfolio"
	"stock-simulator/src/storage"
)

// -----------------------------------------------------------------------------

func newServerFixture(t *testing.T) (*APIServer, *storage.MemoryRepository, *cache.MemoryCache) {
	t.Helper()

	cfg := &models.MConfig{}
	cfg.LogLevel = "ERROR"
	cfg.Cache.DefaultTTLSeconds = 300
	cfg.Cache.MaxSize = 1000
	cfg.Cache.MaxMemoryBytes = 64 << 20
	cfg.News.MaxItems = 20
	cfg.News.WindowHours = 24
	cfg.News.RefreshSeconds = 600
	cfg.News.ImpactClamp = 0.05
	cfg.News.MaxImpact = 0.3
	cfg.Seed.InitialBalance = "10000000.00"

	log := logger.NewLogger("ERROR", "ServerTest")

	repo, err := storage.NewMemoryRepository(cfg, log)
	require.NoError(t, err)
	require.NoError(t, repo.Initialize())

	require.NoError(t, repo.CreateUser(&models.MUser{
		ID:       storage.DefaultUserID,
		Username: "demo",
		Password: "demo",
		Balance:  decimal.RequireFromString("10000000.00"),
	}))
	require.NoError(t, repo.CreateStock(&models.MStock{
		ID:            "s-1",
		Symbol:        "AAPL",
		Name:          "Apple",
		CurrentPrice:  decimal.RequireFromString("175000.00"),
		PreviousClose: decimal.RequireFromString("173500.00"),
	}))

	c := cache.NewMemoryCache(cfg.Cache, log)
	feed := news.NewService(cfg, []string{"AAPL"}, log)
	ledger := portfolio.NewLedger(cfg, log, repo)

	return NewAPIServer(cfg, log, repo, c, feed, ledger), repo, c
}

func doRequest(s *APIServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

// -----------------------------------------------------------------------------

func TestGetUserReturnsAccount(t *testing.T) {
	s, _, _ := newServerFixture(t)

	rec := doRequest(s, http.MethodGet, "/api/user", nil)
	require.Equal(t, 200, rec.Code)

	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "demo", user["username"])
	// Password never leaves the server
	assert.NotContains(t, user, "password")
}

// -----------------------------------------------------------------------------

func TestGetStocksIsCached(t *testing.T) {
	s, repo, c := newServerFixture(t)

	rec := doRequest(s, http.MethodGet, "/api/stocks", nil)
	require.Equal(t, 200, rec.Code)

	_, ok := c.Get("stocks:all")
	assert.True(t, ok, "response should be cached under stocks:all")

	// A stock added behind the cache is invisible until invalidation.
	require.NoError(t, repo.CreateStock(&models.MStock{
		ID: "s-2", Symbol: "TSLA", Name: "Tesla",
		CurrentPrice:  decimal.RequireFromString("245000.00"),
		PreviousClose: decimal.RequireFromString("248000.00"),
	}))

	rec = doRequest(s, http.MethodGet, "/api/stocks", nil)
	var stocks []models.MStock
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stocks))
	assert.Len(t, stocks, 1)

	c.DeletePattern("^stocks:")
	rec = doRequest(s, http.MethodGet, "/api/stocks", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stocks))
	assert.Len(t, stocks, 2)
}

// -----------------------------------------------------------------------------

func TestGetStockNotFound(t *testing.T) {
	s, _, _ := newServerFixture(t)

	rec := doRequest(s, http.MethodGet, "/api/stocks/missing", nil)
	assert.Equal(t, 404, rec.Code)
	assert.Contains(t, rec.Body.String(), "Stock not found")
}

// -----------------------------------------------------------------------------

func TestTradeBuyHappyPath(t *testing.T) {
	s, repo, c := newServerFixture(t)

	c.Set("holdings:"+storage.DefaultUserID, "stale", 0)
	c.Set("portfolio:stats:"+storage.DefaultUserID, "stale", 0)

	rec := doRequest(s, http.MethodPost, "/api/trade", map[string]interface{}{
		"stockId":  "s-1",
		"quantity": 2,
		"type":     "buy",
	})
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Purchase successful")

	holding, err := repo.GetHolding(storage.DefaultUserID, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 2, holding.Quantity)

	// A trade invalidates the derived namespaces.
	_, ok := c.Get("holdings:" + storage.DefaultUserID)
	assert.False(t, ok)
	_, ok = c.Get("portfolio:stats:" + storage.DefaultUserID)
	assert.False(t, ok)
}

// -----------------------------------------------------------------------------

func TestTradeRejectionsMapToBadRequest(t *testing.T) {
	s, _, _ := newServerFixture(t)

	cases := []struct {
		name    string
		body    map[string]interface{}
		status  int
		message string
	}{
		{"missing fields", map[string]interface{}{"stockId": "s-1"}, 400, "Missing required fields"},
		{"negative quantity", map[string]interface{}{"stockId": "s-1", "quantity": -1, "type": "buy"}, 400, "Quantity must be greater than 0"},
		{"sell without position", map[string]interface{}{"stockId": "s-1", "quantity": 1, "type": "sell"}, 400, "You don't own this stock"},
		{"unknown type", map[string]interface{}{"stockId": "s-1", "quantity": 1, "type": "short"}, 400, "Invalid transaction type"},
		{"insufficient balance", map[string]interface{}{"stockId": "s-1", "quantity": 100, "type": "buy"}, 400, "Insufficient balance"},
		{"unknown stock", map[string]interface{}{"stockId": "nope", "quantity": 1, "type": "buy"}, 404, "User or stock not found"},
	}

	for _, tc := range cases {
		rec := doRequest(s, http.MethodPost, "/api/trade", tc.body)
		assert.Equal(t, tc.status, rec.Code, tc.name)
		assert.Contains(t, rec.Body.String(), tc.message, tc.name)
	}
}

// -----------------------------------------------------------------------------

func TestPortfolioStatsEndpoint(t *testing.T) {
	s, _, _ := newServerFixture(t)

	rec := doRequest(s, http.MethodPost, "/api/trade", map[string]interface{}{
		"stockId":  "s-1",
		"quantity": 10,
		"type":     "buy",
	})
	require.Equal(t, 200, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/portfolio/stats", nil)
	require.Equal(t, 200, rec.Code)

	var stats models.MPortfolioStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	// 10 x 175000 held plus remaining cash still totals the initial balance.
	assert.True(t, stats.TotalValue.Equal(decimal.RequireFromString("10000000.00")),
		"got %s", stats.TotalValue)
	assert.True(t, stats.TotalProfitLoss.IsZero())
}

// -----------------------------------------------------------------------------

func TestStockHistoryEndpoint(t *testing.T) {
	s, repo, _ := newServerFixture(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AppendPriceHistory(&models.MPriceHistory{
			ID:      fmt.Sprintf("h-%d", i),
			StockID: "s-1",
			Price:   decimal.NewFromInt(int64(100 + i)),
		}))
	}

	rec := doRequest(s, http.MethodGet, "/api/stocks/s-1/history", nil)
	require.Equal(t, 200, rec.Code)

	var history []models.MPriceHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 3)
}

// -----------------------------------------------------------------------------

func TestNewsEndpointFiltersBySymbol(t *testing.T) {
	s, _, _ := newServerFixture(t)

	rec := doRequest(s, http.MethodGet, "/api/news?symbol=AAPL", nil)
	require.Equal(t, 200, rec.Code)

	var items []models.MNewsItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	for _, item := range items {
		assert.True(t, item.Mentions("AAPL"))
	}
}

// -----------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newServerFixture(t)

	rec := doRequest(s, http.MethodGet, "/api/health", nil)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
