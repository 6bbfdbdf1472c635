package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

func newTestRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	repo, err := NewMemoryRepository(&models.MConfig{}, logger.NewLogger("ERROR", "StorageTest"))
	require.NoError(t, err)
	require.NoError(t, repo.Initialize())
	return repo
}

// -----------------------------------------------------------------------------

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	user := &models.MUser{
		ID:       "user-1",
		Username: "demo",
		Password: "demo",
		Balance:  decimal.RequireFromString("10000000.00"),
	}
	require.NoError(t, repo.CreateUser(user))

	got, err := repo.GetUser("user-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Username)
	assert.True(t, got.Balance.Equal(user.Balance))

	byName, err := repo.GetUserByUsername("demo")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byName.ID)

	require.NoError(t, repo.UpdateUserBalance("user-1", decimal.NewFromInt(500)))
	got, err = repo.GetUser("user-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(500)))

	_, err = repo.GetUser("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// -----------------------------------------------------------------------------

func TestStockPriceUpdate(t *testing.T) {
	repo := newTestRepo(t)

	stock := &models.MStock{
		ID:            "stock-1",
		Symbol:        "AAPL",
		Name:          "Apple",
		CurrentPrice:  decimal.RequireFromString("175000.00"),
		PreviousClose: decimal.RequireFromString("173500.00"),
	}
	require.NoError(t, repo.CreateStock(stock))

	newPrice := decimal.RequireFromString("176234.12")
	require.NoError(t, repo.UpdateStockPrice("stock-1", newPrice, stock.CurrentPrice))

	got, err := repo.GetStock("stock-1")
	require.NoError(t, err)
	assert.True(t, got.CurrentPrice.Equal(newPrice))
	assert.True(t, got.PreviousClose.Equal(stock.CurrentPrice))

	bySymbol, err := repo.GetStockBySymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "stock-1", bySymbol.ID)
}

// -----------------------------------------------------------------------------

func TestPriceHistoryRetentionCap(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Now().Add(-200 * time.Minute)

	for i := 0; i < models.MaxHistoryPerStock+30; i++ {
		record := &models.MPriceHistory{
			ID:        fmt.Sprintf("h-%d", i),
			StockID:   "stock-1",
			Price:     decimal.NewFromInt(int64(100 + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.AppendPriceHistory(record))

		ledger, err := repo.GetPriceHistory("stock-1")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(ledger), models.MaxHistoryPerStock)
	}

	// The survivors are the newest 100, oldest first.
	ledger, err := repo.GetPriceHistory("stock-1")
	require.NoError(t, err)
	require.Len(t, ledger, models.MaxHistoryPerStock)
	assert.Equal(t, "h-30", ledger[0].ID)
	assert.Equal(t, "h-129", ledger[len(ledger)-1].ID)
}

// -----------------------------------------------------------------------------

func TestHoldingLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	holding := &models.MHolding{
		ID:           "holding-1",
		UserID:       "user-1",
		StockID:      "stock-1",
		Quantity:     10,
		AveragePrice: decimal.NewFromInt(100),
	}
	require.NoError(t, repo.CreateHolding(holding))

	got, err := repo.GetHolding("user-1", "stock-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)

	require.NoError(t, repo.UpdateHolding("holding-1", 20, decimal.NewFromInt(150)))
	got, err = repo.GetHolding("user-1", "stock-1")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Quantity)
	assert.True(t, got.AveragePrice.Equal(decimal.NewFromInt(150)))

	require.NoError(t, repo.DeleteHolding("holding-1"))
	_, err = repo.GetHolding("user-1", "stock-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// -----------------------------------------------------------------------------

func TestTransactionsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Now()

	for i := 0; i < 3; i++ {
		tx := &models.MTransaction{
			ID:        fmt.Sprintf("tx-%d", i),
			UserID:    "user-1",
			StockID:   "stock-1",
			Type:      models.TradeBuy,
			Quantity:  1,
			Price:     decimal.NewFromInt(100),
			Total:     decimal.NewFromInt(100),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.CreateTransaction(tx))
	}

	txs, err := repo.GetTransactions("user-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "tx-2", txs[0].ID)
	assert.Equal(t, "tx-0", txs[2].ID)
}

// -----------------------------------------------------------------------------

func TestSeedIdempotent(t *testing.T) {
	repo := newTestRepo(t)

	cfg := &models.MConfig{}
	cfg.Seed = models.MSeedConfig{
		Username:       "demo",
		Password:       "demo",
		InitialBalance: "10000000.00",
		HistoryDays:    30,
		Stocks: []models.MSeedStock{
			{Symbol: "AAPL", Name: "Apple", CurrentPrice: "175000.00", PreviousClose: "173500.00"},
			{Symbol: "TSLA", Name: "Tesla", CurrentPrice: "245000.00", PreviousClose: "248000.00"},
		},
	}
	log := logger.NewLogger("ERROR", "SeedTest")

	require.NoError(t, Seed(repo, cfg, log))
	require.NoError(t, Seed(repo, cfg, log))

	stocks, err := repo.GetAllStocks()
	require.NoError(t, err)
	assert.Len(t, stocks, 2)

	user, err := repo.GetUser(DefaultUserID)
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.RequireFromString("10000000.00")))

	for _, stock := range stocks {
		history, histErr := repo.GetPriceHistory(stock.ID)
		require.NoError(t, histErr)
		assert.Len(t, history, 30)
	}
}
