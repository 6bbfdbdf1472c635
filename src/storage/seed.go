package storage

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// DefaultUserID is the simulator's single demo account.
const DefaultUserID = "user-1"

// -----------------------------------------------------------------------------

// Seed populates the repository with the demo user, the configured stock
// universe and a synthetic price history for each stock. Existing records
// are left untouched, so seeding is idempotent across restarts.
func Seed(repo interfaces.IRepository, cfg *models.MConfig, log *logger.Logger) error {
	if err := seedUser(repo, cfg); err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	seeded := 0
	for _, seedStock := range cfg.Seed.Stocks {
		created, err := seedOneStock(repo, cfg, seedStock)
		if err != nil {
			return fmt.Errorf("failed to seed stock %s: %w", seedStock.Symbol, err)
		}
		if created {
			seeded++
		}
	}

	log.Info("Seeding complete: %d of %d stocks created", seeded, len(cfg.Seed.Stocks))
	return nil
}

// -----------------------------------------------------------------------------

func seedUser(repo interfaces.IRepository, cfg *models.MConfig) error {
	if _, err := repo.GetUser(DefaultUserID); err == nil {
		return nil
	}

	balance, err := decimal.NewFromString(cfg.Seed.InitialBalance)
	if err != nil {
		return fmt.Errorf("invalid initial balance %q: %w", cfg.Seed.InitialBalance, err)
	}

	username := cfg.Seed.Username
	if username == "" {
		username = "demo"
	}
	password := cfg.Seed.Password
	if password == "" {
		password = "demo"
	}

	return repo.CreateUser(&models.MUser{
		ID:       DefaultUserID,
		Username: username,
		Password: password,
		Balance:  balance,
	})
}

// -----------------------------------------------------------------------------

func seedOneStock(repo interfaces.IRepository, cfg *models.MConfig, seed models.MSeedStock) (bool, error) {
	if _, err := repo.GetStockBySymbol(seed.Symbol); err == nil {
		return false, nil
	}

	currentPrice, err := decimal.NewFromString(seed.CurrentPrice)
	if err != nil {
		return false, fmt.Errorf("invalid current price %q: %w", seed.CurrentPrice, err)
	}

	previousClose := currentPrice
	if seed.PreviousClose != "" {
		previousClose, err = decimal.NewFromString(seed.PreviousClose)
		if err != nil {
			return false, fmt.Errorf("invalid previous close %q: %w", seed.PreviousClose, err)
		}
	}

	stock := &models.MStock{
		ID:            uuid.NewString(),
		Symbol:        seed.Symbol,
		Name:          seed.Name,
		CurrentPrice:  currentPrice,
		PreviousClose: previousClose,
	}
	if err := repo.CreateStock(stock); err != nil {
		return false, err
	}

	// One synthetic observation per day, within +-5% of the seed price.
	now := time.Now()
	base, _ := currentPrice.Float64()
	for i := cfg.Seed.HistoryDays - 1; i >= 0; i-- {
		variance := (rand.Float64() - 0.5) * base * 0.1
		price := decimal.NewFromFloat(base + variance).Round(2)

		record := &models.MPriceHistory{
			ID:        uuid.NewString(),
			StockID:   stock.ID,
			Price:     price,
			Timestamp: now.AddDate(0, 0, -i),
		}
		if err := repo.AppendPriceHistory(record); err != nil {
			return false, err
		}
	}

	return true, nil
}
