package interfaces

import (
	"errors"

	"stock-simulator/src/models"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by every repository for a missing record,
// regardless of backend.
var ErrNotFound = errors.New("record not found")

// -----------------------------------------------------------------------------
// IRepository defines the contract for the persistence backend. The price
// updater mutates stocks and history exclusively; the trade ledger mutates
// users, holdings and transactions exclusively.
// -----------------------------------------------------------------------------

type IRepository interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the backing store (schema, seed data).
	Initialize() error

	// -----------------------------------------------------------------------------
	// Users

	GetUser(id string) (*models.MUser, error)
	GetUserByUsername(username string) (*models.MUser, error)
	CreateUser(user *models.MUser) error
	UpdateUserBalance(userID string, balance decimal.Decimal) error

	// -----------------------------------------------------------------------------
	// Stocks

	GetAllStocks() ([]models.MStock, error)
	GetStock(id string) (*models.MStock, error)
	GetStockBySymbol(symbol string) (*models.MStock, error)
	CreateStock(stock *models.MStock) error

	// UpdateStockPrice overwrites the current price and the rolling
	// previous close for one stock.
	UpdateStockPrice(id string, currentPrice, previousClose decimal.Decimal) error

	// -----------------------------------------------------------------------------
	// Price history

	// AppendPriceHistory inserts one record and prunes the oldest rows
	// beyond models.MaxHistoryPerStock for that stock.
	AppendPriceHistory(record *models.MPriceHistory) error

	// GetPriceHistory returns a stock's ledger ordered oldest first.
	GetPriceHistory(stockID string) ([]models.MPriceHistory, error)

	// GetAllPriceHistory returns every retained record across stocks.
	GetAllPriceHistory() ([]models.MPriceHistory, error)

	// -----------------------------------------------------------------------------
	// Holdings

	GetHoldings(userID string) ([]models.MHolding, error)
	GetHolding(userID, stockID string) (*models.MHolding, error)
	CreateHolding(holding *models.MHolding) error
	UpdateHolding(id string, quantity int, averagePrice decimal.Decimal) error
	DeleteHolding(id string) error

	// -----------------------------------------------------------------------------
	// Transactions

	GetTransactions(userID string) ([]models.MTransaction, error)
	CreateTransaction(tx *models.MTransaction) error

	// -----------------------------------------------------------------------------

	// Close releases the underlying store.
	Close() error
}
