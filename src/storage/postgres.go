package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"stock-simulator/src/helpers"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// PostgresRepository persists the simulator in Postgres. Money columns are
// NUMERIC and scanned through their decimal string form.
// -----------------------------------------------------------------------------

type PostgresRepository struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresRepository(cfg *models.MConfig, log *logger.Logger) (*PostgresRepository, error) {
	return &PostgresRepository{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) Initialize() error {
	db, err := sql.Open("postgres", r.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	// The database may still be coming up when we are.
	if _, err := helpers.RetryWithBackoff("postgres ping", 3, time.Second, func() (interface{}, error) {
		return nil, db.Ping()
	}); err != nil {
		return err
	}

	r.DB = db

	if err := r.createTables(); err != nil {
		return err
	}

	r.Logger.Info("PostgresRepository initialized successfully")
	return nil
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			balance NUMERIC(15,2) NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stocks (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			current_price NUMERIC(12,2) NOT NULL,
			previous_close NUMERIC(12,2) NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS holdings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			stock_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			average_price NUMERIC(12,2) NOT NULL,
			UNIQUE (user_id, stock_id)
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			stock_id TEXT NOT NULL,
			type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			total NUMERIC(15,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id TEXT PRIMARY KEY,
			stock_id TEXT NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_stock ON price_history (stock_id, timestamp);`,
	}

	for _, stmt := range statements {
		if _, err := r.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetUser(id string) (*models.MUser, error) {
	row := r.DB.QueryRow(`SELECT id, username, password, balance FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetUserByUsername(username string) (*models.MUser, error) {
	row := r.DB.QueryRow(`SELECT id, username, password, balance FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) CreateUser(user *models.MUser) error {
	_, err := r.DB.Exec(
		`INSERT INTO users (id, username, password, balance) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.Password, user.Balance.StringFixed(2),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) UpdateUserBalance(userID string, balance decimal.Decimal) error {
	res, err := r.DB.Exec(`UPDATE users SET balance = $1 WHERE id = $2`, balance.StringFixed(2), userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// -----------------------------------------------------------------------------
// Stocks
// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetAllStocks() ([]models.MStock, error) {
	rows, err := r.DB.Query(`SELECT id, symbol, name, current_price, previous_close FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []models.MStock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, *stock)
	}
	return stocks, rows.Err()
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetStock(id string) (*models.MStock, error) {
	row := r.DB.QueryRow(`SELECT id, symbol, name, current_price, previous_close FROM stocks WHERE id = $1`, id)
	return scanStock(row)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetStockBySymbol(symbol string) (*models.MStock, error) {
	row := r.DB.QueryRow(`SELECT id, symbol, name, current_price, previous_close FROM stocks WHERE symbol = $1`, symbol)
	return scanStock(row)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) CreateStock(stock *models.MStock) error {
	_, err := r.DB.Exec(
		`INSERT INTO stocks (id, symbol, name, current_price, previous_close) VALUES ($1, $2, $3, $4, $5)`,
		stock.ID, stock.Symbol, stock.Name,
		stock.CurrentPrice.StringFixed(2), stock.PreviousClose.StringFixed(2),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) UpdateStockPrice(id string, currentPrice, previousClose decimal.Decimal) error {
	res, err := r.DB.Exec(
		`UPDATE stocks SET current_price = $1, previous_close = $2 WHERE id = $3`,
		currentPrice.StringFixed(2), previousClose.StringFixed(2), id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// -----------------------------------------------------------------------------
// Price history
// -----------------------------------------------------------------------------

func (r *PostgresRepository) AppendPriceHistory(record *models.MPriceHistory) error {
	_, err := r.DB.Exec(
		`INSERT INTO price_history (id, stock_id, price, timestamp) VALUES ($1, $2, $3, $4)`,
		record.ID, record.StockID, record.Price.StringFixed(2), record.Timestamp.UTC(),
	)
	if err != nil {
		return err
	}

	_, err = r.DB.Exec(
		`DELETE FROM price_history WHERE stock_id = $1 AND id NOT IN (
			SELECT id FROM price_history WHERE stock_id = $1
			ORDER BY timestamp DESC LIMIT $2
		)`,
		record.StockID, models.MaxHistoryPerStock,
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetPriceHistory(stockID string) ([]models.MPriceHistory, error) {
	rows, err := r.DB.Query(
		`SELECT id, stock_id, price, timestamp FROM price_history WHERE stock_id = $1 ORDER BY timestamp`,
		stockID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHistory(rows)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetAllPriceHistory() ([]models.MPriceHistory, error) {
	rows, err := r.DB.Query(`SELECT id, stock_id, price, timestamp FROM price_history ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHistory(rows)
}

// -----------------------------------------------------------------------------
// Holdings
// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetHoldings(userID string) ([]models.MHolding, error) {
	rows, err := r.DB.Query(
		`SELECT id, user_id, stock_id, quantity, average_price FROM holdings WHERE user_id = $1 ORDER BY stock_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.MHolding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *holding)
	}
	return holdings, rows.Err()
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetHolding(userID, stockID string) (*models.MHolding, error) {
	row := r.DB.QueryRow(
		`SELECT id, user_id, stock_id, quantity, average_price FROM holdings WHERE user_id = $1 AND stock_id = $2`,
		userID, stockID,
	)
	return scanHolding(row)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) CreateHolding(holding *models.MHolding) error {
	_, err := r.DB.Exec(
		`INSERT INTO holdings (id, user_id, stock_id, quantity, average_price) VALUES ($1, $2, $3, $4, $5)`,
		holding.ID, holding.UserID, holding.StockID, holding.Quantity, holding.AveragePrice.StringFixed(2),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) UpdateHolding(id string, quantity int, averagePrice decimal.Decimal) error {
	res, err := r.DB.Exec(
		`UPDATE holdings SET quantity = $1, average_price = $2 WHERE id = $3`,
		quantity, averagePrice.StringFixed(2), id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) DeleteHolding(id string) error {
	_, err := r.DB.Exec(`DELETE FROM holdings WHERE id = $1`, id)
	return err
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

func (r *PostgresRepository) GetTransactions(userID string) ([]models.MTransaction, error) {
	rows, err := r.DB.Query(
		`SELECT id, user_id, stock_id, type, quantity, price, total, created_at
		 FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.MTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) CreateTransaction(tx *models.MTransaction) error {
	_, err := r.DB.Exec(
		`INSERT INTO transactions (id, user_id, stock_id, type, quantity, price, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.UserID, tx.StockID, tx.Type, tx.Quantity,
		tx.Price.StringFixed(2), tx.Total.StringFixed(2), tx.CreatedAt.UTC(),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *PostgresRepository) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
