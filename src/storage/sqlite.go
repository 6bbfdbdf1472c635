package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// SQLiteRepository persists the simulator in a local SQLite file. Prices
// are stored as fixed-point decimal strings.
// -----------------------------------------------------------------------------

type SQLiteRepository struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteRepository(cfg *models.MConfig, log *logger.Logger) (*SQLiteRepository, error) {
	return &SQLiteRepository{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) Initialize() error {
	db, err := sql.Open("sqlite", r.Config.Storage.DBPath)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	r.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		r.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		r.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return r.createTables()
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			balance TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stocks (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			current_price TEXT NOT NULL,
			previous_close TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS holdings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			stock_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			average_price TEXT NOT NULL,
			UNIQUE (user_id, stock_id)
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			stock_id TEXT NOT NULL,
			type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price TEXT NOT NULL,
			total TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id TEXT PRIMARY KEY,
			stock_id TEXT NOT NULL,
			price TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
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

func (r *SQLiteRepository) GetUser(id string) (*models.MUser, error) {
	row := r.DB.QueryRow(`SELECT id, username, password, balance FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) GetUserByUsername(username string) (*models.MUser, error) {
	row := r.DB.QueryRow(`SELECT id, username, password, balance FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) CreateUser(user *models.MUser) error {
	_, err := r.DB.Exec(
		`INSERT INTO users (id, username, password, balance) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.Password, user.Balance.StringFixed(2),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) UpdateUserBalance(userID string, balance decimal.Decimal) error {
	res, err := r.DB.Exec(`UPDATE users SET balance = ? WHERE id = ?`, balance.StringFixed(2), userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// -----------------------------------------------------------------------------
// Stocks
// -----------------------------------------------------------------------------

func (r *SQLiteRepository) GetAllStocks() ([]models.MStock, error) {
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

func (r *SQLiteRepository) GetStock(id string) (*models.MStock, error) {
	row := r.DB.QueryRow(`SELECT id, symbol, name, current_price, previous_close FROM stocks WHERE id = ?`, id)
	return scanStock(row)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) GetStockBySymbol(symbol string) (*models.MStock, error) {
	row := r.DB.QueryRow(`SELECT id, symbol, name, current_price, previous_close FROM stocks WHERE symbol = ?`, symbol)
	return scanStock(row)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) CreateStock(stock *models.MStock) error {
	_, err := r.DB.Exec(
		`INSERT INTO stocks (id, symbol, name, current_price, previous_close) VALUES (?, ?, ?, ?, ?)`,
		stock.ID, stock.Symbol, stock.Name,
		stock.CurrentPrice.StringFixed(2), stock.PreviousClose.StringFixed(2),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) UpdateStockPrice(id string, currentPrice, previousClose decimal.Decimal) error {
	res, err := r.DB.Exec(
		`UPDATE stocks SET current_price = ?, previous_close = ? WHERE id = ?`,
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

func (r *SQLiteRepository) AppendPriceHistory(record *models.MPriceHistory) error {
	_, err := r.DB.Exec(
		`INSERT INTO price_history (id, stock_id, price, timestamp) VALUES (?, ?, ?, ?)`,
		record.ID, record.StockID, record.Price.StringFixed(2), record.Timestamp.UTC(),
	)
	if err != nil {
		return err
	}

	// Enforce the retention cap: drop the oldest rows beyond the newest N.
	_, err = r.DB.Exec(
		`DELETE FROM price_history WHERE stock_id = ? AND id NOT IN (
			SELECT id FROM price_history WHERE stock_id = ?
			ORDER BY timestamp DESC LIMIT ?
		)`,
		record.StockID, record.StockID, models.MaxHistoryPerStock,
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) GetPriceHistory(stockID string) ([]models.MPriceHistory, error) {
	rows, err := r.DB.Query(
		`SELECT id, stock_id, price, timestamp FROM price_history WHERE stock_id = ? ORDER BY timestamp`,
		stockID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHistory(rows)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) GetAllPriceHistory() ([]models.MPriceHistory, error) {
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

func (r *SQLiteRepository) GetHoldings(userID string) ([]models.MHolding, error) {
	rows, err := r.DB.Query(
		`SELECT id, user_id, stock_id, quantity, average_price FROM holdings WHERE user_id = ? ORDER BY stock_id`,
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

func (r *SQLiteRepository) GetHolding(userID, stockID string) (*models.MHolding, error) {
	row := r.DB.QueryRow(
		`SELECT id, user_id, stock_id, quantity, average_price FROM holdings WHERE user_id = ? AND stock_id = ?`,
		userID, stockID,
	)
	return scanHolding(row)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) CreateHolding(holding *models.MHolding) error {
	_, err := r.DB.Exec(
		`INSERT INTO holdings (id, user_id, stock_id, quantity, average_price) VALUES (?, ?, ?, ?, ?)`,
		holding.ID, holding.UserID, holding.StockID, holding.Quantity, holding.AveragePrice.StringFixed(2),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) UpdateHolding(id string, quantity int, averagePrice decimal.Decimal) error {
	res, err := r.DB.Exec(
		`UPDATE holdings SET quantity = ?, average_price = ? WHERE id = ?`,
		quantity, averagePrice.StringFixed(2), id,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) DeleteHolding(id string) error {
	_, err := r.DB.Exec(`DELETE FROM holdings WHERE id = ?`, id)
	return err
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

func (r *SQLiteRepository) GetTransactions(userID string) ([]models.MTransaction, error) {
	rows, err := r.DB.Query(
		`SELECT id, user_id, stock_id, type, quantity, price, total, created_at
		 FROM transactions WHERE user_id = ? ORDER BY created_at DESC`,
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

func (r *SQLiteRepository) CreateTransaction(tx *models.MTransaction) error {
	_, err := r.DB.Exec(
		`INSERT INTO transactions (id, user_id, stock_id, type, quantity, price, total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.StockID, tx.Type, tx.Quantity,
		tx.Price.StringFixed(2), tx.Total.StringFixed(2), tx.CreatedAt.UTC(),
	)
	return err
}

// -----------------------------------------------------------------------------

func (r *SQLiteRepository) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// -----------------------------------------------------------------------------
// Row scanning shared with the Postgres backend
// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.MUser, error) {
	var user models.MUser
	var balance string
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &balance); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	user.Balance = parsed
	return &user, nil
}

func scanStock(row rowScanner) (*models.MStock, error) {
	var stock models.MStock
	var current, previous string
	if err := row.Scan(&stock.ID, &stock.Symbol, &stock.Name, &current, &previous); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if stock.CurrentPrice, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("corrupt price %q: %w", current, err)
	}
	if stock.PreviousClose, err = decimal.NewFromString(previous); err != nil {
		return nil, fmt.Errorf("corrupt price %q: %w", previous, err)
	}
	return &stock, nil
}

func scanHolding(row rowScanner) (*models.MHolding, error) {
	var holding models.MHolding
	var avg string
	if err := row.Scan(&holding.ID, &holding.UserID, &holding.StockID, &holding.Quantity, &avg); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsed, err := decimal.NewFromString(avg)
	if err != nil {
		return nil, fmt.Errorf("corrupt average price %q: %w", avg, err)
	}
	holding.AveragePrice = parsed
	return &holding, nil
}

func scanTransaction(row rowScanner) (*models.MTransaction, error) {
	var tx models.MTransaction
	var price, total string
	var createdAt time.Time
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.StockID, &tx.Type, &tx.Quantity, &price, &total, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price %q: %w", price, err)
	}
	if tx.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("corrupt total %q: %w", total, err)
	}
	tx.CreatedAt = createdAt
	return &tx, nil
}

func collectHistory(rows *sql.Rows) ([]models.MPriceHistory, error) {
	var records []models.MPriceHistory
	for rows.Next() {
		var record models.MPriceHistory
		var price string
		if err := rows.Scan(&record.ID, &record.StockID, &price, &record.Timestamp); err != nil {
			return nil, err
		}
		parsed, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("corrupt price %q: %w", price, err)
		}
		record.Price = parsed
		records = append(records, record)
	}
	return records, rows.Err()
}

func requireRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
