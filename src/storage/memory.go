package storage

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// ErrNotFound is returned by lookups that matched nothing.
var ErrNotFound = interfaces.ErrNotFound

// -----------------------------------------------------------------------------
// MemoryRepository keeps everything in guarded maps. The default backend;
// state does not survive a restart.
// -----------------------------------------------------------------------------

type MemoryRepository struct {
	Config *models.MConfig
	Logger *logger.Logger

	users        map[string]models.MUser
	stocks       map[string]models.MStock
	holdings     map[string]models.MHolding
	transactions map[string]models.MTransaction
	history      map[string][]models.MPriceHistory // stockID -> oldest first
	mu           sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryRepository(cfg *models.MConfig, log *logger.Logger) (*MemoryRepository, error) {
	return &MemoryRepository{
		Config:       cfg,
		Logger:       log,
		users:        make(map[string]models.MUser),
		stocks:       make(map[string]models.MStock),
		holdings:     make(map[string]models.MHolding),
		transactions: make(map[string]models.MTransaction),
		history:      make(map[string][]models.MPriceHistory),
	}, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) Initialize() error {
	r.Logger.Info("MemoryRepository initialized")
	return nil
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetUser(id string) (*models.MUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetUserByUsername(username string) (*models.MUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) CreateUser(user *models.MUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = *user
	return nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) UpdateUserBalance(userID string, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Balance = balance
	r.users[userID] = user
	return nil
}

// -----------------------------------------------------------------------------
// Stocks
// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetAllStocks() ([]models.MStock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stocks := make([]models.MStock, 0, len(r.stocks))
	for _, stock := range r.stocks {
		stocks = append(stocks, stock)
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].Symbol < stocks[j].Symbol })
	return stocks, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetStock(id string) (*models.MStock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stock, ok := r.stocks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &stock, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetStockBySymbol(symbol string) (*models.MStock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, stock := range r.stocks {
		if stock.Symbol == symbol {
			s := stock
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) CreateStock(stock *models.MStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stocks[stock.ID] = *stock
	return nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) UpdateStockPrice(id string, currentPrice, previousClose decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stock, ok := r.stocks[id]
	if !ok {
		return ErrNotFound
	}
	stock.CurrentPrice = currentPrice
	stock.PreviousClose = previousClose
	r.stocks[id] = stock
	return nil
}

// -----------------------------------------------------------------------------
// Price history
// -----------------------------------------------------------------------------

func (r *MemoryRepository) AppendPriceHistory(record *models.MPriceHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger := append(r.history[record.StockID], *record)

	// Prune the oldest records beyond the retention cap.
	if excess := len(ledger) - models.MaxHistoryPerStock; excess > 0 {
		ledger = append([]models.MPriceHistory(nil), ledger[excess:]...)
	}
	r.history[record.StockID] = ledger
	return nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetPriceHistory(stockID string) ([]models.MPriceHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger := r.history[stockID]
	out := make([]models.MPriceHistory, len(ledger))
	copy(out, ledger)
	return out, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetAllPriceHistory() ([]models.MPriceHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []models.MPriceHistory
	for _, ledger := range r.history {
		all = append(all, ledger...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all, nil
}

// -----------------------------------------------------------------------------
// Holdings
// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetHoldings(userID string) ([]models.MHolding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var holdings []models.MHolding
	for _, h := range r.holdings {
		if h.UserID == userID {
			holdings = append(holdings, h)
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].StockID < holdings[j].StockID })
	return holdings, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetHolding(userID, stockID string) (*models.MHolding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.holdings {
		if h.UserID == userID && h.StockID == stockID {
			holding := h
			return &holding, nil
		}
	}
	return nil, ErrNotFound
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) CreateHolding(holding *models.MHolding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.holdings[holding.ID] = *holding
	return nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) UpdateHolding(id string, quantity int, averagePrice decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	holding, ok := r.holdings[id]
	if !ok {
		return ErrNotFound
	}
	holding.Quantity = quantity
	holding.AveragePrice = averagePrice
	r.holdings[id] = holding
	return nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) DeleteHolding(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.holdings, id)
	return nil
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

func (r *MemoryRepository) GetTransactions(userID string) ([]models.MTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var txs []models.MTransaction
	for _, tx := range r.transactions {
		if tx.UserID == userID {
			txs = append(txs, tx)
		}
	}
	// Newest first, matching the API's transaction listing.
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) CreateTransaction(tx *models.MTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transactions[tx.ID] = *tx
	return nil
}

// -----------------------------------------------------------------------------

func (r *MemoryRepository) Close() error {
	return nil
}
