package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// Ledger executes trades and derives portfolio views. Every trade is priced
// at the stock's current price, which only moves at updater ticks, so the
// execution price is always the last tick's price.
// -----------------------------------------------------------------------------

// Trade rejection reasons. The messages double as API error payloads.
var (
	ErrInsufficientBalance = errors.New("Insufficient balance")
	ErrNotOwned            = errors.New("You don't own this stock")
	ErrInsufficientShares  = errors.New("Insufficient shares")
	ErrInvalidQuantity     = errors.New("Quantity must be greater than 0")
	ErrInvalidTradeType    = errors.New("Invalid transaction type")
)

type Ledger struct {
	Config *models.MConfig
	Logger *logger.Logger
	Repo   interfaces.IRepository

	// tradeMu serializes trades. Balance check and debit must be atomic
	// with respect to other trades on the same account.
	tradeMu sync.Mutex

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewLedger(cfg *models.MConfig, log *logger.Logger, repo interfaces.IRepository) *Ledger {
	return &Ledger{
		Config: cfg,
		Logger: log,
		Repo:   repo,
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// -----------------------------------------------------------------------------

// ExecuteTrade buys or sells whole shares at the stock's current price.
// Rejected trades leave balance, holdings and transactions untouched.
func (l *Ledger) ExecuteTrade(userID, stockID string, quantity int, tradeType string) (*models.MTransaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	l.tradeMu.Lock()
	defer l.tradeMu.Unlock()

	user, err := l.Repo.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	stock, err := l.Repo.GetStock(stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}

	price := stock.CurrentPrice
	total := price.Mul(decimal.NewFromInt(int64(quantity)))

	switch tradeType {
	case models.TradeBuy:
		err = l.executeBuy(user, stock, quantity, price, total)
	case models.TradeSell:
		err = l.executeSell(user, stock, quantity, total)
	default:
		return nil, ErrInvalidTradeType
	}
	if err != nil {
		return nil, err
	}

	tx := &models.MTransaction{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		StockID:   stock.ID,
		Type:      tradeType,
		Quantity:  quantity,
		Price:     price,
		Total:     total,
		CreatedAt: l.now(),
	}
	if err := l.Repo.CreateTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	l.Logger.Info("Trade executed: %s %d x %s @ %s (total %s)",
		tradeType, quantity, stock.Symbol, price.StringFixed(2), total.StringFixed(2))
	return tx, nil
}

// -----------------------------------------------------------------------------

// executeBuy debits the account and folds the purchase into the holding's
// weighted average cost.
func (l *Ledger) executeBuy(user *models.MUser, stock *models.MStock, quantity int, price, total decimal.Decimal) error {
	if user.Balance.LessThan(total) {
		return ErrInsufficientBalance
	}

	if err := l.Repo.UpdateUserBalance(user.ID, user.Balance.Sub(total)); err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	holding, err := l.Repo.GetHolding(user.ID, stock.ID)
	switch {
	case err == nil:
		newQuantity := holding.Quantity + quantity
		spent := holding.AveragePrice.Mul(decimal.NewFromInt(int64(holding.Quantity))).Add(total)
		newAverage := spent.Div(decimal.NewFromInt(int64(newQuantity))).Round(2)
		if err := l.Repo.UpdateHolding(holding.ID, newQuantity, newAverage); err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}
	case isNotFound(err):
		created := &models.MHolding{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			StockID:      stock.ID,
			Quantity:     quantity,
			AveragePrice: price,
		}
		if err := l.Repo.CreateHolding(created); err != nil {
			return fmt.Errorf("failed to create holding: %w", err)
		}
	default:
		return fmt.Errorf("failed to load holding: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// executeSell credits the proceeds and decrements the position, deleting the
// holding row when it reaches zero. The average price never changes on sell.
func (l *Ledger) executeSell(user *models.MUser, stock *models.MStock, quantity int, total decimal.Decimal) error {
	holding, err := l.Repo.GetHolding(user.ID, stock.ID)
	if isNotFound(err) {
		return ErrNotOwned
	}
	if err != nil {
		return fmt.Errorf("failed to load holding: %w", err)
	}
	if holding.Quantity < quantity {
		return ErrInsufficientShares
	}

	if err := l.Repo.UpdateUserBalance(user.ID, user.Balance.Add(total)); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	if holding.Quantity == quantity {
		if err := l.Repo.DeleteHolding(holding.ID); err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
	} else {
		if err := l.Repo.UpdateHolding(holding.ID, holding.Quantity-quantity, holding.AveragePrice); err != nil {
			return fmt.Errorf("failed to update holding: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// HoldingDetails returns the user's positions enriched with their stock and
// unrealized P&L at the last tick's price.
func (l *Ledger) HoldingDetails(userID string) ([]models.MHoldingDetail, error) {
	holdings, err := l.Repo.GetHoldings(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	details := make([]models.MHoldingDetail, 0, len(holdings))
	for _, holding := range holdings {
		stock, stockErr := l.Repo.GetStock(holding.StockID)
		if stockErr != nil {
			return nil, fmt.Errorf("failed to load stock %s: %w", holding.StockID, stockErr)
		}

		qty := decimal.NewFromInt(int64(holding.Quantity))
		currentValue := stock.CurrentPrice.Mul(qty)
		profitLoss := stock.CurrentPrice.Sub(holding.AveragePrice).Mul(qty)
		profitLossPercent := decimal.Zero
		if !holding.AveragePrice.IsZero() {
			profitLossPercent = stock.CurrentPrice.Sub(holding.AveragePrice).
				Div(holding.AveragePrice).Mul(decimal.NewFromInt(100)).Round(2)
		}

		details = append(details, models.MHoldingDetail{
			MHolding:          holding,
			Stock:             *stock,
			CurrentValue:      currentValue,
			ProfitLoss:        profitLoss,
			ProfitLossPercent: profitLossPercent,
		})
	}
	return details, nil
}

// -----------------------------------------------------------------------------

// TransactionDetails returns the user's trades, newest first, enriched with
// their stock.
func (l *Ledger) TransactionDetails(userID string) ([]models.MTransactionDetail, error) {
	transactions, err := l.Repo.GetTransactions(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	details := make([]models.MTransactionDetail, 0, len(transactions))
	for _, tx := range transactions {
		stock, stockErr := l.Repo.GetStock(tx.StockID)
		if stockErr != nil {
			return nil, fmt.Errorf("failed to load stock %s: %w", tx.StockID, stockErr)
		}
		details = append(details, models.MTransactionDetail{
			MTransaction: tx,
			Stock:        *stock,
		})
	}
	return details, nil
}

// -----------------------------------------------------------------------------

// Stats aggregates cash plus holdings value against the configured initial
// balance.
func (l *Ledger) Stats(userID string) (*models.MPortfolioStats, error) {
	user, err := l.Repo.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	holdings, err := l.Repo.GetHoldings(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	holdingsValue := decimal.Zero
	totalCost := decimal.Zero
	for _, holding := range holdings {
		stock, stockErr := l.Repo.GetStock(holding.StockID)
		if stockErr != nil {
			continue
		}
		qty := decimal.NewFromInt(int64(holding.Quantity))
		holdingsValue = holdingsValue.Add(stock.CurrentPrice.Mul(qty))
		totalCost = totalCost.Add(holding.AveragePrice.Mul(qty))
	}

	initialBalance, err := decimal.NewFromString(l.Config.Seed.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid initial balance %q: %w", l.Config.Seed.InitialBalance, err)
	}

	totalValue := user.Balance.Add(holdingsValue)
	totalProfitLoss := totalValue.Sub(initialBalance)
	totalProfitLossPercent := decimal.Zero
	if initialBalance.IsPositive() {
		totalProfitLossPercent = totalProfitLoss.Div(initialBalance).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &models.MPortfolioStats{
		TotalValue:             totalValue,
		TotalCost:              totalCost,
		TotalProfitLoss:        totalProfitLoss,
		TotalProfitLossPercent: totalProfitLossPercent,
		CashBalance:            user.Balance,
	}, nil
}

// -----------------------------------------------------------------------------

// History condenses all retained price history into one averaged point per
// calendar day, oldest first.
func (l *Ledger) History() ([]models.MPortfolioHistoryPoint, error) {
	records, err := l.Repo.GetAllPriceHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	type bucket struct {
		firstID string
		day     time.Time
		sum     decimal.Decimal
		count   int64
	}
	buckets := make(map[string]*bucket)

	for _, record := range records {
		day := record.Timestamp.Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{firstID: record.ID, day: day, sum: decimal.Zero}
			buckets[key] = b
		}
		b.sum = b.sum.Add(record.Price)
		b.count++
	}

	points := make([]models.MPortfolioHistoryPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, models.MPortfolioHistoryPoint{
			ID:        b.firstID,
			StockID:   "portfolio",
			Price:     b.sum.Div(decimal.NewFromInt(b.count)).Round(2),
			Timestamp: b.day,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

// -----------------------------------------------------------------------------

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, interfaces.ErrNotFound)
}
