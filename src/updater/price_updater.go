package updater

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// PriceUpdater recomputes every stock's price on a fixed interval. Each stock
// is priced from a real quote when the provider has one, otherwise from a
// bounded random walk nudged by news sentiment. One failing stock never stops
// the rest of the cycle.
// -----------------------------------------------------------------------------

type PriceUpdater struct {
	Config *models.MConfig
	Logger *logger.Logger

	Repo   interfaces.IRepository
	Market interfaces.IMarketData
	News   interfaces.INewsFeed
	Cache  interfaces.ICache

	mu         sync.Mutex
	isRunning  atomic.Bool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// cycleMu serializes cycles so a manual trigger never interleaves
	// with a scheduled one.
	cycleMu    sync.Mutex
	cycleCount atomic.Int64

	// onTick receives the summary of every completed cycle.
	onTick func(models.MTickSummary)

	now    func() time.Time
	randMu sync.Mutex
	random *rand.Rand
}

// -----------------------------------------------------------------------------

func NewPriceUpdater(
	cfg *models.MConfig,
	log *logger.Logger,
	repo interfaces.IRepository,
	market interfaces.IMarketData,
	news interfaces.INewsFeed,
	cache interfaces.ICache,
) *PriceUpdater {
	return &PriceUpdater{
		Config: cfg,
		Logger: log,
		Repo:   repo,
		Market: market,
		News:   news,
		Cache:  cache,
		now:    time.Now,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// -----------------------------------------------------------------------------

// OnTick registers the cycle summary callback. Must be called before Start.
func (u *PriceUpdater) OnTick(fn func(models.MTickSummary)) {
	u.onTick = fn
}

// SetClock overrides the time source.
func (u *PriceUpdater) SetClock(now func() time.Time) {
	u.now = now
}

// SetRand overrides the randomness source.
func (u *PriceUpdater) SetRand(r *rand.Rand) {
	u.randMu.Lock()
	defer u.randMu.Unlock()
	u.random = r
}

// -----------------------------------------------------------------------------

// IsRunning reports whether the scheduler loop is active.
func (u *PriceUpdater) IsRunning() bool {
	return u.isRunning.Load()
}

// CycleCount returns the number of completed update cycles.
func (u *PriceUpdater) CycleCount() int64 {
	return u.cycleCount.Load()
}

// -----------------------------------------------------------------------------

// Start runs one cycle immediately, then keeps updating on the configured
// interval. Calling Start on a running updater is a logged no-op.
func (u *PriceUpdater) Start(parentCtx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.isRunning.Load() {
		u.Logger.Warning("PriceUpdater is already running, ignoring Start")
		return nil
	}

	ctx, cancel := context.WithCancel(parentCtx)
	u.ctx = ctx
	u.cancelFunc = cancel
	u.isRunning.Store(true)

	u.wg.Add(1)
	go u.runLoop(ctx)

	u.Logger.Info("Started PriceUpdater (interval: %ds)", u.Config.Updater.IntervalSeconds)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the loop to exit and waits for it. An in-flight cycle runs to
// completion. Stopping a stopped updater is a no-op.
func (u *PriceUpdater) Stop() error {
	u.mu.Lock()

	if !u.isRunning.Load() {
		u.mu.Unlock()
		return nil
	}

	if u.cancelFunc != nil {
		u.cancelFunc()
	}
	u.isRunning.Store(false)
	u.mu.Unlock()

	u.wg.Wait()
	u.Logger.Info("Stopped PriceUpdater")
	return nil
}

// -----------------------------------------------------------------------------

// UpdateNow runs one cycle synchronously, serialized against scheduled
// cycles. It works whether or not the scheduler is running.
func (u *PriceUpdater) UpdateNow(ctx context.Context) (models.MTickSummary, error) {
	return u.runCycle(ctx)
}

// -----------------------------------------------------------------------------

func (u *PriceUpdater) runLoop(ctx context.Context) {
	defer u.wg.Done()

	// First cycle fires immediately so the app never waits a full
	// interval for initial prices.
	if _, err := u.runCycle(ctx); err != nil {
		u.Logger.Error("Initial update cycle failed: %v", err)
	}

	ticker := time.NewTicker(time.Duration(u.Config.Updater.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := u.runCycle(ctx); err != nil {
				u.Logger.Error("Update cycle failed: %v", err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// runCycle recomputes every stock once, then invalidates the derived cache
// namespaces so readers see the new prices.
func (u *PriceUpdater) runCycle(ctx context.Context) (models.MTickSummary, error) {
	u.cycleMu.Lock()
	defer u.cycleMu.Unlock()

	started := u.now()
	cycle := u.cycleCount.Add(1)

	stocks, err := u.Repo.GetAllStocks()
	if err != nil {
		return models.MTickSummary{}, fmt.Errorf("failed to load stocks: %w", err)
	}

	updates := make([]models.MStockUpdate, 0, len(stocks))
	var updatesMu sync.Mutex
	failed := 0
	var failedMu sync.Mutex

	var wg sync.WaitGroup
	sem := make(chan struct{}, u.concurrency())

	for _, stock := range stocks {
		wg.Add(1)
		go func(s models.MStock) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			update, updErr := u.updateOneStock(ctx, s)
			if updErr != nil {
				u.Logger.Error("Failed to update %s: %v", s.Symbol, updErr)
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				return
			}

			updatesMu.Lock()
			updates = append(updates, update)
			updatesMu.Unlock()
		}(stock)
	}
	wg.Wait()

	// Prices moved, so every cached read of stocks, holdings and
	// portfolio aggregates is stale now.
	u.Cache.DeletePattern("^stocks:")
	u.Cache.DeletePattern("^holdings:")
	u.Cache.DeletePattern("^portfolio:")

	elapsed := u.now().Sub(started).Seconds()
	u.Logger.Info("Update cycle %d done: %d updated, %d failed (%.2fs)",
		cycle, len(updates), failed, elapsed)

	summary := models.MTickSummary{
		Type:      "TICK",
		Updated:   len(updates),
		Failed:    failed,
		Updates:   updates,
		Timestamp: started,
		Elapsed:   elapsed,
	}

	if u.onTick != nil {
		u.onTick(summary)
	}
	return summary, nil
}

// -----------------------------------------------------------------------------

// updateOneStock prices one stock and persists the result. The old current
// price becomes the new previous close, and one history record is appended.
func (u *PriceUpdater) updateOneStock(ctx context.Context, stock models.MStock) (models.MStockUpdate, error) {
	oldPrice := stock.CurrentPrice

	newPrice, source, impact := u.computePrice(ctx, stock)

	if err := u.Repo.UpdateStockPrice(stock.ID, newPrice, oldPrice); err != nil {
		return models.MStockUpdate{}, fmt.Errorf("failed to persist price for %s: %w", stock.Symbol, err)
	}

	record := &models.MPriceHistory{
		ID:        uuid.NewString(),
		StockID:   stock.ID,
		Price:     newPrice,
		Timestamp: u.now(),
	}
	if err := u.Repo.AppendPriceHistory(record); err != nil {
		return models.MStockUpdate{}, fmt.Errorf("failed to record history for %s: %w", stock.Symbol, err)
	}

	change := newPrice.Sub(oldPrice)
	changePercent := decimal.Zero
	if !oldPrice.IsZero() {
		changePercent = change.Div(oldPrice).Mul(decimal.NewFromInt(100)).Round(2)
	}

	u.Logger.Info("%s: %s -> %s (%s, %s%%) [%s]",
		stock.Symbol, oldPrice.StringFixed(2), newPrice.StringFixed(2),
		change.StringFixed(2), changePercent.StringFixed(2), source)

	return models.MStockUpdate{
		StockID:       stock.ID,
		Symbol:        stock.Symbol,
		OldPrice:      oldPrice.StringFixed(2),
		NewPrice:      newPrice.StringFixed(2),
		Change:        change.StringFixed(2),
		ChangePercent: changePercent.StringFixed(2),
		NewsImpact:    impact,
		Source:        source,
	}, nil
}

// -----------------------------------------------------------------------------

// computePrice prefers a real provider quote converted through the exchange
// rate. Without one it applies a bounded random move plus the news impact to
// the last price. A provider error counts as "no quote".
func (u *PriceUpdater) computePrice(ctx context.Context, stock models.MStock) (decimal.Decimal, string, float64) {
	impact := u.News.ImpactOf(stock.Symbol)

	quote, err := u.Market.Quote(ctx, u.Market.TranslateSymbol(stock.Symbol))
	if err != nil {
		u.Logger.Warning("Quote lookup failed for %s, falling back to simulation: %v", stock.Symbol, err)
		quote = nil
	}

	if quote != nil && quote.Price > 0 {
		converted := decimal.NewFromFloat(quote.Price).
			Mul(decimal.NewFromFloat(u.Config.MarketData.ExchangeRate)).
			Round(2)
		return converted, models.SourceReal, impact
	}

	u.randMu.Lock()
	randomChange := (u.random.Float64() - 0.5) * 2 * u.Config.Updater.MaxChangePercent
	u.randMu.Unlock()

	totalPercent := randomChange + impact*100
	newPrice := stock.CurrentPrice.
		Mul(decimal.NewFromFloat(1 + totalPercent/100)).
		Round(2)
	return newPrice, models.SourceHybrid, impact
}

// -----------------------------------------------------------------------------

func (u *PriceUpdater) concurrency() int {
	if u.Config.Updater.ConcurrentUpdates > 0 {
		return u.Config.Updater.ConcurrentUpdates
	}
	return 1
}
