package grpc_control

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"

	"stock-simulator/src/cache"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
	"stock-simulator/src/news"
	"stock-simulator/src/storage"
	"stock-simulator/src/updater"
)

// -----------------------------------------------------------------------------

type noQuotes struct{}

func (noQuotes) Quote(context.Context, string) (*models.MQuote, error) { return nil, nil }
func (noQuotes) QuoteAll(context.Context, []string) (map[string]models.MQuote, error) {
	return map[string]models.MQuote{}, nil
}
func (noQuotes) TranslateSymbol(symbol string) string { return symbol }

func newControlFixture(t *testing.T) *ControlService {
	t.Helper()

	cfg := &models.MConfig{}
	cfg.Updater.IntervalSeconds = 300
	cfg.Updater.MaxChangePercent = 3
	cfg.Updater.ConcurrentUpdates = 2
	cfg.Cache.DefaultTTLSeconds = 300
	cfg.Cache.MaxSize = 100
	cfg.Cache.MaxMemoryBytes = 1 << 20
	cfg.News.MaxItems = 20
	cfg.News.WindowHours = 24
	cfg.News.RefreshSeconds = 600
	cfg.News.ImpactClamp = 0.05

	log := logger.NewLogger("ERROR", "ControlTest")

	repo, err := storage.NewMemoryRepository(cfg, log)
	require.NoError(t, err)
	require.NoError(t, repo.Initialize())
	require.NoError(t, repo.CreateStock(&models.MStock{
		ID: "s-1", Symbol: "AAPL", Name: "Apple",
		CurrentPrice:  decimal.RequireFromString("175000.00"),
		PreviousClose: decimal.RequireFromString("173500.00"),
	}))

	c := cache.NewMemoryCache(cfg.Cache, log)
	feed := news.NewService(cfg, []string{"AAPL"}, log)
	upd := updater.NewPriceUpdater(cfg, log, repo, noQuotes{}, feed, c)

	return NewControlService(cfg, log, upd, c)
}

// -----------------------------------------------------------------------------

func TestTriggerUpdateReturnsCycleSummary(t *testing.T) {
	svc := newControlFixture(t)

	resp, err := svc.TriggerUpdate(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)

	fields := resp.AsMap()
	assert.Equal(t, "TICK", fields["type"])
	assert.Equal(t, float64(1), fields["updated"])
	assert.Equal(t, float64(0), fields["failed"])
}

// -----------------------------------------------------------------------------

func TestStatusReflectsUpdaterState(t *testing.T) {
	svc := newControlFixture(t)

	resp, err := svc.GetStatus(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, false, resp.AsMap()["running"])

	_, err = svc.StartUpdater(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	defer svc.Updater.Stop()

	resp, err = svc.GetStatus(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, true, resp.AsMap()["running"])
}

// -----------------------------------------------------------------------------

func TestStartStopUpdaterAreGuarded(t *testing.T) {
	svc := newControlFixture(t)

	// Stopping a stopped updater is refused, not an error.
	resp, err := svc.StopUpdater(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, false, resp.AsMap()["success"])

	resp, err = svc.StartUpdater(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, true, resp.AsMap()["success"])

	resp, err = svc.StartUpdater(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, false, resp.AsMap()["success"])

	resp, err = svc.StopUpdater(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, true, resp.AsMap()["success"])
}
