package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"stock-simulator/src/cache"
	"stock-simulator/src/config"
	"stock-simulator/src/grpc_control"
	"stock-simulator/src/helpers"
	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/market_data"
	"stock-simulator/src/network"
	"stock-simulator/src/news"
	"stock-simulator/src/portfolio"
	"stock-simulator/src/server"
	"stock-simulator/src/storage"
	"stock-simulator/src/updater"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Storage backend, selected by config
	var repo interfaces.IRepository

	switch cfg.Storage.DBType {
	case "postgres":
		repo, err = storage.NewPostgresRepository(cfg.MConfig, appLogger)
	case "sqlite":
		repo, err = storage.NewSQLiteRepository(cfg.MConfig, appLogger)
	default:
		repo, err = storage.NewMemoryRepository(cfg.MConfig, appLogger)
	}
	if err != nil {
		appLogger.Critical("Failed to init storage: %v", err)
	}

	errHandler := helpers.NewErrorHandler(cfg.LogLevel)
	if _, err := errHandler.ExecuteWithRetry("database initialize", func() (interface{}, error) {
		return nil, repo.Initialize()
	}, 3); err != nil {
		appLogger.Critical("Failed to initialize storage: %v", err)
	}
	defer repo.Close()

	// 3. Demo account and stock universe
	if err := storage.Seed(repo, cfg.MConfig, appLogger); err != nil {
		appLogger.Critical("Failed to seed storage: %v", err)
	}

	// 4. Core components
	var netMgr interfaces.INetworkManager = network.NewAsyncNetworkManager(cfg.MConfig, appLogger)
	var market interfaces.IMarketData = market_data.NewAlphaVantageSource(cfg.MConfig, netMgr, appLogger)
	var responseCache interfaces.ICache = cache.NewMemoryCache(cfg.Cache, appLogger)

	stocks, err := repo.GetAllStocks()
	if err != nil {
		appLogger.Critical("Failed to load stocks: %v", err)
	}
	symbols := make([]string, 0, len(stocks))
	for _, s := range stocks {
		symbols = append(symbols, s.Symbol)
	}

	var feed interfaces.INewsFeed = news.NewService(cfg.MConfig, symbols, appLogger)
	ledger := portfolio.NewLedger(cfg.MConfig, appLogger, repo)
	priceUpdater := updater.NewPriceUpdater(cfg.MConfig, appLogger, repo, market, feed, responseCache)

	// 5. API server, fed by the updater's tick summaries
	apiServer := server.NewAPIServer(cfg.MConfig, appLogger, repo, responseCache, feed, ledger)
	priceUpdater.OnTick(apiServer.Broadcast)

	go func() {
		if err := apiServer.Start(); err != nil {
			appLogger.Error("API server failed: %v", err)
		}
	}()

	// 6. gRPC control plane
	grpcServer := grpc.NewServer()
	controlService := grpc_control.NewControlService(cfg.MConfig, logger.NewLogger(cfg.LogLevel, "ControlService"), priceUpdater, responseCache)
	grpc_control.RegisterControlServer(grpcServer, controlService)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
		lis, lisErr := net.Listen("tcp", addr)
		if lisErr != nil {
			appLogger.Error("Failed to listen on %s: %v", addr, lisErr)
			return
		}
		appLogger.Info("gRPC control listening on %s", addr)
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			appLogger.Error("gRPC server failed: %v", serveErr)
		}
	}()

	// 7. Start the price engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic sweep of expired cache entries. Lazy expiry on read is
	// authoritative, this just keeps the accounting tight.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := responseCache.Cleanup(); removed > 0 {
					appLogger.Debug("Cache cleanup removed %d expired entries", removed)
				}
			}
		}
	}()

	if err := priceUpdater.Start(ctx); err != nil {
		appLogger.Critical("Failed to start price updater: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	priceUpdater.Stop()
	grpcServer.GracefulStop()
	apiServer.Stop()
}
