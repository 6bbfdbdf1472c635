package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
	"stock-simulator/src/portfolio"
	"stock-simulator/src/storage"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	Repo   interfaces.IRepository
	Cache  interfaces.ICache
	News   interfaces.INewsFeed
	Ledger *portfolio.Ledger

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MTickSummary
	register   chan *Client
	unregister chan *Client

	// Last completed tick, replayed to clients on connect
	lastTick   *models.MTickSummary
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(
	cfg *models.MConfig,
	log *logger.Logger,
	repo interfaces.IRepository,
	cache interfaces.ICache,
	news interfaces.INewsFeed,
	ledger *portfolio.Ledger,
) *APIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config: cfg,
		Logger: log,
		engine: gin.Default(),
		Repo:   repo,
		Cache:  cache,
		News:   news,
		Ledger: ledger,

		clients: make(map[*Client]struct{}),
		// Buffered so a slow hub never blocks the updater
		broadcast:  make(chan models.MTickSummary, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	s.engine.Use(corsMiddleware())
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	s.engine.GET("/api/user", s.getUser)
	s.engine.GET("/api/stocks", s.getStocks)
	s.engine.GET("/api/stocks/:id", s.getStock)
	s.engine.GET("/api/stocks/:id/history", s.getStockHistory)
	s.engine.GET("/api/holdings", s.getHoldings)
	s.engine.GET("/api/transactions", s.getTransactions)
	s.engine.GET("/api/portfolio/stats", s.getPortfolioStats)
	s.engine.GET("/api/portfolio/history", s.getPortfolioHistory)
	s.engine.GET("/api/news", s.getNews)
	s.engine.POST("/api/trade", s.postTrade)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting API server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Cache read-through
// -----------------------------------------------------------------------------

// cached serves a response out of the cache, computing and storing it on a
// miss. The updater invalidates these namespaces after every tick.
func (s *APIServer) cached(c *gin.Context, key string, compute func() (interface{}, error)) {
	if value, ok := s.Cache.Get(key); ok {
		c.JSON(200, value)
		return
	}

	value, err := compute()
	if err != nil {
		s.Logger.Error("Handler failed for %s: %v", key, err)
		c.JSON(500, gin.H{"message": "Internal server error"})
		return
	}

	s.Cache.Set(key, value, 0)
	c.JSON(200, value)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getUser(c *gin.Context) {
	user, err := s.Repo.GetUser(storage.DefaultUserID)
	if errors.Is(err, interfaces.ErrNotFound) {
		c.JSON(404, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(200, user)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStocks(c *gin.Context) {
	s.cached(c, "stocks:all", func() (interface{}, error) {
		return s.Repo.GetAllStocks()
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStock(c *gin.Context) {
	id := c.Param("id")

	key := "stocks:" + id
	if value, ok := s.Cache.Get(key); ok {
		c.JSON(200, value)
		return
	}

	stock, err := s.Repo.GetStock(id)
	if errors.Is(err, interfaces.ErrNotFound) {
		c.JSON(404, gin.H{"message": "Stock not found"})
		return
	}
	if err != nil {
		c.JSON(500, gin.H{"message": "Internal server error"})
		return
	}

	s.Cache.Set(key, stock, 0)
	c.JSON(200, stock)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStockHistory(c *gin.Context) {
	id := c.Param("id")
	s.cached(c, "stocks:"+id+":history", func() (interface{}, error) {
		return s.Repo.GetPriceHistory(id)
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHoldings(c *gin.Context) {
	s.cached(c, "holdings:"+storage.DefaultUserID, func() (interface{}, error) {
		return s.Ledger.HoldingDetails(storage.DefaultUserID)
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getTransactions(c *gin.Context) {
	transactions, err := s.Ledger.TransactionDetails(storage.DefaultUserID)
	if err != nil {
		s.Logger.Error("Failed to load transactions: %v", err)
		c.JSON(500, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(200, transactions)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getPortfolioStats(c *gin.Context) {
	s.cached(c, "portfolio:stats:"+storage.DefaultUserID, func() (interface{}, error) {
		return s.Ledger.Stats(storage.DefaultUserID)
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getPortfolioHistory(c *gin.Context) {
	s.cached(c, "portfolio:history", func() (interface{}, error) {
		return s.Ledger.History()
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getNews(c *gin.Context) {
	c.JSON(200, s.News.LatestNews(c.Query("symbol")))
}

// -----------------------------------------------------------------------------

type tradeRequest struct {
	StockID  string `json:"stockId"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
}

func (s *APIServer) postTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"message": "Missing required fields"})
		return
	}
	if req.StockID == "" || req.Quantity == 0 || req.Type == "" {
		c.JSON(400, gin.H{"message": "Missing required fields"})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(400, gin.H{"message": "Quantity must be greater than 0"})
		return
	}

	tx, err := s.Ledger.ExecuteTrade(storage.DefaultUserID, req.StockID, req.Quantity, req.Type)
	switch {
	case err == nil:
		// Balances and positions moved
		s.Cache.DeletePattern("^holdings:")
		s.Cache.DeletePattern("^portfolio:")

		message := "Purchase successful"
		if tx.Type == models.TradeSell {
			message = "Sale successful"
		}
		c.JSON(200, gin.H{"message": message, "transaction": tx})

	case errors.Is(err, portfolio.ErrInsufficientBalance),
		errors.Is(err, portfolio.ErrNotOwned),
		errors.Is(err, portfolio.ErrInsufficientShares),
		errors.Is(err, portfolio.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrInvalidTradeType):
		c.JSON(400, gin.H{"message": err.Error()})

	case errors.Is(err, interfaces.ErrNotFound):
		c.JSON(404, gin.H{"message": "User or stock not found"})

	default:
		s.Logger.Error("Trade failed: %v", err)
		c.JSON(500, gin.H{"message": "Internal server error"})
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	var lastUpdate time.Time
	if s.lastTick != nil {
		lastUpdate = s.lastTick.Timestamp
	}
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": lastUpdate,
		"cache":         s.Cache.Stats(),
	})
}
