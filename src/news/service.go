package news

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// Service maintains a rolling window of synthetic news items with sentiment
// and impact scores. On each access, if the feed is stale it probabilistically
// synthesizes one new item, then prunes to the newest N and drops anything
// older than the window. ImpactOf aggregates a symbol's items into a bounded
// scalar the price updater blends into hybrid pricing.
// -----------------------------------------------------------------------------

type Service struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	symbols []string

	items      []models.MNewsItem
	lastUpdate time.Time
	mu         sync.Mutex

	now  func() time.Time
	rand *rand.Rand
}

// -----------------------------------------------------------------------------

func NewService(cfg *models.MConfig, symbols []string, log *logger.Logger) *Service {
	s := &Service{
		Config:  cfg,
		Logger:  log,
		symbols: symbols,
		now:     time.Now,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.seedInitialNews()
	return s
}

// -----------------------------------------------------------------------------

// SetClock replaces the feed clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetRand replaces the random source. Test hook.
func (s *Service) SetRand(r *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rand = r
}

// -----------------------------------------------------------------------------

// seedInitialNews populates the feed with one plausible item per known
// symbol, spread over the last several hours.
func (s *Service) seedInitialNews() {
	seeds := []struct {
		title     string
		summary   string
		sentiment string
		impact    float64
	}{
		{"New product lineup draws strong pre-orders", "Analysts expect the announcement to lift near-term revenue.", models.SentimentPositive, 0.3},
		{"Overseas sales surge past expectations", "Monthly deliveries grew by double digits compared to last month.", models.SentimentPositive, 0.4},
		{"Cloud division misses growth targets", "Quarterly results for the cloud unit came in below consensus.", models.SentimentNegative, -0.2},
		{"Major AI investment announced", "The company committed further capital to its AI platform.", models.SentimentPositive, 0.25},
		{"E-commerce share continues to expand", "Market share gains are expected to continue into next quarter.", models.SentimentPositive, 0.15},
		{"Chip demand outlook weakens", "Softening demand may weigh on semiconductor revenue.", models.SentimentNegative, -0.3},
	}

	now := s.now()
	for i, symbol := range s.symbols {
		seed := seeds[i%len(seeds)]
		s.items = append(s.items, models.MNewsItem{
			ID:        fmt.Sprintf("news-%d", i+1),
			Title:     seed.title,
			Summary:   seed.summary,
			Sentiment: seed.sentiment,
			Impact:    seed.impact,
			Timestamp: now.Add(-time.Duration(float64(i*2)+s.rand.Float64()*2) * time.Hour),
			Symbols:   []string{symbol},
		})
	}
	s.lastUpdate = now
}

// -----------------------------------------------------------------------------

// LatestNews returns a fresh snapshot of current items, newest first.
// An empty symbol returns all items.
func (s *Service) LatestNews(symbol string) []models.MNewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()

	result := make([]models.MNewsItem, 0, len(s.items))
	for i := range s.items {
		if symbol == "" || s.items[i].Mentions(symbol) {
			result = append(result, s.items[i])
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return result
}

// -----------------------------------------------------------------------------

// ImpactOf returns the average impact of the symbol's items within the
// trailing window, clamped to the configured bound. Zero without
// qualifying items.
func (s *Service) ImpactOf(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-time.Duration(s.Config.News.WindowHours) * time.Hour)

	total := 0.0
	count := 0
	for i := range s.items {
		if s.items[i].Mentions(symbol) && s.items[i].Timestamp.After(cutoff) {
			total += s.items[i].Impact
			count++
		}
	}

	if count == 0 {
		return 0
	}

	avg := total / float64(count)
	clamp := s.Config.News.ImpactClamp
	if avg > clamp {
		return clamp
	}
	if avg < -clamp {
		return -clamp
	}
	return avg
}

// -----------------------------------------------------------------------------

// refreshLocked runs the opportunistic update policy: after the refresh
// period, maybe synthesize one item, then prune. Caller holds the mutex.
func (s *Service) refreshLocked() {
	now := s.now()
	refresh := time.Duration(s.Config.News.RefreshSeconds) * time.Second
	if now.Sub(s.lastUpdate) <= refresh {
		return
	}

	if s.rand.Float64() < s.Config.News.NewItemChance && len(s.symbols) > 0 {
		sentiment := models.SentimentPositive
		if s.rand.Float64() > 0.5 {
			sentiment = models.SentimentNegative
		}

		item := models.MNewsItem{
			ID:        uuid.NewString(),
			Title:     randomTitles[s.rand.Intn(len(randomTitles))],
			Summary:   "Market analysts expect the development to move the share price.",
			Sentiment: sentiment,
			Impact:    (s.rand.Float64() - 0.5) * 2 * s.Config.News.MaxImpact,
			Timestamp: now,
			Symbols:   []string{s.symbols[s.rand.Intn(len(s.symbols))]},
		}

		s.items = append([]models.MNewsItem{item}, s.items...)
		s.Logger.Info("New news: %s (%s)", item.Title, item.Sentiment)
	}

	s.pruneLocked(now)
	s.lastUpdate = now
}

// -----------------------------------------------------------------------------

// pruneLocked keeps the newest MaxItems and drops anything older than the
// retention window. Caller holds the mutex.
func (s *Service) pruneLocked(now time.Time) {
	sort.Slice(s.items, func(i, j int) bool {
		return s.items[i].Timestamp.After(s.items[j].Timestamp)
	})

	if len(s.items) > s.Config.News.MaxItems {
		s.items = s.items[:s.Config.News.MaxItems]
	}

	cutoff := now.Add(-time.Duration(s.Config.News.WindowHours) * time.Hour)
	kept := s.items[:0]
	for _, item := range s.items {
		if item.Timestamp.After(cutoff) {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// -----------------------------------------------------------------------------

var randomTitles = []string{
	"Earnings release expected to move share price",
	"New product launch draws market attention",
	"Company gains edge over competitors",
	"Market volatility raises concerns over share price",
	"Policy changes expected to affect the sector",
}
