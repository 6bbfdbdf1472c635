package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stock-simulator/src/logger"
	"stock-simulator/src/models"
)

// -----------------------------------------------------------------------------
// AsyncNetworkManager performs HTTP GETs with bounded retries. Shared by
// every component that talks to an external API.
// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	client := &http.Client{
		Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
	}

	if len(cfg.Network.Proxies) > 0 {
		if proxyUrl, err := url.Parse(cfg.Network.Proxies[0]); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyUrl)}
		} else {
			log.Warning("invalid proxy %q, using direct connection: %v", cfg.Network.Proxies[0], err)
		}
	}

	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: client,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries. The context bounds the whole
// call; a cancelled context stops retrying immediately.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	maxRetries := nm.Config.Network.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := nm.doRequest(ctx, finalUrl)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		nm.Logger.Warning("GET %s failed (attempt %d/%d): %v", reqUrl.Host, attempt+1, maxRetries, err)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) doRequest(ctx context.Context, finalUrl string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalUrl, nil)
	if err != nil {
		return nil, err
	}

	if ua := nm.Config.Network.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
