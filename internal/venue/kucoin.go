package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"depthsignal/config"
	"depthsignal/logger"
	"depthsignal/models"
)

// KucoinAdapter fetches futures level2 snapshots from KuCoin. KuCoin
// throttles this endpoint aggressively, so requests pass through a
// local rate limiter.
type KucoinAdapter struct {
	cfg     config.KucoinSourceConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// kucoinDepthResponse is the strict shape of the level2 snapshot
// endpoint. KuCoin reports levels as numbers rather than strings.
type kucoinDepthResponse struct {
	Code string `json:"code"`
	Data struct {
		Sequence int64       `json:"sequence"`
		Bids     [][]float64 `json:"bids"`
		Asks     [][]float64 `json:"asks"`
	} `json:"data"`
}

// NewKucoinAdapter creates the KuCoin adapter with a tuned HTTP client.
func NewKucoinAdapter(cfg config.KucoinSourceConfig, timeout time.Duration) *KucoinAdapter {
	log := logger.GetLogger()

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	log.WithComponent("kucoin_adapter").WithFields(logger.Fields{
		"base_url":   cfg.URL,
		"rate_limit": rps,
	}).Info("kucoin adapter initialized")

	return &KucoinAdapter{
		cfg:     cfg,
		client:  newHTTPClient(cfg.ConnectionPool, timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}
}

func (a *KucoinAdapter) Name() string { return models.VenueKucoin }

// Fetch retrieves and normalizes one order book snapshot.
func (a *KucoinAdapter) Fetch(ctx context.Context, asset models.Asset) (*models.OrderBook, error) {
	symbol, ok := a.cfg.Symbols[string(asset)]
	if !ok {
		return nil, fmt.Errorf("no kucoin symbol configured for %s", asset)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL, err := url.Parse(a.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot URL: %w", err)
	}
	q := reqURL.Query()
	q.Set("symbol", symbol)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orderbook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from kucoin", resp.StatusCode)
	}

	var depth kucoinDepthResponse
	if err := json.NewDecoder(resp.Body).Decode(&depth); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if depth.Code != "200000" {
		return nil, fmt.Errorf("kucoin returned code %s", depth.Code)
	}

	logger.LogDuration(a.log.WithComponent("kucoin_adapter"), "kucoin_adapter", "fetch_orderbook", time.Since(start), logger.Fields{
		"symbol": symbol,
	})

	return buildBook(models.VenueKucoin, asset, stringifyLevels(depth.Data.Bids), stringifyLevels(depth.Data.Asks))
}

func stringifyLevels(raw [][]float64) [][]string {
	out := make([][]string, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			out = append(out, nil)
			continue
		}
		out = append(out, []string{
			strconv.FormatFloat(pair[0], 'f', -1, 64),
			strconv.FormatFloat(pair[1], 'f', -1, 64),
		})
	}
	return out
}
