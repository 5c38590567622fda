package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"

	"depthsignal/config"
	"depthsignal/logger"
	"depthsignal/models"
)

// BybitAdapter fetches v5 linear order book snapshots from Bybit.
type BybitAdapter struct {
	cfg    config.BybitSourceConfig
	client *bybit.Client
	log    *logger.Log
}

// bybitOrderbookResult is the strict shape of the v5 orderbook result.
type bybitOrderbookResult struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
	Ts     int64      `json:"ts"`
}

// NewBybitAdapter creates the Bybit adapter on top of the official
// HTTP client with a tuned transport.
func NewBybitAdapter(cfg config.BybitSourceConfig, timeout time.Duration) *BybitAdapter {
	log := logger.GetLogger()

	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(cfg.URL))
	client.HTTPClient = newHTTPClient(cfg.ConnectionPool, timeout)

	log.WithComponent("bybit_adapter").WithFields(logger.Fields{
		"base_url":    cfg.URL,
		"depth_limit": cfg.DepthLimit,
	}).Info("bybit adapter initialized")

	return &BybitAdapter{cfg: cfg, client: client, log: log}
}

func (a *BybitAdapter) Name() string { return models.VenueBybit }

// Fetch retrieves and normalizes one order book snapshot.
func (a *BybitAdapter) Fetch(ctx context.Context, asset models.Asset) (*models.OrderBook, error) {
	symbol, ok := a.cfg.Symbols[string(asset)]
	if !ok {
		return nil, fmt.Errorf("no bybit symbol configured for %s", asset)
	}

	params := map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
		"limit":    a.cfg.DepthLimit,
	}

	start := time.Now()
	resp, err := a.client.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orderbook: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit returned code %d: %s", resp.RetCode, resp.RetMsg)
	}

	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal orderbook result: %w", err)
	}

	logger.LogDuration(a.log.WithComponent("bybit_adapter"), "bybit_adapter", "fetch_orderbook", time.Since(start), logger.Fields{
		"symbol": symbol,
	})

	return parseBybitOrderbook(payload, asset)
}

func parseBybitOrderbook(payload []byte, asset models.Asset) (*models.OrderBook, error) {
	var result bybitOrderbookResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode orderbook result: %w", err)
	}
	return buildBook(models.VenueBybit, asset, result.Bids, result.Asks)
}
