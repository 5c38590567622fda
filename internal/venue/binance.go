package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	"depthsignal/config"
	"depthsignal/logger"
	"depthsignal/models"
)

// BinanceAdapter fetches futures order book snapshots from Binance.
type BinanceAdapter struct {
	cfg    config.BinanceSourceConfig
	client *futures.Client
	log    *logger.Log
}

// binanceDepthResponse is the strict shape of the depth endpoint.
type binanceDepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// NewBinanceAdapter creates the Binance adapter using the binance-go
// client with a tuned HTTP transport.
func NewBinanceAdapter(cfg config.BinanceSourceConfig, timeout time.Duration) *BinanceAdapter {
	log := logger.GetLogger()

	client := futures.NewClient("", "")
	client.HTTPClient = newHTTPClient(cfg.ConnectionPool, timeout)
	client.SetApiEndpoint(cfg.URL)

	log.WithComponent("binance_adapter").WithFields(logger.Fields{
		"base_url":    cfg.URL,
		"depth_limit": cfg.DepthLimit,
	}).Info("binance adapter initialized")

	return &BinanceAdapter{cfg: cfg, client: client, log: log}
}

func (a *BinanceAdapter) Name() string { return models.VenueBinance }

// Fetch retrieves and normalizes one order book snapshot.
func (a *BinanceAdapter) Fetch(ctx context.Context, asset models.Asset) (*models.OrderBook, error) {
	symbol, ok := a.cfg.Symbols[string(asset)]
	if !ok {
		return nil, fmt.Errorf("no binance symbol configured for %s", asset)
	}

	reqURL := fmt.Sprintf("%s/fapi/v1/depth?symbol=%s&limit=%d", a.cfg.URL, symbol, a.cfg.DepthLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := a.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orderbook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from binance", resp.StatusCode)
	}

	var depth binanceDepthResponse
	if err := json.NewDecoder(resp.Body).Decode(&depth); err != nil {
		return nil, fmt.Errorf("failed to decode orderbook: %w", err)
	}

	logger.LogDuration(a.log.WithComponent("binance_adapter"), "binance_adapter", "fetch_orderbook", time.Since(start), logger.Fields{
		"symbol": symbol,
	})

	return buildBook(models.VenueBinance, asset, depth.Bids, depth.Asks)
}

func buildBook(venue string, asset models.Asset, rawBids, rawAsks [][]string) (*models.OrderBook, error) {
	bids, err := parseStringLevels(rawBids)
	if err != nil {
		return nil, fmt.Errorf("%s bids: %w", venue, err)
	}
	asks, err := parseStringLevels(rawAsks)
	if err != nil {
		return nil, fmt.Errorf("%s asks: %w", venue, err)
	}

	book := &models.OrderBook{
		Venue:     venue,
		Asset:     asset,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().UTC(),
	}
	sortBook(book)
	return book, nil
}
