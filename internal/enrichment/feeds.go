package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"

	appconfig "depthsignal/config"
	"depthsignal/logger"
	"depthsignal/models"
)

// FundingRate is the current mark price and funding rate of a
// perpetual contract.
type FundingRate struct {
	Symbol          string    `json:"symbol"`
	MarkPrice       float64   `json:"markPrice"`
	Rate            float64   `json:"rate"`
	NextFundingTime time.Time `json:"nextFundingTime"`
}

// OpenInterest is the outstanding contract volume of a perpetual.
type OpenInterest struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

// LongShortRatio is the global account long/short split.
type LongShortRatio struct {
	Symbol       string  `json:"symbol"`
	Ratio        float64 `json:"ratio"`
	LongAccount  float64 `json:"longAccount"`
	ShortAccount float64 `json:"shortAccount"`
}

// MetalPrice is a spot precious-metal quote.
type MetalPrice struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	UpdatedAt string  `json:"updatedAt"`
}

// MarketIndex is the fear-and-greed style macro sentiment reading.
type MarketIndex struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

// OnchainStats is the slow-moving chain health summary.
type OnchainStats struct {
	MarketPriceUSD    float64 `json:"marketPriceUsd"`
	HashRate          float64 `json:"hashRate"`
	MinersRevenueUSD  float64 `json:"minersRevenueUsd"`
	TotalTransactions int64   `json:"totalTransactions"`
}

// Service resolves the peripheral feeds through the shared TTL cache.
// Fast feeds refresh every minute, the on-chain feed hourly; a failed
// refresh falls back to the last cached value when one exists.
type Service struct {
	cfg     appconfig.EnrichmentConfig
	symbols map[string]string
	binance *futures.Client
	httpc   *http.Client
	cache   *Cache
	log     *logger.Log
}

// NewService wires the enrichment fetchers. The Binance futures client
// carries the derivative feeds the same way the venue adapter does.
func NewService(cfg appconfig.EnrichmentConfig, source appconfig.BinanceSourceConfig, timeout time.Duration) *Service {
	client := futures.NewClient("", "")
	client.HTTPClient = &http.Client{Timeout: timeout}
	client.SetApiEndpoint(source.URL)

	return &Service{
		cfg:     cfg,
		symbols: source.Symbols,
		binance: client,
		httpc:   &http.Client{Timeout: timeout},
		cache:   NewCache(),
		log:     logger.GetLogger(),
	}
}

// Snapshot resolves every feed concurrently and returns whatever could
// be served, fresh or stale. Feeds that have never succeeded are
// reported as null.
func (s *Service) Snapshot(ctx context.Context) map[string]interface{} {
	out := make(map[string]interface{})
	var mu sync.Mutex
	var wg sync.WaitGroup

	store := func(key string, value interface{}) {
		mu.Lock()
		out[key] = value
		mu.Unlock()
	}

	for _, asset := range models.Assets {
		asset := asset
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := s.FundingRate(ctx, asset)
			store("funding_"+string(asset), v)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := s.OpenInterest(ctx, asset)
			store("open_interest_"+string(asset), v)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := s.LongShortRatio(ctx, asset)
			store("long_short_"+string(asset), v)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, _ := s.Metals(ctx)
		store("metals", v)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, _ := s.MarketIndex(ctx)
		store("market_index", v)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, _ := s.OnchainStats(ctx)
		store("onchain", v)
	}()

	wg.Wait()
	return out
}

// FundingRate serves the premium index feed for one asset.
func (s *Service) FundingRate(ctx context.Context, asset models.Asset) (*FundingRate, error) {
	key := "funding:" + string(asset)
	value, err := s.readThrough(ctx, key, s.cfg.FastTTL, func(ctx context.Context) (interface{}, error) {
		return s.fetchFundingRate(ctx, asset)
	})
	if value == nil {
		return nil, err
	}
	return value.(*FundingRate), err
}

// OpenInterest serves the open interest feed for one asset.
func (s *Service) OpenInterest(ctx context.Context, asset models.Asset) (*OpenInterest, error) {
	key := "open_interest:" + string(asset)
	value, err := s.readThrough(ctx, key, s.cfg.FastTTL, func(ctx context.Context) (interface{}, error) {
		return s.fetchOpenInterest(ctx, asset)
	})
	if value == nil {
		return nil, err
	}
	return value.(*OpenInterest), err
}

// LongShortRatio serves the global long/short account feed.
func (s *Service) LongShortRatio(ctx context.Context, asset models.Asset) (*LongShortRatio, error) {
	key := "long_short:" + string(asset)
	value, err := s.readThrough(ctx, key, s.cfg.FastTTL, func(ctx context.Context) (interface{}, error) {
		return s.fetchLongShortRatio(ctx, asset)
	})
	if value == nil {
		return nil, err
	}
	return value.(*LongShortRatio), err
}

// Metals serves the precious metals quote.
func (s *Service) Metals(ctx context.Context) (*MetalPrice, error) {
	value, err := s.readThrough(ctx, "metals", s.cfg.FastTTL, s.fetchMetals)
	if value == nil {
		return nil, err
	}
	return value.(*MetalPrice), err
}

// MarketIndex serves the macro sentiment index.
func (s *Service) MarketIndex(ctx context.Context) (*MarketIndex, error) {
	value, err := s.readThrough(ctx, "market_index", s.cfg.FastTTL, s.fetchMarketIndex)
	if value == nil {
		return nil, err
	}
	return value.(*MarketIndex), err
}

// OnchainStats serves the hourly chain statistics.
func (s *Service) OnchainStats(ctx context.Context) (*OnchainStats, error) {
	value, err := s.readThrough(ctx, "onchain", s.cfg.OnchainTTL, s.fetchOnchainStats)
	if value == nil {
		return nil, err
	}
	return value.(*OnchainStats), err
}

// readThrough returns the fresh cached value, refetching on a stale
// miss. A failed refetch falls back to the last cached value; when
// none exists the error surfaces to the caller.
func (s *Service) readThrough(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	if value, ok := s.cache.Get(key); ok {
		return value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		s.log.WithComponent("enrichment").WithError(err).WithFields(logger.Fields{
			"feed": key,
		}).Warn("feed refresh failed")
		if stale, ok := s.cache.GetStale(key); ok {
			return stale, nil
		}
		return nil, err
	}

	s.cache.Put(key, value, ttl)
	return value, nil
}

func (s *Service) fetchFundingRate(ctx context.Context, asset models.Asset) (interface{}, error) {
	symbol, ok := s.symbols[string(asset)]
	if !ok {
		return nil, fmt.Errorf("no symbol configured for %s", asset)
	}

	var raw struct {
		Symbol          string `json:"symbol"`
		MarkPrice       string `json:"markPrice"`
		LastFundingRate string `json:"lastFundingRate"`
		NextFundingTime int64  `json:"nextFundingTime"`
	}
	url := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", s.binance.BaseURL, symbol)
	if err := s.getJSON(ctx, s.binance.HTTPClient, url, &raw); err != nil {
		return nil, err
	}

	mark, err := strconv.ParseFloat(raw.MarkPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid mark price %q: %w", raw.MarkPrice, err)
	}
	rate, err := strconv.ParseFloat(raw.LastFundingRate, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid funding rate %q: %w", raw.LastFundingRate, err)
	}

	return &FundingRate{
		Symbol:          raw.Symbol,
		MarkPrice:       mark,
		Rate:            rate,
		NextFundingTime: time.Unix(0, raw.NextFundingTime*int64(time.Millisecond)),
	}, nil
}

func (s *Service) fetchOpenInterest(ctx context.Context, asset models.Asset) (interface{}, error) {
	symbol, ok := s.symbols[string(asset)]
	if !ok {
		return nil, fmt.Errorf("no symbol configured for %s", asset)
	}

	var raw struct {
		Symbol       string `json:"symbol"`
		OpenInterest string `json:"openInterest"`
	}
	url := fmt.Sprintf("%s/fapi/v1/openInterest?symbol=%s", s.binance.BaseURL, symbol)
	if err := s.getJSON(ctx, s.binance.HTTPClient, url, &raw); err != nil {
		return nil, err
	}

	value, err := strconv.ParseFloat(raw.OpenInterest, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid open interest %q: %w", raw.OpenInterest, err)
	}
	return &OpenInterest{Symbol: raw.Symbol, Value: value}, nil
}

func (s *Service) fetchLongShortRatio(ctx context.Context, asset models.Asset) (interface{}, error) {
	symbol, ok := s.symbols[string(asset)]
	if !ok {
		return nil, fmt.Errorf("no symbol configured for %s", asset)
	}

	var raw []struct {
		Symbol         string `json:"symbol"`
		LongShortRatio string `json:"longShortRatio"`
		LongAccount    string `json:"longAccount"`
		ShortAccount   string `json:"shortAccount"`
	}
	url := fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?symbol=%s&period=5m&limit=1", s.binance.BaseURL, symbol)
	if err := s.getJSON(ctx, s.binance.HTTPClient, url, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty long/short response for %s", symbol)
	}

	ratio, err := strconv.ParseFloat(raw[0].LongShortRatio, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ratio %q: %w", raw[0].LongShortRatio, err)
	}
	long, _ := strconv.ParseFloat(raw[0].LongAccount, 64)
	short, _ := strconv.ParseFloat(raw[0].ShortAccount, 64)

	return &LongShortRatio{
		Symbol:       raw[0].Symbol,
		Ratio:        ratio,
		LongAccount:  long,
		ShortAccount: short,
	}, nil
}

func (s *Service) fetchMetals(ctx context.Context) (interface{}, error) {
	var raw struct {
		Name      string  `json:"name"`
		Price     float64 `json:"price"`
		UpdatedAt string  `json:"updatedAt"`
	}
	if err := s.getJSON(ctx, s.httpc, s.cfg.MetalsURL, &raw); err != nil {
		return nil, err
	}
	return &MetalPrice{Name: raw.Name, Price: raw.Price, UpdatedAt: raw.UpdatedAt}, nil
}

func (s *Service) fetchMarketIndex(ctx context.Context) (interface{}, error) {
	var raw struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := s.getJSON(ctx, s.httpc, s.cfg.IndexURL, &raw); err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("empty market index response")
	}
	value, err := strconv.Atoi(raw.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("invalid index value %q: %w", raw.Data[0].Value, err)
	}
	return &MarketIndex{Value: value, Classification: raw.Data[0].Classification}, nil
}

func (s *Service) fetchOnchainStats(ctx context.Context) (interface{}, error) {
	var raw struct {
		MarketPriceUSD   float64 `json:"market_price_usd"`
		HashRate         float64 `json:"hash_rate"`
		MinersRevenueUSD float64 `json:"miners_revenue_usd"`
		NTx              int64   `json:"n_tx"`
	}
	if err := s.getJSON(ctx, s.httpc, s.cfg.OnchainURL, &raw); err != nil {
		return nil, err
	}
	return &OnchainStats{
		MarketPriceUSD:    raw.MarketPriceUSD,
		HashRate:          raw.HashRate,
		MinersRevenueUSD:  raw.MinersRevenueUSD,
		TotalTransactions: raw.NTx,
	}, nil
}

func (s *Service) getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
