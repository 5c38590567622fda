// Package venue normalizes raw exchange order books into the canonical
// form the aggregation pipeline consumes. Every adapter converts its
// failures into an error return; nothing raises past this boundary.
package venue

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"depthsignal/config"
	"depthsignal/models"
)

// Adapter fetches and parses one venue's order book for an asset.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, asset models.Asset) (*models.OrderBook, error)
}

// newHTTPClient builds the tuned transport shared by the adapters.
func newHTTPClient(pool config.ConnectionPoolConfig, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
		DisableCompression:  false,
		DialContext:         (&net.Dialer{}).DialContext,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// parseStringLevels converts [price, size] string pairs into validated
// price levels. Zero-size placeholders are dropped; anything that does
// not parse fails the whole book.
func parseStringLevels(raw [][]string) ([]models.PriceLevel, error) {
	levels := make([]models.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			return nil, fmt.Errorf("malformed level %v", pair)
		}
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level price %q: %w", pair[0], err)
		}
		size, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level size %q: %w", pair[1], err)
		}
		if price <= 0 {
			return nil, fmt.Errorf("non-positive level price %v", price)
		}
		if size <= 0 {
			continue
		}
		levels = append(levels, models.PriceLevel{Price: price, Size: size})
	}
	return levels, nil
}

// sortBook enforces the canonical ordering: bids best-first descending,
// asks best-first ascending.
func sortBook(book *models.OrderBook) {
	sort.SliceStable(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.SliceStable(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
}
