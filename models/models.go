package models

import (
	"time"
)

// Asset identifies one of the tracked markets.
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
)

// Assets lists every tracked asset in a fixed order.
var Assets = []Asset{AssetBTC, AssetETH}

// Venue identifiers. Exactly these three sources feed the engine.
const (
	VenueBinance = "binance"
	VenueBybit   = "bybit"
	VenueKucoin  = "kucoin"
)

// Venues lists the venue identifiers in a fixed order.
var Venues = []string{VenueBinance, VenueBybit, VenueKucoin}

// Order side literals.
const (
	SideBid = "BID"
	SideAsk = "ASK"
)

// Signal action literals.
const (
	ActionLong  = "LONG"
	ActionShort = "SHORT"
	ActionWait  = "WAIT"
)

// Consensus signal literals (NEUTRAL is shared with trend).
const (
	ConsensusLong    = "LONG"
	ConsensusShort   = "SHORT"
	ConsensusNeutral = "NEUTRAL"
)

// Trend literals.
const (
	TrendBullish = "BULLISH"
	TrendBearish = "BEARISH"
	TrendNeutral = "NEUTRAL"
)

// Support level type literals.
const (
	LevelWall    = "wall"
	LevelRound   = "round"
	LevelCluster = "cluster"
)

// AssetParams holds the per-asset tuning constants used across the
// analysis pipeline.
type AssetParams struct {
	// WhaleThreshold is the minimum single-order size, in base units,
	// for an order to count as a whale.
	WhaleThreshold float64
	// LevelBucket is the price rounding bucket for support/resistance
	// clustering.
	LevelBucket float64
	// SizeUnit scales the size component of a level score.
	SizeUnit float64
	// RoundMultiple marks psychologically round prices.
	RoundMultiple float64
}

var assetParams = map[Asset]AssetParams{
	AssetBTC: {WhaleThreshold: 5, LevelBucket: 100, SizeUnit: 10, RoundMultiple: 1000},
	AssetETH: {WhaleThreshold: 50, LevelBucket: 10, SizeUnit: 100, RoundMultiple: 100},
}

// ParamsFor returns the tuning constants for an asset. Unknown assets
// fall back to the BTC parameters.
func ParamsFor(asset Asset) AssetParams {
	if p, ok := assetParams[asset]; ok {
		return p
	}
	return assetParams[AssetBTC]
}

// PriceLevel is a single price level of an order book side.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook is the canonical normalized order book for one venue and
// asset. Bids are sorted best-first descending, asks best-first
// ascending; sizes are strictly positive.
type OrderBook struct {
	Venue     string       `json:"venue"`
	Asset     Asset        `json:"asset"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// ExchangeData is the per-venue snapshot derived from one order book.
// Recomputed every cycle, never stored across cycles.
type ExchangeData struct {
	Venue     string    `json:"venue"`
	Price     float64   `json:"price"`
	Imbalance float64   `json:"imbalance"`
	BidDepth  float64   `json:"bidDepth"`
	AskDepth  float64   `json:"askDepth"`
	Timestamp time.Time `json:"timestamp"`
}

// WhaleOrder is a single abnormally large resting order.
type WhaleOrder struct {
	Venue string  `json:"venue"`
	Side  string  `json:"side"`
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// SupportLevel is a scored support or resistance price bucket
// clustered across venues.
type SupportLevel struct {
	Price         float64 `json:"price"`
	Strength      float64 `json:"strength"`
	Type          string  `json:"type"`
	TotalSize     float64 `json:"totalSize"`
	ExchangeCount int     `json:"exchangeCount"`
	IsRoundNumber bool    `json:"isRoundNumber"`
}

// WhaleConsensus aggregates whale orders across venues into a
// directional bias.
type WhaleConsensus struct {
	Signal        string  `json:"signal"`
	TotalBidSize  float64 `json:"totalBidSize"`
	TotalAskSize  float64 `json:"totalAskSize"`
	BidOrderCount int     `json:"bidOrderCount"`
	AskOrderCount int     `json:"askOrderCount"`
	BidVenues     int     `json:"bidVenues"`
	AskVenues     int     `json:"askVenues"`
	Strength      float64 `json:"strength"`
}

// ImbalanceEntry records the combined instantaneous imbalance per asset
// at one point in time. Entries live in the aggregator's sliding window
// and are trimmed after twenty minutes.
type ImbalanceEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Imbalances map[Asset]float64 `json:"imbalances"`
}

// Signal is the externally visible per-asset decision.
type Signal struct {
	Asset             Asset                    `json:"asset"`
	Action            string                   `json:"action"`
	Confidence        float64                  `json:"confidence"`
	Exchanges         map[string]*ExchangeData `json:"exchanges"`
	SpreadBps         float64                  `json:"spreadBps"`
	CombinedImbalance float64                  `json:"combinedImbalance"`
	AvgImbalance15m   float64                  `json:"avgImbalance15m"`
	Trend             string                   `json:"trend"`
	WhaleOrders       []WhaleOrder             `json:"whaleOrders"`
	WhaleConsensus    WhaleConsensus           `json:"whaleConsensus"`
	SupportLevels     []SupportLevel           `json:"supportLevels"`
	ResistanceLevels  []SupportLevel           `json:"resistanceLevels"`
	Timestamp         time.Time                `json:"timestamp"`
}

// SignalSet is the pair of per-asset signals published after each
// cycle. It is replaced wholesale, never patched in place.
type SignalSet map[Asset]*Signal
