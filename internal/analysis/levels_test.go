package analysis

import (
	"testing"

	"depthsignal/models"
)

func bookWithBids(venue string, asset models.Asset, levels ...models.PriceLevel) *models.OrderBook {
	return &models.OrderBook{Venue: venue, Asset: asset, Bids: levels}
}

func TestDetectLevelsRoundNumberWall(t *testing.T) {
	books := map[string]*models.OrderBook{
		models.VenueBinance: bookWithBids(models.VenueBinance, models.AssetBTC,
			models.PriceLevel{Price: 96010, Size: 15}),
		models.VenueBybit: bookWithBids(models.VenueBybit, models.AssetBTC,
			models.PriceLevel{Price: 95990, Size: 15}),
	}

	levels := DetectLevels(books, models.SideBid, models.AssetBTC)
	if len(levels) != 1 {
		t.Fatalf("levels = %d, want 1: %+v", len(levels), levels)
	}
	lvl := levels[0]
	if lvl.Price != 96000 {
		t.Fatalf("price = %v, want 96000", lvl.Price)
	}
	if lvl.Strength < 95 {
		t.Fatalf("strength = %v, want >= 95", lvl.Strength)
	}
	if lvl.ExchangeCount != 2 {
		t.Fatalf("exchangeCount = %d, want 2", lvl.ExchangeCount)
	}
	if lvl.Type != models.LevelWall {
		t.Fatalf("type = %q, want wall", lvl.Type)
	}
	if !lvl.IsRoundNumber {
		t.Fatalf("expected round-number flag")
	}
	if lvl.TotalSize != 30 {
		t.Fatalf("totalSize = %v, want 30", lvl.TotalSize)
	}
}

func TestDetectLevelsDeviationFilter(t *testing.T) {
	books := map[string]*models.OrderBook{
		models.VenueBinance: bookWithBids(models.VenueBinance, models.AssetBTC,
			models.PriceLevel{Price: 96000, Size: 5},
			// more than 5% below the reference price
			models.PriceLevel{Price: 80000, Size: 50}),
	}

	levels := DetectLevels(books, models.SideBid, models.AssetBTC)
	if len(levels) != 1 {
		t.Fatalf("levels = %d, want 1: %+v", len(levels), levels)
	}
	if levels[0].Price != 96000 {
		t.Fatalf("price = %v, want 96000", levels[0].Price)
	}
}

func TestDetectLevelsCapsAtFive(t *testing.T) {
	bids := make([]models.PriceLevel, 0, 8)
	for i := 0; i < 8; i++ {
		bids = append(bids, models.PriceLevel{Price: 96000 - float64(i)*100, Size: 1})
	}
	books := map[string]*models.OrderBook{
		models.VenueBinance: bookWithBids(models.VenueBinance, models.AssetBTC, bids...),
	}

	levels := DetectLevels(books, models.SideBid, models.AssetBTC)
	if len(levels) != maxLevels {
		t.Fatalf("levels = %d, want %d", len(levels), maxLevels)
	}
}

func TestDetectLevelsClassification(t *testing.T) {
	// Small non-round bucket stays a cluster; a round bucket below the
	// wall threshold is typed round.
	books := map[string]*models.OrderBook{
		models.VenueBinance: bookWithBids(models.VenueBinance, models.AssetETH,
			models.PriceLevel{Price: 3314, Size: 20},
			models.PriceLevel{Price: 3300, Size: 30}),
	}

	levels := DetectLevels(books, models.SideBid, models.AssetETH)
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2: %+v", len(levels), levels)
	}
	byPrice := map[float64]models.SupportLevel{}
	for _, lvl := range levels {
		byPrice[lvl.Price] = lvl
	}
	if got := byPrice[3300].Type; got != models.LevelRound {
		t.Fatalf("3300 type = %q, want round", got)
	}
	if got := byPrice[3310].Type; got != models.LevelCluster {
		t.Fatalf("3310 type = %q, want cluster", got)
	}
}

func TestDetectLevelsEmptyInput(t *testing.T) {
	levels := DetectLevels(map[string]*models.OrderBook{}, models.SideBid, models.AssetBTC)
	if len(levels) != 0 {
		t.Fatalf("levels = %d, want 0", len(levels))
	}
}
