package analysis

import (
	"testing"
	"time"

	"depthsignal/models"
)

func makeSide(start, step float64, size float64, n int) []models.PriceLevel {
	levels := make([]models.PriceLevel, 0, n)
	for i := 0; i < n; i++ {
		levels = append(levels, models.PriceLevel{Price: start + float64(i)*step, Size: size})
	}
	return levels
}

func TestAnalyzeBookDepthUsesTopTenLevels(t *testing.T) {
	book := &models.OrderBook{
		Venue:     models.VenueBinance,
		Asset:     models.AssetBTC,
		Bids:      makeSide(96000, -10, 1, 25),
		Asks:      makeSide(96010, 10, 2, 25),
		Timestamp: time.Now(),
	}

	data, _ := AnalyzeBook(book, 5)
	if data.BidDepth != 10 {
		t.Fatalf("bid depth = %v, want 10", data.BidDepth)
	}
	if data.AskDepth != 20 {
		t.Fatalf("ask depth = %v, want 20", data.AskDepth)
	}
	if data.Price != 96005 {
		t.Fatalf("mid price = %v, want 96005", data.Price)
	}
}

func TestAnalyzeBookImbalanceBounds(t *testing.T) {
	book := &models.OrderBook{
		Venue: models.VenueBybit,
		Asset: models.AssetBTC,
		Bids:  makeSide(96000, -10, 9, 10),
		Asks:  makeSide(96010, 10, 1, 10),
	}

	data, _ := AnalyzeBook(book, 100)
	if data.Imbalance < -1 || data.Imbalance > 1 {
		t.Fatalf("imbalance %v out of [-1, 1]", data.Imbalance)
	}
	if data.Imbalance != 0.8 {
		t.Fatalf("imbalance = %v, want 0.8", data.Imbalance)
	}
}

func TestAnalyzeBookEmptySides(t *testing.T) {
	data, whales := AnalyzeBook(&models.OrderBook{Venue: models.VenueKucoin, Asset: models.AssetETH}, 50)
	if data.Price != 0 || data.Imbalance != 0 || data.BidDepth != 0 || data.AskDepth != 0 {
		t.Fatalf("expected zeroed output, got %+v", data)
	}
	if len(whales) != 0 {
		t.Fatalf("expected no whales, got %d", len(whales))
	}
}

func TestAnalyzeBookOneSidedBookHasZeroMid(t *testing.T) {
	book := &models.OrderBook{
		Venue: models.VenueBinance,
		Asset: models.AssetBTC,
		Bids:  makeSide(96000, -10, 1, 5),
	}
	data, _ := AnalyzeBook(book, 5)
	if data.Price != 0 {
		t.Fatalf("mid price = %v, want 0 for one-sided book", data.Price)
	}
	if data.Imbalance != 1 {
		t.Fatalf("imbalance = %v, want 1", data.Imbalance)
	}
}

func TestAnalyzeBookWhaleScan(t *testing.T) {
	bids := makeSide(96000, -10, 1, 25)
	bids[3].Size = 7     // within scan range
	bids[22].Size = 100  // beyond the top 20, must be ignored
	asks := makeSide(96010, 10, 1, 25)
	asks[0].Size = 5 // exactly at threshold

	book := &models.OrderBook{
		Venue: models.VenueBinance,
		Asset: models.AssetBTC,
		Bids:  bids,
		Asks:  asks,
	}

	_, whales := AnalyzeBook(book, 5)
	if len(whales) != 2 {
		t.Fatalf("whales = %d, want 2: %+v", len(whales), whales)
	}
	if whales[0].Side != models.SideBid || whales[0].Size != 7 {
		t.Fatalf("unexpected first whale %+v", whales[0])
	}
	if whales[1].Side != models.SideAsk || whales[1].Size != 5 {
		t.Fatalf("unexpected second whale %+v", whales[1])
	}
}
