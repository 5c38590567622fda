package analysis

import (
	"depthsignal/models"
)

const (
	// depthLevels is how many levels per side contribute to depth and
	// imbalance figures.
	depthLevels = 10
	// whaleScanLevels is how many levels per side are scanned for
	// whale-sized orders.
	whaleScanLevels = 20
)

// AnalyzeBook derives the per-venue snapshot metrics and whale orders
// from one canonical order book. It is a pure function: empty input
// yields zeroed output, never an error.
func AnalyzeBook(book *models.OrderBook, whaleThreshold float64) (*models.ExchangeData, []models.WhaleOrder) {
	if book == nil {
		return nil, nil
	}

	bidDepth := sideDepth(book.Bids, depthLevels)
	askDepth := sideDepth(book.Asks, depthLevels)

	var midPrice float64
	if len(book.Bids) > 0 && len(book.Asks) > 0 {
		midPrice = (book.Bids[0].Price + book.Asks[0].Price) / 2
	}

	var imbalance float64
	if total := bidDepth + askDepth; total > 0 {
		imbalance = (bidDepth - askDepth) / total
	}

	data := &models.ExchangeData{
		Venue:     book.Venue,
		Price:     midPrice,
		Imbalance: imbalance,
		BidDepth:  bidDepth,
		AskDepth:  askDepth,
		Timestamp: book.Timestamp,
	}

	whales := scanWhales(book.Venue, models.SideBid, book.Bids, whaleThreshold)
	whales = append(whales, scanWhales(book.Venue, models.SideAsk, book.Asks, whaleThreshold)...)

	return data, whales
}

func sideDepth(levels []models.PriceLevel, limit int) float64 {
	var depth float64
	for i, lvl := range levels {
		if i >= limit {
			break
		}
		depth += lvl.Size
	}
	return depth
}

func scanWhales(venue, side string, levels []models.PriceLevel, threshold float64) []models.WhaleOrder {
	var whales []models.WhaleOrder
	for i, lvl := range levels {
		if i >= whaleScanLevels {
			break
		}
		if lvl.Size >= threshold {
			whales = append(whales, models.WhaleOrder{
				Venue: venue,
				Side:  side,
				Price: lvl.Price,
				Size:  lvl.Size,
			})
		}
	}
	return whales
}
