package analysis

import (
	"math"
	"sort"

	"depthsignal/models"
)

const (
	// maxLevels caps how many support/resistance buckets are reported.
	maxLevels = 5
	// levelDeviationLimit discards buckets too far from the reference
	// price to matter.
	levelDeviationLimit = 0.05
)

type levelBucket struct {
	price  float64
	size   float64
	venues map[string]struct{}
	order  int
}

// DetectLevels clusters one side of up to three venue books into
// scored support (bids) or resistance (asks) levels. Absent venues are
// passed as nil entries and simply contribute nothing.
func DetectLevels(books map[string]*models.OrderBook, side string, asset models.Asset) []models.SupportLevel {
	params := models.ParamsFor(asset)

	refPrice := referencePrice(books)
	buckets := make(map[float64]*levelBucket)
	next := 0

	for _, venue := range models.Venues {
		book := books[venue]
		if book == nil {
			continue
		}
		levels := book.Bids
		if side == models.SideAsk {
			levels = book.Asks
		}
		for _, lvl := range levels {
			bucket := math.Round(lvl.Price/params.LevelBucket) * params.LevelBucket
			b, ok := buckets[bucket]
			if !ok {
				b = &levelBucket{price: bucket, venues: make(map[string]struct{}), order: next}
				next++
				buckets[bucket] = b
			}
			b.size += lvl.Size
			b.venues[venue] = struct{}{}
		}
	}

	var out []models.SupportLevel
	ordered := make([]*levelBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	for _, b := range ordered {
		if refPrice > 0 && math.Abs(b.price-refPrice)/refPrice > levelDeviationLimit {
			continue
		}
		round := math.Mod(b.price, params.RoundMultiple) == 0
		out = append(out, models.SupportLevel{
			Price:         b.price,
			Strength:      scoreLevel(b, round, params),
			Type:          classifyLevel(b, round, params),
			TotalSize:     b.size,
			ExchangeCount: len(b.venues),
			IsRoundNumber: round,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if len(out) > maxLevels {
		out = out[:maxLevels]
	}
	return out
}

// referencePrice is the best bid across the venues that responded.
func referencePrice(books map[string]*models.OrderBook) float64 {
	var best float64
	for _, book := range books {
		if book == nil || len(book.Bids) == 0 {
			continue
		}
		if book.Bids[0].Price > best {
			best = book.Bids[0].Price
		}
	}
	return best
}

func scoreLevel(b *levelBucket, round bool, params models.AssetParams) float64 {
	score := b.size / params.SizeUnit * 50
	if score > 50 {
		score = 50
	}
	if len(b.venues) >= 2 {
		score += 15
	}
	if len(b.venues) >= 3 {
		score += 15
	}
	if round {
		score += 30
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score)
}

func classifyLevel(b *levelBucket, round bool, params models.AssetParams) string {
	switch {
	case b.size >= 2*params.SizeUnit:
		return models.LevelWall
	case round:
		return models.LevelRound
	default:
		return models.LevelCluster
	}
}
