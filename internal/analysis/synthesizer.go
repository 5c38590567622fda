package analysis

import (
	"math"
	"time"

	"depthsignal/models"
)

const (
	// actionAvgGate is the 15-minute average imbalance magnitude needed
	// before a directional action fires.
	actionAvgGate = 0.10
	// instantAgreementGate is the instantaneous combined imbalance
	// magnitude that counts as confirmation.
	instantAgreementGate = 0.1
	maxConfidence        = 95
)

// SynthesisInput collects the frozen per-cycle inputs for one asset.
// Absent venues carry a nil ExchangeData entry.
type SynthesisInput struct {
	Asset            models.Asset
	Exchanges        map[string]*models.ExchangeData
	WhaleOrders      []models.WhaleOrder
	WhaleConsensus   models.WhaleConsensus
	SupportLevels    []models.SupportLevel
	ResistanceLevels []models.SupportLevel
	AvgImbalance     float64
	Trend            string
	Timestamp        time.Time
}

// Synthesize combines the cycle outputs into the per-asset decision.
// It is deterministic: identical inputs produce identical signals.
func Synthesize(in SynthesisInput) *models.Signal {
	exchanges := make(map[string]*models.ExchangeData, len(models.Venues))
	var imbalanceSum float64
	var present int
	for _, venue := range models.Venues {
		data := in.Exchanges[venue]
		if data == nil {
			// Zeroed placeholder keeps the wire format uniform; it is
			// excluded from every average.
			exchanges[venue] = &models.ExchangeData{Venue: venue, Timestamp: in.Timestamp}
			continue
		}
		exchanges[venue] = data
		imbalanceSum += data.Imbalance
		present++
	}

	var combined float64
	if present > 0 {
		combined = imbalanceSum / float64(present)
	}

	spread := crossVenueSpread(exchanges[models.VenueBinance], exchanges[models.VenueBybit])

	action := models.ActionWait
	var confidence float64
	switch {
	case in.Trend == models.TrendBullish && in.AvgImbalance > actionAvgGate:
		action = models.ActionLong
		confidence = math.Min(maxConfidence, 50+in.AvgImbalance*150)
	case in.Trend == models.TrendBearish && in.AvgImbalance < -actionAvgGate:
		action = models.ActionShort
		confidence = math.Min(maxConfidence, 50+math.Abs(in.AvgImbalance)*150)
	default:
		confidence = math.Abs(in.AvgImbalance) * 100
	}

	if action != models.ActionWait {
		if agreesWithAction(action, combined, instantAgreementGate) {
			confidence += 10
		}
		agreeing := 0
		for _, venue := range models.Venues {
			data := in.Exchanges[venue]
			if data == nil {
				continue
			}
			if agreesWithAction(action, data.Imbalance, 0) {
				agreeing++
			}
		}
		if agreeing >= 2 {
			confidence += 10
		}
		if agreeing >= len(models.Venues) {
			confidence += 5
		}
	}

	confidence = clamp(confidence, 0, maxConfidence)

	return &models.Signal{
		Asset:             in.Asset,
		Action:            action,
		Confidence:        math.Round(confidence),
		Exchanges:         exchanges,
		SpreadBps:         round1(spread),
		CombinedImbalance: round3(combined),
		AvgImbalance15m:   round3(in.AvgImbalance),
		Trend:             in.Trend,
		WhaleOrders:       in.WhaleOrders,
		WhaleConsensus:    in.WhaleConsensus,
		SupportLevels:     in.SupportLevels,
		ResistanceLevels:  in.ResistanceLevels,
		Timestamp:         in.Timestamp,
	}
}

// crossVenueSpread is the primary-pair price gap in basis points.
func crossVenueSpread(a, b *models.ExchangeData) float64 {
	if a == nil || b == nil || a.Price == 0 || b.Price == 0 {
		return 0
	}
	return (a.Price - b.Price) / b.Price * 10000
}

func agreesWithAction(action string, imbalance, gate float64) bool {
	if action == models.ActionLong {
		return imbalance > gate
	}
	return imbalance < -gate
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
