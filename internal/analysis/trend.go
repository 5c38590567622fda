package analysis

import (
	"time"

	"depthsignal/models"
)

const (
	// trendReadingShare is the fraction of readings that must clear the
	// threshold on the same side for a directional trend.
	trendReadingShare = 0.6
	// trendThreshold is the per-reading and average imbalance magnitude
	// gate.
	trendThreshold = 0.05
)

// ClassifyTrend filters the aggregator-owned history to the trailing
// window and classifies the direction for one asset. A trend only
// fires when more than 60% of the readings clear the threshold
// individually and the window average clears it as well.
func ClassifyTrend(history []models.ImbalanceEntry, asset models.Asset, now time.Time, window time.Duration) (float64, string) {
	cutoff := now.Add(-window)

	var sum float64
	var count, above, below int
	for _, entry := range history {
		if entry.Timestamp.Before(cutoff) {
			continue
		}
		v, ok := entry.Imbalances[asset]
		if !ok {
			continue
		}
		sum += v
		count++
		if v > trendThreshold {
			above++
		}
		if v < -trendThreshold {
			below++
		}
	}

	if count == 0 {
		return 0, models.TrendNeutral
	}

	avg := sum / float64(count)
	share := float64(count) * trendReadingShare

	switch {
	case float64(above) > share && avg > trendThreshold:
		return avg, models.TrendBullish
	case float64(below) > share && avg < -trendThreshold:
		return avg, models.TrendBearish
	default:
		return avg, models.TrendNeutral
	}
}
