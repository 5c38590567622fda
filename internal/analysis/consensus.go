package analysis

import (
	"math"

	"depthsignal/models"
)

const (
	longRatioGate     = 0.6
	shortRatioGate    = 0.4
	minVenueAgreement = 2
)

// ScoreWhaleConsensus aggregates the whale orders of one asset across
// all venues into a directional bias. The direction only fires when
// the size ratio clears its gate and at least two distinct venues put
// whales on that side.
func ScoreWhaleConsensus(orders []models.WhaleOrder) models.WhaleConsensus {
	c := models.WhaleConsensus{Signal: models.ConsensusNeutral}

	bidVenues := make(map[string]struct{})
	askVenues := make(map[string]struct{})

	for _, o := range orders {
		switch o.Side {
		case models.SideBid:
			c.TotalBidSize += o.Size
			c.BidOrderCount++
			bidVenues[o.Venue] = struct{}{}
		case models.SideAsk:
			c.TotalAskSize += o.Size
			c.AskOrderCount++
			askVenues[o.Venue] = struct{}{}
		}
	}
	c.BidVenues = len(bidVenues)
	c.AskVenues = len(askVenues)

	total := c.TotalBidSize + c.TotalAskSize
	if total == 0 {
		return c
	}
	bidRatio := c.TotalBidSize / total

	switch {
	case bidRatio > longRatioGate && c.BidVenues >= minVenueAgreement:
		c.Signal = models.ConsensusLong
	case bidRatio < shortRatioGate && c.AskVenues >= minVenueAgreement:
		c.Signal = models.ConsensusShort
	}

	winVenues, winOrders := c.BidVenues, c.BidOrderCount
	if bidRatio < 0.5 {
		winVenues, winOrders = c.AskVenues, c.AskOrderCount
	}

	strength := math.Abs(bidRatio-0.5)*100 + float64(winVenues)*15
	if winOrders >= 3 {
		strength += 10
	}
	if winVenues >= len(models.Venues) {
		strength += 15
	}
	if strength > 100 {
		strength = 100
	}
	c.Strength = math.Round(strength)

	return c
}
