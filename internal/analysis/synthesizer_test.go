package analysis

import (
	"math"
	"reflect"
	"testing"
	"time"

	"depthsignal/models"
)

func exch(venue string, price, imbalance float64) *models.ExchangeData {
	return &models.ExchangeData{Venue: venue, Price: price, Imbalance: imbalance}
}

func TestSynthesizeLong(t *testing.T) {
	in := SynthesisInput{
		Asset: models.AssetBTC,
		Exchanges: map[string]*models.ExchangeData{
			models.VenueBinance: exch(models.VenueBinance, 96010, 0.20),
			models.VenueBybit:   exch(models.VenueBybit, 96000, 0.15),
			models.VenueKucoin:  exch(models.VenueKucoin, 96005, 0.10),
		},
		AvgImbalance: 0.15,
		Trend:        models.TrendBullish,
		Timestamp:    time.Now(),
	}

	sig := Synthesize(in)
	if sig.Action != models.ActionLong {
		t.Fatalf("action = %q, want LONG", sig.Action)
	}
	// base 50 + 0.15*150 = 72.5, +10 instant, +10 majority, +5 unanimous,
	// clamped to 95
	if sig.Confidence != 95 {
		t.Fatalf("confidence = %v, want 95", sig.Confidence)
	}
	if sig.CombinedImbalance != 0.15 {
		t.Fatalf("combined = %v, want 0.15", sig.CombinedImbalance)
	}
	// (96010-96000)/96000*10000 ~= 1.0417 rounded to one decimal
	if sig.SpreadBps != 1.0 {
		t.Fatalf("spreadBps = %v, want 1.0", sig.SpreadBps)
	}
}

func TestSynthesizeWaitWhenTrendNeutral(t *testing.T) {
	in := SynthesisInput{
		Asset: models.AssetBTC,
		Exchanges: map[string]*models.ExchangeData{
			models.VenueBinance: exch(models.VenueBinance, 96010, 0.30),
		},
		AvgImbalance: 0.30,
		Trend:        models.TrendNeutral,
		Timestamp:    time.Now(),
	}

	sig := Synthesize(in)
	if sig.Action != models.ActionWait {
		t.Fatalf("action = %q, want WAIT without a trend", sig.Action)
	}
	if sig.Confidence != 30 {
		t.Fatalf("confidence = %v, want 30", sig.Confidence)
	}
}

func TestSynthesizeAllVenuesAbsent(t *testing.T) {
	in := SynthesisInput{
		Asset:     models.AssetETH,
		Exchanges: map[string]*models.ExchangeData{},
		Trend:     models.TrendNeutral,
		Timestamp: time.Now(),
	}

	sig := Synthesize(in)
	if sig.Action != models.ActionWait || sig.Confidence != 0 {
		t.Fatalf("got %q/%v, want WAIT with zero confidence", sig.Action, sig.Confidence)
	}
	if len(sig.Exchanges) != len(models.Venues) {
		t.Fatalf("exchanges = %d entries, want %d placeholders", len(sig.Exchanges), len(models.Venues))
	}
	for venue, data := range sig.Exchanges {
		if data == nil || data.Price != 0 {
			t.Fatalf("venue %s: expected zeroed placeholder, got %+v", venue, data)
		}
	}
	if sig.SpreadBps != 0 || sig.CombinedImbalance != 0 {
		t.Fatalf("spread/combined = %v/%v, want zeros", sig.SpreadBps, sig.CombinedImbalance)
	}
}

func TestSynthesizeConfidenceBounds(t *testing.T) {
	cases := []SynthesisInput{
		{Asset: models.AssetBTC, Trend: models.TrendBullish, AvgImbalance: 1.0,
			Exchanges: map[string]*models.ExchangeData{
				models.VenueBinance: exch(models.VenueBinance, 1, 1),
				models.VenueBybit:   exch(models.VenueBybit, 1, 1),
				models.VenueKucoin:  exch(models.VenueKucoin, 1, 1),
			}},
		{Asset: models.AssetBTC, Trend: models.TrendBearish, AvgImbalance: -1.0,
			Exchanges: map[string]*models.ExchangeData{
				models.VenueBinance: exch(models.VenueBinance, 1, -1),
			}},
		{Asset: models.AssetETH, Trend: models.TrendNeutral, AvgImbalance: 0.99,
			Exchanges: map[string]*models.ExchangeData{}},
	}

	for i, in := range cases {
		sig := Synthesize(in)
		if sig.Confidence < 0 || sig.Confidence > 95 {
			t.Fatalf("case %d: confidence %v out of [0, 95]", i, sig.Confidence)
		}
		if sig.Confidence != math.Trunc(sig.Confidence) {
			t.Fatalf("case %d: confidence %v is not an integer", i, sig.Confidence)
		}
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := SynthesisInput{
		Asset: models.AssetBTC,
		Exchanges: map[string]*models.ExchangeData{
			models.VenueBinance: exch(models.VenueBinance, 96010, 0.12),
			models.VenueBybit:   exch(models.VenueBybit, 96000, -0.03),
		},
		AvgImbalance: 0.04,
		Trend:        models.TrendNeutral,
		Timestamp:    ts,
	}

	a := Synthesize(in)
	b := Synthesize(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same input produced different signals:\n%+v\n%+v", a, b)
	}
}

func TestSynthesizeShortConfirmationBonuses(t *testing.T) {
	in := SynthesisInput{
		Asset: models.AssetBTC,
		Exchanges: map[string]*models.ExchangeData{
			models.VenueBinance: exch(models.VenueBinance, 96010, -0.20),
			models.VenueBybit:   exch(models.VenueBybit, 96000, -0.10),
			models.VenueKucoin:  exch(models.VenueKucoin, 96005, 0.05),
		},
		AvgImbalance: -0.12,
		Trend:        models.TrendBearish,
		Timestamp:    time.Now(),
	}

	sig := Synthesize(in)
	if sig.Action != models.ActionShort {
		t.Fatalf("action = %q, want SHORT", sig.Action)
	}
	// base 50 + 0.12*150 = 68, combined -0.0833 misses the instant gate,
	// two venues agree: +10. No unanimity bonus.
	if sig.Confidence != 78 {
		t.Fatalf("confidence = %v, want 78", sig.Confidence)
	}
}
