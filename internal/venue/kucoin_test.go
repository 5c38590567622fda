package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"depthsignal/config"
	"depthsignal/models"
)

func kucoinTestConfig(url string) config.KucoinSourceConfig {
	return config.KucoinSourceConfig{
		Enabled:        true,
		URL:            url,
		Symbols:        map[string]string{"BTC": "XBTUSDTM", "ETH": "ETHUSDTM"},
		RateLimitRPS:   100,
		RateLimitBurst: 10,
	}
}

func TestKucoinFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "XBTUSDTM" {
			t.Errorf("symbol = %q, want XBTUSDTM", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": "200000",
			"data": {
				"sequence": 100,
				"bids": [[96000.1, 4], [95999.9, 2]],
				"asks": [[96000.5, 1], [96001.0, 3]]
			}
		}`))
	}))
	defer srv.Close()

	adapter := NewKucoinAdapter(kucoinTestConfig(srv.URL), 2*time.Second)
	book, err := adapter.Fetch(context.Background(), models.AssetBTC)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if book.Venue != models.VenueKucoin {
		t.Fatalf("venue = %q, want kucoin", book.Venue)
	}
	if len(book.Bids) != 2 || book.Bids[0].Price != 96000.1 || book.Bids[0].Size != 4 {
		t.Fatalf("unexpected bids %+v", book.Bids)
	}
	if len(book.Asks) != 2 || book.Asks[0].Price != 96000.5 {
		t.Fatalf("unexpected asks %+v", book.Asks)
	}
}

func TestKucoinFetchRejectsErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "429000", "data": {}}`))
	}))
	defer srv.Close()

	adapter := NewKucoinAdapter(kucoinTestConfig(srv.URL), 2*time.Second)
	if _, err := adapter.Fetch(context.Background(), models.AssetBTC); err == nil {
		t.Fatalf("expected an error for a non-success code")
	}
}

func TestStringifyLevels(t *testing.T) {
	out := stringifyLevels([][]float64{{96000.1, 4.25}, {95999.9, 0}})
	if len(out) != 2 {
		t.Fatalf("levels = %d, want 2", len(out))
	}
	if out[0][0] != "96000.1" || out[0][1] != "4.25" {
		t.Fatalf("unexpected first level %v", out[0])
	}
}
