package venue

import (
	"testing"

	"depthsignal/models"
)

func TestParseBybitOrderbook(t *testing.T) {
	payload := []byte(`{
		"s": "BTCUSDT",
		"b": [["96000.10", "4.5"], ["95999.90", "2.0"]],
		"a": [["96000.50", "1.2"]],
		"ts": 1716863719031
	}`)

	book, err := parseBybitOrderbook(payload, models.AssetBTC)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if book.Venue != models.VenueBybit || book.Asset != models.AssetBTC {
		t.Fatalf("unexpected identity %s/%s", book.Venue, book.Asset)
	}
	if len(book.Bids) != 2 || book.Bids[0].Price != 96000.10 {
		t.Fatalf("unexpected bids %+v", book.Bids)
	}
	if len(book.Asks) != 1 || book.Asks[0].Size != 1.2 {
		t.Fatalf("unexpected asks %+v", book.Asks)
	}
}

func TestParseBybitOrderbookRejectsBadLevels(t *testing.T) {
	payload := []byte(`{"s": "BTCUSDT", "b": [["not-a-price", "1"]], "a": []}`)
	if _, err := parseBybitOrderbook(payload, models.AssetBTC); err != nil {
		return
	}
	t.Fatalf("expected an error for an unparsable level")
}
