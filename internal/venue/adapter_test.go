package venue

import (
	"testing"

	"depthsignal/models"
)

func TestParseStringLevels(t *testing.T) {
	levels, err := parseStringLevels([][]string{
		{"96000.5", "1.25"},
		{"95990", "0"}, // deleted level placeholder, dropped
		{"95980", "3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("levels = %d, want 2", len(levels))
	}
	if levels[0].Price != 96000.5 || levels[0].Size != 1.25 {
		t.Fatalf("unexpected first level %+v", levels[0])
	}
}

func TestParseStringLevelsRejectsMalformed(t *testing.T) {
	cases := [][][]string{
		{{"96000"}},           // missing size
		{{"abc", "1"}},        // bad price
		{{"96000", "huge"}},   // bad size
		{{"-1", "1"}},         // non-positive price
		{{"0", "1"}},          // zero price
	}
	for i, raw := range cases {
		if _, err := parseStringLevels(raw); err == nil {
			t.Fatalf("case %d: expected an error for %v", i, raw)
		}
	}
}

func TestSortBook(t *testing.T) {
	book := &models.OrderBook{
		Bids: []models.PriceLevel{{Price: 95990, Size: 1}, {Price: 96000, Size: 1}},
		Asks: []models.PriceLevel{{Price: 96020, Size: 1}, {Price: 96010, Size: 1}},
	}
	sortBook(book)
	if book.Bids[0].Price != 96000 {
		t.Fatalf("best bid = %v, want 96000", book.Bids[0].Price)
	}
	if book.Asks[0].Price != 96010 {
		t.Fatalf("best ask = %v, want 96010", book.Asks[0].Price)
	}
}

func TestBuildBook(t *testing.T) {
	book, err := buildBook(models.VenueBinance, models.AssetBTC,
		[][]string{{"95990", "1"}, {"96000", "2"}},
		[][]string{{"96020", "1"}, {"96010", "2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Venue != models.VenueBinance || book.Asset != models.AssetBTC {
		t.Fatalf("unexpected identity %s/%s", book.Venue, book.Asset)
	}
	if book.Bids[0].Price != 96000 || book.Asks[0].Price != 96010 {
		t.Fatalf("book not in canonical order: %+v", book)
	}
	if book.Timestamp.IsZero() {
		t.Fatalf("expected a capture timestamp")
	}
}
