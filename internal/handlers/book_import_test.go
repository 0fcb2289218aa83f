package handlers

import (
	"strings"
	"testing"
	"time"
)

func importHeader() []string {
	return []string{"Title", "Author", "Price", "OriginalPrice", "Category", "StockQuantity", "Visibility"}
}

func TestParseBookRows(t *testing.T) {
	rows := [][]string{
		importHeader(),
		{"Book One", "Author One", "199", "299", "Fiction", "10", "true"},
		{"Book Two", "Author Two", "450", "", "Tech", "3", "false"},
	}

	books, err := parseBookRows(rows, time.Now())
	if err != nil {
		t.Fatalf("parseBookRows failed: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("parsed %d books, want 2", len(books))
	}

	first := books[0]
	if first.Title != "Book One" || first.Price != 199 || first.OriginalPrice != 299 {
		t.Fatalf("unexpected first book: %+v", first)
	}
	if first.StockQuantity != 10 || !first.Visibility {
		t.Fatalf("unexpected first book stock/visibility: %+v", first)
	}
	if first.OfferPercent == 0 {
		t.Fatal("expected offerPercent computed for discounted row")
	}

	if books[1].Visibility {
		t.Fatal("expected second book to be hidden")
	}
}

// A malformed row stops the import; rows before it still parse so the caller
// can report how far it got.
func TestParseBookRowsStopsAtFirstBadRow(t *testing.T) {
	rows := [][]string{
		importHeader(),
		{"Good One", "A", "100", "", "", "1", "true"},
		{"Good Two", "B", "200", "", "", "2", "true"},
		{"Bad", "C", "not-a-price", "", "", "3", "true"},
		{"Never Reached", "D", "400", "", "", "4", "true"},
	}

	books, err := parseBookRows(rows, time.Now())
	if err == nil {
		t.Fatal("expected error for malformed price")
	}
	if !strings.Contains(err.Error(), "row 4") {
		t.Fatalf("error %q does not name the failing row", err)
	}
	if len(books) != 2 {
		t.Fatalf("parsed %d books before failure, want 2", len(books))
	}
}

func TestParseBookRowsHeaderMatching(t *testing.T) {
	// Header names match case-insensitively and ignore spaces; unknown
	// columns are skipped.
	rows := [][]string{
		{"TITLE", "stock quantity", "price", "internal-note"},
		{"Spaced Header Book", "5", "120", "ignore me"},
	}

	books, err := parseBookRows(rows, time.Now())
	if err != nil {
		t.Fatalf("parseBookRows failed: %v", err)
	}
	if books[0].StockQuantity != 5 {
		t.Fatalf("stockQuantity = %d, want 5", books[0].StockQuantity)
	}
}

func TestParseBookRowsSkipsBlankRows(t *testing.T) {
	rows := [][]string{
		importHeader(),
		{"", "", "", "", "", "", ""},
		{"Real Book", "A", "100", "", "", "1", "true"},
	}

	books, err := parseBookRows(rows, time.Now())
	if err != nil {
		t.Fatalf("parseBookRows failed: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("parsed %d books, want 1", len(books))
	}
}

func TestParseBookRowsRejectsMissingTitle(t *testing.T) {
	rows := [][]string{
		importHeader(),
		{"", "A", "100", "", "", "1", "true"},
	}

	if _, err := parseBookRows(rows, time.Now()); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestParseBookRowsRejectsUnknownHeader(t *testing.T) {
	rows := [][]string{
		{"foo", "bar"},
		{"1", "2"},
	}

	if _, err := parseBookRows(rows, time.Now()); err == nil {
		t.Fatal("expected error when no columns are recognized")
	}
}

func TestParseBookRowsEmptyFile(t *testing.T) {
	if _, err := parseBookRows(nil, time.Now()); err == nil {
		t.Fatal("expected error for empty file")
	}
}
