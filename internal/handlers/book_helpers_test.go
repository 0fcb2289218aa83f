package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestNormalizeBookDocumentTypedFields(t *testing.T) {
	raw := bson.M{
		"title":         "Clean Architecture",
		"author":        "Robert C. Martin",
		"price":         499.0,
		"originalPrice": 599.0,
		"stockQuantity": int32(12),
		"visibility":    true,
	}

	book, err := normalizeBookDocument(raw)
	if err != nil {
		t.Fatalf("normalizeBookDocument failed: %v", err)
	}

	if book.Price != 499 {
		t.Fatalf("price = %v, want 499", book.Price)
	}
	if book.StockQuantity != 12 {
		t.Fatalf("stockQuantity = %d, want 12", book.StockQuantity)
	}
	if !book.InStock {
		t.Fatal("expected InStock for positive stock")
	}
	if !book.IsOnOffer {
		t.Fatal("expected IsOnOffer when price is below originalPrice")
	}
	if !book.Visibility {
		t.Fatal("expected visibility true")
	}
}

// Documents written by the old web client carry numbers and booleans as
// strings; decoding must tolerate them.
func TestNormalizeBookDocumentLegacyStrings(t *testing.T) {
	raw := bson.M{
		"title":         "Legacy Book",
		"price":         "250",
		"originalPrice": "300",
		"stockQuantity": "7",
		"visibility":    "on",
	}

	book, err := normalizeBookDocument(raw)
	if err != nil {
		t.Fatalf("normalizeBookDocument failed: %v", err)
	}

	if book.Price != 250 {
		t.Fatalf("price = %v, want 250", book.Price)
	}
	if book.OriginalPrice != 300 {
		t.Fatalf("originalPrice = %v, want 300", book.OriginalPrice)
	}
	if book.StockQuantity != 7 {
		t.Fatalf("stockQuantity = %d, want 7", book.StockQuantity)
	}
	if !book.Visibility {
		t.Fatal(`expected visibility "on" to decode as true`)
	}
}

func TestNormalizeBookDocumentMissingFields(t *testing.T) {
	book, err := normalizeBookDocument(bson.M{"title": "Bare"})
	if err != nil {
		t.Fatalf("normalizeBookDocument failed: %v", err)
	}

	if book.StockQuantity != 0 {
		t.Fatalf("stockQuantity = %d, want 0", book.StockQuantity)
	}
	if book.InStock {
		t.Fatal("expected InStock false for zero stock")
	}
	if book.Visibility {
		t.Fatal("expected missing visibility to decode as false")
	}
}

func TestNormalizeBookDocumentUnparsablePrice(t *testing.T) {
	book, err := normalizeBookDocument(bson.M{"title": "Broken", "price": "abc"})
	if err != nil {
		t.Fatalf("normalizeBookDocument failed: %v", err)
	}
	if book.Price != 0 {
		t.Fatalf("price = %v, want 0 for unparsable value", book.Price)
	}
}
