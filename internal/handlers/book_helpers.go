package handlers

import (
	"context"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"bookstore/internal/models"
)

// normalizeBookDocument tolerates documents written by the old web client,
// which stored form values unconverted: price and stockQuantity as strings,
// visibility as "true"/"on". New writes are always typed.
func normalizeBookDocument(raw bson.M) (models.Book, error) {
	for _, key := range []string{"price", "originalPrice", "rating"} {
		if val, ok := raw[key].(string); ok {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				parsed = 0
			}
			raw[key] = parsed
		}
	}

	if val, ok := raw["stockQuantity"]; ok {
		switch typed := val.(type) {
		case int32:
			raw["stockQuantity"] = int(typed)
		case int64:
			raw["stockQuantity"] = int(typed)
		case float64:
			raw["stockQuantity"] = int(typed)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(typed))
			if err != nil {
				parsed = 0
			}
			raw["stockQuantity"] = parsed
		case int:
			raw["stockQuantity"] = typed
		default:
			raw["stockQuantity"] = 0
		}
	} else {
		raw["stockQuantity"] = 0
	}

	if val, ok := raw["visibility"]; ok {
		switch typed := val.(type) {
		case string:
			raw["visibility"] = typed == "true" || typed == "on"
		case bool:
			// already bool, keep as is
		default:
			raw["visibility"] = false
		}
	} else {
		raw["visibility"] = false
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Book{}, err
	}

	var book models.Book
	if err := bson.Unmarshal(data, &book); err != nil {
		return models.Book{}, err
	}

	book.InStock = book.StockQuantity > 0
	book.OfferPercent = offerPercent(book.Price, book.OriginalPrice)
	book.IsOnOffer = isBookOnOffer(book.Price, book.OriginalPrice)

	return book, nil
}

func decodeBooks(ctx context.Context, cursor *mongo.Cursor) ([]models.Book, error) {
	books := make([]models.Book, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		book, err := normalizeBookDocument(raw)
		if err != nil {
			return nil, err
		}

		books = append(books, book)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return books, nil
}
