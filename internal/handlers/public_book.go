package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bookstore/internal/cache"
	"bookstore/internal/models"
)

const bookCacheTTL = 10 * time.Minute

// GetBooks serves the storefront catalog: visible, non-deleted books only,
// newest first, with optional category, text search and price-range filters.
func GetBooks(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /books"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{
			"visibility": true,
			"isDeleted":  bson.M{"$ne": true},
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
			filter["$or"] = bson.A{
				bson.M{"title": pattern},
				bson.M{"author": pattern},
			}
		}

		priceFilter := bson.M{}
		if minStr := c.Query("minPrice"); minStr != "" {
			minPrice, err := strconv.ParseFloat(minStr, 64)
			if err != nil || minPrice < 0 {
				respondWithError(c, logger, http.StatusBadRequest, route, "invalid minPrice")
				return
			}
			priceFilter["$gte"] = minPrice
		}
		if maxStr := c.Query("maxPrice"); maxStr != "" {
			maxPrice, err := strconv.ParseFloat(maxStr, 64)
			if err != nil || maxPrice < 0 {
				respondWithError(c, logger, http.StatusBadRequest, route, "invalid maxPrice")
				return
			}
			priceFilter["$lte"] = maxPrice
		}
		if len(priceFilter) > 0 {
			filter["price"] = priceFilter
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		products := db.Collection("products")

		total, err := products.CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		findOpts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := products.Find(ctx, filter, findOpts)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		books, err := decodeBooks(ctx, cursor)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"books": books,
			"page":  page,
			"limit": limit,
			"total": total,
		})
	}
}

// GetBookByID serves a single visible book, cache-first when Redis is
// configured. A hidden or soft-deleted book reads as not found.
func GetBookByID(db *mongo.Database, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /books/:id"
		defer handlePanic(c, logger, route)

		bookID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid book id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if rdb != nil {
			if data, err := cache.GetBook(ctx, rdb, bookID.Hex()); err == nil {
				var book models.Book
				if json.Unmarshal(data, &book) == nil {
					c.JSON(http.StatusOK, book)
					return
				}
			}
		}

		var raw bson.M
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":        bookID,
			"visibility": true,
			"isDeleted":  bson.M{"$ne": true},
		}).Decode(&raw)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, logger, http.StatusNotFound, route, "book not found")
			return
		}
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		book, err := normalizeBookDocument(raw)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "decode error")
			return
		}

		if rdb != nil {
			if err := cache.SetBook(ctx, rdb, bookID.Hex(), book, bookCacheTTL); err != nil {
				logger.Warn("failed to cache book", zap.Error(err))
			}
		}

		c.JSON(http.StatusOK, book)
	}
}

// GetDeals lists visible books currently priced below their original price.
func GetDeals(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /books/deals"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := bson.M{
			"visibility":    true,
			"isDeleted":     bson.M{"$ne": true},
			"originalPrice": bson.M{"$gt": 0},
			"$expr":         bson.M{"$lt": bson.A{"$price", "$originalPrice"}},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		findOpts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("products").Find(ctx, filter, findOpts)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		books, err := decodeBooks(ctx, cursor)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"books": books, "page": page, "limit": limit})
	}
}
