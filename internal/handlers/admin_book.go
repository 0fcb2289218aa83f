package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bookstore/internal/cache"
	"bookstore/internal/models"
)

var validate = validator.New()

type createBookRequest struct {
	Title         string  `json:"title" validate:"required"`
	Author        string  `json:"author"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	OriginalPrice float64 `json:"originalPrice" validate:"gte=0"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	StockQuantity int     `json:"stockQuantity" validate:"gte=0"`
	Publisher     string  `json:"publisher"`
	Language      string  `json:"language"`
	ImageURL      string  `json:"imageUrl"`
	Visibility    *bool   `json:"visibility"`
}

type updateBookRequest struct {
	Title         *string  `json:"title"`
	Author        *string  `json:"author"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Category      *string  `json:"category"`
	Description   *string  `json:"description"`
	StockQuantity *int     `json:"stockQuantity"`
	Publisher     *string  `json:"publisher"`
	Language      *string  `json:"language"`
	Visibility    *bool    `json:"visibility"`
}

// GetAllBooks is the admin catalog list: hidden books included, soft-deleted
// excluded.
func GetAllBooks(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/books"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		filter := bson.M{"isDeleted": bson.M{"$ne": true}}
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

// CreateBook inserts a new catalog entry. New books default to hidden until
// an admin flips visibility.
func CreateBook(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/books"
		defer handlePanic(c, logger, route)

		var req createBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(c, logger, route, err)
			return
		}
		if err := validateBookPricing(req.Price, req.OriginalPrice); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		visibility := false
		if req.Visibility != nil {
			visibility = *req.Visibility
		}

		now := time.Now()
		book := models.Book{
			Title:         strings.TrimSpace(req.Title),
			Author:        strings.TrimSpace(req.Author),
			Price:         req.Price,
			OriginalPrice: req.OriginalPrice,
			OfferPercent:  offerPercent(req.Price, req.OriginalPrice),
			Category:      strings.TrimSpace(req.Category),
			Description:   req.Description,
			StockQuantity: req.StockQuantity,
			Publisher:     req.Publisher,
			Language:      req.Language,
			ImageURL:      req.ImageURL,
			Visibility:    visibility,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, book)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		logger.Info("book created", zap.String("title", book.Title))
		c.JSON(http.StatusCreated, gin.H{"id": res.InsertedID.(primitive.ObjectID).Hex()})
	}
}

// UpdateBook applies a partial update; only fields present in the body
// change. Pricing fields are validated against the resulting pair.
func UpdateBook(db *mongo.Database, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/books/:id"
		defer handlePanic(c, logger, route)

		bookID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid book id")
			return
		}

		var req updateBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var raw bson.M
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       bookID,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&raw)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, logger, http.StatusNotFound, route, "book not found")
			return
		}
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		current, err := normalizeBookDocument(raw)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "decode error")
			return
		}

		update := bson.M{"updatedAt": time.Now()}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				respondWithError(c, logger, http.StatusBadRequest, route, "title must not be empty")
				return
			}
			update["title"] = title
		}
		if req.Author != nil {
			update["author"] = strings.TrimSpace(*req.Author)
		}
		if req.Category != nil {
			update["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Description != nil {
			update["description"] = *req.Description
		}
		if req.Publisher != nil {
			update["publisher"] = *req.Publisher
		}
		if req.Language != nil {
			update["language"] = *req.Language
		}
		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				respondWithError(c, logger, http.StatusBadRequest, route, "stockQuantity must be zero or greater")
				return
			}
			update["stockQuantity"] = *req.StockQuantity
		}
		if req.Visibility != nil {
			update["visibility"] = *req.Visibility
		}

		price := current.Price
		originalPrice := current.OriginalPrice
		if req.Price != nil {
			price = *req.Price
		}
		if req.OriginalPrice != nil {
			originalPrice = *req.OriginalPrice
		}
		if req.Price != nil || req.OriginalPrice != nil {
			if err := validateBookPricing(price, originalPrice); err != nil {
				respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
				return
			}
			update["price"] = price
			update["originalPrice"] = originalPrice
			update["offerPercent"] = offerPercent(price, originalPrice)
		}

		_, err = db.Collection("products").UpdateOne(ctx,
			bson.M{"_id": bookID},
			bson.M{"$set": update},
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		if rdb != nil {
			if err := cache.DeleteBook(ctx, rdb, bookID.Hex()); err != nil {
				logger.Warn("failed to invalidate book cache", zap.Error(err))
			}
		}

		logger.Info("book updated", zap.String("bookId", bookID.Hex()))
		c.JSON(http.StatusOK, gin.H{"message": "book updated"})
	}
}

// DeleteBook soft-deletes a book so existing orders keep resolving their
// snapshots. The uploaded image is removed from disk.
func DeleteBook(db *mongo.Database, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/books/:id"
		defer handlePanic(c, logger, route)

		bookID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid book id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		var previous bson.M
		err = db.Collection("products").FindOneAndUpdate(ctx,
			bson.M{"_id": bookID, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{
				"isDeleted":  true,
				"visibility": false,
				"deletedAt":  now,
				"updatedAt":  now,
			}},
		).Decode(&previous)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, logger, http.StatusNotFound, route, "book not found")
			return
		}
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		if imageURL, ok := previous["imageUrl"].(string); ok && imageURL != "" {
			safeDeleteUpload(imageURL)
		}
		if rdb != nil {
			if err := cache.DeleteBook(ctx, rdb, bookID.Hex()); err != nil {
				logger.Warn("failed to invalidate book cache", zap.Error(err))
			}
		}

		logger.Info("book deleted", zap.String("bookId", bookID.Hex()))
		c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
	}
}

func respondValidationError(c *gin.Context, logger *zap.Logger, route string, err error) {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		field := errs[0]
		respondWithError(c, logger, http.StatusBadRequest, route,
			"invalid value for field "+field.Field())
		return
	}
	respondWithError(c, logger, http.StatusBadRequest, route, "invalid request body")
}
