package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bookstore/internal/models"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type updateQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// GetCart returns the user's cart lines in add order. A cart that was never
// created reads as an empty list, not an error.
func GetCart(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/cart"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var cart models.Cart
		err := db.Collection("carts").FindOne(ctx, bson.M{"_id": userID}).Decode(&cart)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusOK, gin.H{"items": []models.CartLine{}, "totalAmount": 0.0})
			return
		}
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		if cart.Items == nil {
			cart.Items = []models.CartLine{}
		}
		c.JSON(http.StatusOK, gin.H{"items": cart.Items, "totalAmount": cartTotal(cart.Items)})
	}
}

// AddCartItem merges by productId: an existing line is incremented, a new
// product is appended with quantity 1. The line snapshot (title, author,
// price, image) is taken from the live catalog at add time.
func AddCartItem(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/cart/items"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid request body")
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var raw bson.M
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":        productID,
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

		now := time.Now()
		carts := db.Collection("carts")

		// First try the in-place increment; it matches only when the line
		// already exists.
		res, err := carts.UpdateOne(ctx,
			cartLineMatchFilter(userID, productID),
			cartIncrementUpdate(now),
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		if res.MatchedCount == 0 {
			line := models.CartLine{
				ProductID: productID,
				Title:     book.Title,
				Author:    book.Author,
				Price:     book.Price,
				ImageURL:  book.ImageURL,
				Quantity:  1,
				AddedAt:   now,
			}

			_, err = carts.UpdateOne(ctx,
				cartLineAbsentFilter(userID, productID),
				cartAppendUpdate(line, now),
				options.Update().SetUpsert(true),
			)
			if mongo.IsDuplicateKeyError(err) {
				// Lost the race against a concurrent add of the same
				// product; fall back to the increment.
				_, err = carts.UpdateOne(ctx,
					cartLineMatchFilter(userID, productID),
					cartIncrementUpdate(now),
				)
			}
			if err != nil {
				respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		logger.Info("cart item added", zap.String("productId", productID.Hex()))
		c.JSON(http.StatusOK, gin.H{"message": "item added"})
	}
}

// UpdateCartItemQuantity applies a signed delta with a floor of 1.
func UpdateCartItemQuantity(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /user/cart/items/:productId"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid productId")
			return
		}

		var req updateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "delta is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("carts").UpdateOne(ctx,
			cartLineMatchFilter(userID, productID),
			cartQuantityPipeline(productID, req.Delta, time.Now()),
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, logger, http.StatusNotFound, route, "cart line not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "quantity updated"})
	}
}

// RemoveCartItem deletes one line regardless of its quantity.
func RemoveCartItem(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/cart/items/:productId"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		productID, err := primitive.ObjectIDFromHex(c.Param("productId"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err = db.Collection("carts").UpdateOne(ctx,
			bson.M{"_id": userID},
			cartRemoveUpdate(productID, time.Now()),
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "item removed"})
	}
}

// ClearCart empties the cart document without deleting it.
func ClearCart(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/cart"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		_, err := db.Collection("carts").UpdateOne(ctx,
			bson.M{"_id": userID},
			cartClearUpdate(time.Now()),
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}
