package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"bookstore/internal/events"
	"bookstore/internal/middleware"
	"bookstore/internal/models"
)

type checkoutItem struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"imageUrl"`
	Quantity  int     `json:"quantity"`
}

type checkoutRequest struct {
	Items         []checkoutItem      `json:"items"`
	Address       models.OrderAddress `json:"address"`
	PaymentMethod string              `json:"paymentMethod"`
}

// buildOrderFromCheckout validates the checkout payload and assembles the
// order document. The total is recomputed server-side from the line prices
// and the status is always stamped pending regardless of what the client
// sent.
func buildOrderFromCheckout(req checkoutRequest, userID primitive.ObjectID, idempotencyKey string, now time.Time) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, fmt.Errorf("order must contain at least one item")
	}

	switch req.PaymentMethod {
	case "cod", "upi":
	default:
		return models.Order{}, fmt.Errorf("unsupported payment method")
	}

	addr := req.Address
	for field, value := range map[string]string{
		"fullName":     addr.FullName,
		"addressLine1": addr.AddressLine1,
		"city":         addr.City,
		"state":        addr.State,
		"pincode":      addr.Pincode,
		"phone":        addr.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			return models.Order{}, fmt.Errorf("address field %s is required", field)
		}
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	total := 0.0
	for i, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return models.Order{}, fmt.Errorf("item %d has an invalid productId", i)
		}
		if strings.TrimSpace(item.Title) == "" {
			return models.Order{}, fmt.Errorf("item %d is missing a title", i)
		}
		if item.Quantity < 1 {
			return models.Order{}, fmt.Errorf("item %d has an invalid quantity", i)
		}
		if item.Price <= 0 {
			return models.Order{}, fmt.Errorf("item %d has an invalid price", i)
		}

		items = append(items, models.OrderItem{
			ProductID: productID,
			Title:     item.Title,
			Author:    item.Author,
			Price:     item.Price,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
		total += item.Price * float64(item.Quantity)
	}

	return models.Order{
		UserID:         userID,
		Items:          items,
		Address:        addr,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    total,
		Status:         StatusPending,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}, nil
}

// Checkout places an order and removes the purchased lines from the cart in
// a single transaction. Retried submissions carrying the same
// Idempotency-Key return the already-created order instead of a duplicate.
func Checkout(db *mongo.Database, publisher events.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/checkout"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid request body")
			return
		}

		idempotencyKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if idempotencyKey == "" {
			idempotencyKey = uuid.NewString()
		}

		now := time.Now()
		order, err := buildOrderFromCheckout(req, userID, idempotencyKey, now)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		productIDs := make([]primitive.ObjectID, 0, len(order.Items))
		for _, item := range order.Items {
			productIDs = append(productIDs, item.ProductID)
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			res, err := db.Collection("orders").InsertOne(sc, order)
			if err != nil {
				return nil, err
			}

			_, err = db.Collection("carts").UpdateOne(sc,
				bson.M{"_id": userID},
				cartRemoveManyUpdate(productIDs, now),
			)
			if err != nil {
				return nil, err
			}

			return res.InsertedID, nil
		})
		if mongo.IsDuplicateKeyError(err) {
			var existing models.Order
			findErr := db.Collection("orders").FindOne(ctx, bson.M{
				"userId":         userID,
				"idempotencyKey": idempotencyKey,
			}).Decode(&existing)
			if findErr != nil {
				respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
				return
			}
			c.JSON(http.StatusOK, gin.H{"orderId": existing.ID.Hex(), "status": existing.Status})
			return
		}
		if err != nil {
			middleware.RecordOrderPlaced("failed")
			respondWithError(c, logger, http.StatusInternalServerError, route, "failed to place order")
			return
		}

		order.ID = result.(primitive.ObjectID)
		middleware.RecordOrderPlaced("success")

		if err := publisher.Publish(ctx, events.OrderEvent{
			Type:        events.TypeOrderCreated,
			OrderID:     order.ID.Hex(),
			UserID:      userID.Hex(),
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			OccurredAt:  now,
		}); err != nil {
			logger.Warn("failed to publish order event", zap.Error(err))
		}

		logger.Info("order placed",
			zap.String("orderId", order.ID.Hex()),
			zap.Float64("totalAmount", order.TotalAmount),
		)
		c.JSON(http.StatusCreated, gin.H{"orderId": order.ID.Hex(), "status": order.Status})
	}
}
