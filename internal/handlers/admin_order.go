package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"bookstore/internal/events"
	"bookstore/internal/models"
)

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// adminOrderFilter builds the list filter from the status and paymentMethod
// query params; empty params mean no constraint.
func adminOrderFilter(status, paymentMethod string) (bson.M, error) {
	filter := bson.M{}

	if status != "" {
		if !isValidOrderStatus(status) {
			return nil, errors.New("invalid status filter")
		}
		filter["status"] = status
	}

	switch paymentMethod {
	case "":
	case "cod", "upi":
		filter["paymentMethod"] = paymentMethod
	default:
		return nil, errors.New("invalid paymentMethod filter")
	}

	return filter, nil
}

// GetAllOrders lists every order across users, newest first, paginated.
func GetAllOrders(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		filter, err := adminOrderFilter(c.Query("status"), c.Query("paymentMethod"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		orders := db.Collection("orders")

		total, err := orders.CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		findOpts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := orders.Find(ctx, filter, findOpts)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		results := make([]models.Order, 0)
		if err := cursor.All(ctx, &results); err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": results,
			"page":   page,
			"limit":  limit,
			"total":  total,
		})
	}
}

// UpdateOrderStatus moves an order to a later status. Backward moves and
// unknown statuses are rejected.
func UpdateOrderStatus(db *mongo.Database, publisher events.Publisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/orders/:id/status"
		defer handlePanic(c, logger, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid order id")
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "status is required")
			return
		}
		if !isValidOrderStatus(req.Status) {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, logger, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		if !canTransitionStatus(order.Status, req.Status) {
			respondWithError(c, logger, http.StatusBadRequest, route, "invalid status transition")
			return
		}

		// Filter on the current status so a concurrent admin update cannot
		// apply a backward transition.
		res, err := db.Collection("orders").UpdateOne(ctx,
			bson.M{"_id": orderID, "status": order.Status},
			bson.M{"$set": bson.M{"status": req.Status}},
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, logger, http.StatusConflict, route, "order status changed concurrently")
			return
		}

		if err := publisher.Publish(ctx, events.OrderEvent{
			Type:        events.TypeOrderStatusChanged,
			OrderID:     orderID.Hex(),
			UserID:      order.UserID.Hex(),
			Status:      req.Status,
			TotalAmount: order.TotalAmount,
			OccurredAt:  time.Now(),
		}); err != nil {
			logger.Warn("failed to publish order event", zap.Error(err))
		}

		logger.Info("order status updated",
			zap.String("orderId", orderID.Hex()),
			zap.String("from", order.Status),
			zap.String("to", req.Status),
		)
		c.JSON(http.StatusOK, gin.H{"message": "status updated", "status": req.Status})
	}
}
