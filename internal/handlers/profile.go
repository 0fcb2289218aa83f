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

type saveProfileRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

// GetProfile returns the caller's saved profile. Absent profile is a 404,
// distinct from a store failure, so the client can show the empty form.
func GetProfile(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/profile"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var profile models.UserProfile
		err := db.Collection("userProfiles").FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, logger, http.StatusNotFound, route, "profile not found")
			return
		}
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, profile)
	}
}

// SaveProfile upserts the caller's profile in one write.
func SaveProfile(db *mongo.Database, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/profile"
		defer handlePanic(c, logger, route)

		userID := c.MustGet("userId").(primitive.ObjectID)

		var req saveProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, "fullName is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		update := bson.M{
			"$set": bson.M{
				"fullName":    strings.TrimSpace(req.FullName),
				"phoneNumber": strings.TrimSpace(req.PhoneNumber),
				"address":     strings.TrimSpace(req.Address),
				"city":        strings.TrimSpace(req.City),
				"state":       strings.TrimSpace(req.State),
				"pincode":     strings.TrimSpace(req.Pincode),
				"updatedAt":   now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		}

		_, err := db.Collection("userProfiles").UpdateOne(ctx,
			bson.M{"_id": userID},
			update,
			options.Update().SetUpsert(true),
		)
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "profile saved"})
	}
}
