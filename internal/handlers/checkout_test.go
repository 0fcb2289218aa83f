package handlers

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookstore/internal/models"
)

func validCheckoutRequest() checkoutRequest {
	return checkoutRequest{
		Items: []checkoutItem{
			{ProductID: primitive.NewObjectID().Hex(), Title: "Book A", Author: "A", Price: 200, Quantity: 2},
			{ProductID: primitive.NewObjectID().Hex(), Title: "Book B", Author: "B", Price: 99.5, Quantity: 1},
		},
		Address: models.OrderAddress{
			FullName:     "Asha Rao",
			AddressLine1: "12 MG Road",
			City:         "Bengaluru",
			State:        "Karnataka",
			Pincode:      "560001",
			Phone:        "9876543210",
		},
		PaymentMethod: "cod",
	}
}

func TestBuildOrderFromCheckout(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now()

	order, err := buildOrderFromCheckout(validCheckoutRequest(), userID, "key-1", now)
	if err != nil {
		t.Fatalf("buildOrderFromCheckout failed: %v", err)
	}

	if order.UserID != userID {
		t.Fatal("order not stamped with caller id")
	}
	if order.TotalAmount != 499.5 {
		t.Fatalf("totalAmount = %v, want 499.5", order.TotalAmount)
	}
	if order.Status != StatusPending {
		t.Fatalf("status = %q, want %q", order.Status, StatusPending)
	}
	if order.IdempotencyKey != "key-1" {
		t.Fatalf("idempotencyKey = %q, want key-1", order.IdempotencyKey)
	}
	if !order.CreatedAt.Equal(now) {
		t.Fatal("createdAt not stamped")
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}
}

func TestBuildOrderFromCheckoutRejectsEmptyCart(t *testing.T) {
	req := validCheckoutRequest()
	req.Items = nil

	if _, err := buildOrderFromCheckout(req, primitive.NewObjectID(), "k", time.Now()); err == nil {
		t.Fatal("expected error for empty items")
	}
}

func TestBuildOrderFromCheckoutRejectsBadPayment(t *testing.T) {
	req := validCheckoutRequest()
	req.PaymentMethod = "card"

	if _, err := buildOrderFromCheckout(req, primitive.NewObjectID(), "k", time.Now()); err == nil {
		t.Fatal("expected error for unsupported payment method")
	}
}

func TestBuildOrderFromCheckoutRejectsMissingAddress(t *testing.T) {
	req := validCheckoutRequest()
	req.Address.Pincode = "  "

	_, err := buildOrderFromCheckout(req, primitive.NewObjectID(), "k", time.Now())
	if err == nil {
		t.Fatal("expected error for missing pincode")
	}
	if !strings.Contains(err.Error(), "pincode") {
		t.Fatalf("error %q does not name the missing field", err)
	}
}

func TestBuildOrderFromCheckoutRejectsBadItems(t *testing.T) {
	base := validCheckoutRequest()

	badQuantity := base
	badQuantity.Items = []checkoutItem{{ProductID: primitive.NewObjectID().Hex(), Title: "X", Price: 100, Quantity: 0}}
	if _, err := buildOrderFromCheckout(badQuantity, primitive.NewObjectID(), "k", time.Now()); err == nil {
		t.Fatal("expected error for zero quantity")
	}

	badPrice := base
	badPrice.Items = []checkoutItem{{ProductID: primitive.NewObjectID().Hex(), Title: "X", Price: 0, Quantity: 1}}
	if _, err := buildOrderFromCheckout(badPrice, primitive.NewObjectID(), "k", time.Now()); err == nil {
		t.Fatal("expected error for zero price")
	}

	badID := base
	badID.Items = []checkoutItem{{ProductID: "not-an-id", Title: "X", Price: 100, Quantity: 1}}
	if _, err := buildOrderFromCheckout(badID, primitive.NewObjectID(), "k", time.Now()); err == nil {
		t.Fatal("expected error for malformed productId")
	}
}
