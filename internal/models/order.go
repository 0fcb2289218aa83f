package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a frozen copy of a book's fields at order-creation time.
// Later catalog edits never change a placed order.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Title     string             `bson:"title" json:"title"`
	Author    string             `bson:"author" json:"author"`
	Price     float64            `bson:"price" json:"price"`
	ImageURL  string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// OrderAddress captures the delivery address collected at checkout.
type OrderAddress struct {
	FullName     string `bson:"fullName" json:"fullName"`
	AddressLine1 string `bson:"addressLine1" json:"addressLine1"`
	AddressLine2 string `bson:"addressLine2,omitempty" json:"addressLine2,omitempty"`
	City         string `bson:"city" json:"city"`
	State        string `bson:"state" json:"state"`
	Pincode      string `bson:"pincode" json:"pincode"`
	Phone        string `bson:"phone" json:"phone"`
}

// Order is the persisted order document. Orders are append-only: after
// creation only the status field changes.
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	Items          []OrderItem        `bson:"items" json:"items"`
	Address        OrderAddress       `bson:"address" json:"address"`
	PaymentMethod  string             `bson:"paymentMethod" json:"paymentMethod"`
	TotalAmount    float64            `bson:"totalAmount" json:"totalAmount"`
	Status         string             `bson:"status" json:"status"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
