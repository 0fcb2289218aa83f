package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartLine is one selected book inside a cart. Title, author, price and
// image are copied from the catalog at add time so the cart renders without
// a second lookup; the order snapshot is taken from these fields too.
type CartLine struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Title     string             `bson:"title" json:"title"`
	Author    string             `bson:"author" json:"author"`
	Price     float64            `bson:"price" json:"price"`
	ImageURL  string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	AddedAt   time.Time          `bson:"addedAt" json:"addedAt"`
}

// Cart is the per-user cart document, keyed by the user id. It is created
// lazily on first add and emptied, never deleted, after checkout.
type Cart struct {
	UserID    primitive.ObjectID `bson:"_id" json:"userId"`
	Items     []CartLine         `bson:"items" json:"items"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
