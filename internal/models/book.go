package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Author        string             `bson:"author" json:"author"`
	Price         float64            `bson:"price" json:"price"`
	OriginalPrice float64            `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	OfferPercent  float64            `bson:"offerPercent" json:"offerPercent"`
	IsOnOffer     bool               `bson:"-" json:"isOnOffer"`
	Category      string             `bson:"category" json:"category"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	StockQuantity int                `bson:"stockQuantity" json:"stockQuantity"`
	InStock       bool               `bson:"-" json:"inStock"`
	Publisher     string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	Language      string             `bson:"language,omitempty" json:"language,omitempty"`
	ImageURL      string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Visibility    bool               `bson:"visibility" json:"visibility"`
	Rating        float64            `bson:"rating" json:"rating"`
	ReviewCount   int                `bson:"reviewCount" json:"reviewCount"`
	IsDeleted     bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt     *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
