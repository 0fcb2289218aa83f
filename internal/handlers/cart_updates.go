package handlers

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookstore/internal/models"
)

// Cart mutations are expressed as field-level atomic updates instead of a
// read-modify-write of the whole document, so concurrent tabs editing the
// same cart cannot silently discard each other's writes.

// cartLineMatchFilter selects the user's cart only when it already holds a
// line for the product, giving the positional increment a target.
func cartLineMatchFilter(userID, productID primitive.ObjectID) bson.M {
	return bson.M{"_id": userID, "items.productId": productID}
}

// cartLineAbsentFilter is the upsert filter for appending a line. It refuses
// to match a cart that already holds the product, so two concurrent adds of
// the same product collide on the _id upsert instead of creating two lines.
func cartLineAbsentFilter(userID, productID primitive.ObjectID) bson.M {
	return bson.M{"_id": userID, "items.productId": bson.M{"$ne": productID}}
}

// cartIncrementUpdate bumps the quantity of an existing line in place.
// Matches only when the filter selected the line via items.productId.
func cartIncrementUpdate(now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"items.$.quantity": 1},
		"$set": bson.M{"updatedAt": now},
	}
}

// cartAppendUpdate pushes a fresh line; used with an upsert so the cart
// document is created lazily on first add.
func cartAppendUpdate(line models.CartLine, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"items": line},
		"$set":  bson.M{"updatedAt": now},
	}
}

// cartQuantityPipeline adjusts one line's quantity by delta with a floor of
// 1: decrementing a quantity-1 line is a no-op, only an explicit remove
// deletes a line. The pipeline runs server-side in a single update.
func cartQuantityPipeline(productID primitive.ObjectID, delta int, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"items": bson.M{"$map": bson.M{
				"input": "$items",
				"as":    "line",
				"in": bson.M{"$cond": bson.A{
					bson.M{"$eq": bson.A{"$$line.productId", productID}},
					bson.M{"$mergeObjects": bson.A{
						"$$line",
						bson.M{"quantity": bson.M{"$max": bson.A{
							1,
							bson.M{"$add": bson.A{"$$line.quantity", delta}},
						}}},
					}},
					"$$line",
				}},
			}},
			"updatedAt": now,
		}}},
	}
}

func cartRemoveUpdate(productID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"$pull": bson.M{"items": bson.M{"productId": productID}},
		"$set":  bson.M{"updatedAt": now},
	}
}

// cartRemoveManyUpdate pulls every purchased line in one write; used by
// checkout inside the order transaction.
func cartRemoveManyUpdate(productIDs []primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"$pull": bson.M{"items": bson.M{"productId": bson.M{"$in": productIDs}}},
		"$set":  bson.M{"updatedAt": now},
	}
}

// cartClearUpdate empties the cart without deleting the document.
func cartClearUpdate(now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{"items": bson.A{}, "updatedAt": now},
	}
}

func cartTotal(lines []models.CartLine) float64 {
	total := 0.0
	for _, line := range lines {
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		total += line.Price * float64(quantity)
	}
	return total
}
