package handlers

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bookstore/internal/models"
)

func TestCartIncrementUpdate(t *testing.T) {
	now := time.Now()
	update := cartIncrementUpdate(now)

	inc, ok := update["$inc"].(bson.M)
	if !ok {
		t.Fatal("expected $inc stage")
	}
	if inc["items.$.quantity"] != 1 {
		t.Fatalf("increment = %v, want 1", inc["items.$.quantity"])
	}
	set, ok := update["$set"].(bson.M)
	if !ok || set["updatedAt"] != now {
		t.Fatal("expected updatedAt to be stamped")
	}
}

func TestCartAppendUpdate(t *testing.T) {
	line := models.CartLine{
		ProductID: primitive.NewObjectID(),
		Title:     "The Go Programming Language",
		Price:     450,
		Quantity:  1,
	}
	update := cartAppendUpdate(line, time.Now())

	push, ok := update["$push"].(bson.M)
	if !ok {
		t.Fatal("expected $push stage")
	}
	pushed, ok := push["items"].(models.CartLine)
	if !ok {
		t.Fatal("expected pushed value to be a cart line")
	}
	if pushed.ProductID != line.ProductID || pushed.Quantity != 1 {
		t.Fatalf("pushed line = %+v, want %+v", pushed, line)
	}
}

// unpackQuantityExpr walks the pipeline built by cartQuantityPipeline down
// to the per-line condition and the quantity expression: the matched product
// id, the clamp floor, and the delta inside the $add.
func unpackQuantityExpr(t *testing.T, pipeline mongo.Pipeline) (primitive.ObjectID, int, int) {
	t.Helper()

	if len(pipeline) != 1 {
		t.Fatalf("pipeline stages = %d, want 1", len(pipeline))
	}
	stage := pipeline[0]
	if stage[0].Key != "$set" {
		t.Fatalf("stage key = %s, want $set", stage[0].Key)
	}

	set := stage[0].Value.(bson.M)
	mapExpr, ok := set["items"].(bson.M)["$map"].(bson.M)
	if !ok {
		t.Fatal("expected items to be rewritten via $map")
	}

	cond, ok := mapExpr["in"].(bson.M)["$cond"].(bson.A)
	if !ok || len(cond) != 3 {
		t.Fatal("expected a three-branch $cond per line")
	}
	if cond[2] != "$$line" {
		t.Fatal("unmatched lines must pass through untouched")
	}

	eq := cond[0].(bson.M)["$eq"].(bson.A)
	matchedID, ok := eq[1].(primitive.ObjectID)
	if !ok {
		t.Fatal("expected $eq against the product id")
	}

	merge := cond[1].(bson.M)["$mergeObjects"].(bson.A)
	if merge[0] != "$$line" {
		t.Fatal("merge must start from the existing line")
	}
	maxArgs := merge[1].(bson.M)["quantity"].(bson.M)["$max"].(bson.A)
	floor, ok := maxArgs[0].(int)
	if !ok {
		t.Fatal("expected a constant clamp floor")
	}
	addArgs := maxArgs[1].(bson.M)["$add"].(bson.A)
	if addArgs[0] != "$$line.quantity" {
		t.Fatal("delta must apply to the line's current quantity")
	}
	delta, ok := addArgs[1].(int)
	if !ok {
		t.Fatal("expected the delta inside $add")
	}

	return matchedID, floor, delta
}

// TestCartQuantityPipelineClampsAtOne checks the quantity arithmetic the
// pipeline performs server-side: quantity never drops below 1, so
// decrementing a quantity-1 line leaves it at 1.
func TestCartQuantityPipelineClampsAtOne(t *testing.T) {
	pid := primitive.NewObjectID()

	cases := []struct {
		name     string
		quantity int
		delta    int
		want     int
	}{
		{"decrement at floor is a no-op", 1, -1, 1},
		{"decrement above floor", 5, -3, 2},
		{"large decrement clamps", 2, -100, 1},
		{"increment", 1, 4, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pipeline := cartQuantityPipeline(pid, tc.delta, time.Now())
			matchedID, floor, delta := unpackQuantityExpr(t, pipeline)

			if matchedID != pid {
				t.Fatalf("pipeline targets %s, want %s", matchedID.Hex(), pid.Hex())
			}
			if floor != 1 {
				t.Fatalf("clamp floor = %d, want 1", floor)
			}
			if delta != tc.delta {
				t.Fatalf("delta = %d, want %d", delta, tc.delta)
			}

			got := tc.quantity + delta
			if floor > got {
				got = floor
			}
			if got != tc.want {
				t.Fatalf("quantity %d with delta %d = %d, want %d", tc.quantity, tc.delta, got, tc.want)
			}
		})
	}
}

func TestCartLineFilters(t *testing.T) {
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	match := cartLineMatchFilter(userID, productID)
	if match["_id"] != userID {
		t.Fatal("match filter must select the user's cart")
	}
	if match["items.productId"] != productID {
		t.Fatal("match filter must require an existing line for the product")
	}

	absent := cartLineAbsentFilter(userID, productID)
	if absent["_id"] != userID {
		t.Fatal("absent filter must select the user's cart")
	}
	ne, ok := absent["items.productId"].(bson.M)
	if !ok || ne["$ne"] != productID {
		t.Fatal("absent filter must exclude carts already holding the line")
	}
}

// Repeated adds of one product merge into a single line whose quantity
// equals the number of adds; a different product starts its own line. The
// test drives the two write paths AddCartItem issues (increment when the
// match filter hits, append under the absent filter otherwise) against an
// in-memory cart.
func TestAddItemMergesRepeatedAdds(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now()

	quantities := map[primitive.ObjectID]int{}

	add := func(pid primitive.ObjectID) {
		if _, exists := quantities[pid]; exists {
			inc, ok := cartIncrementUpdate(now)["$inc"].(bson.M)["items.$.quantity"].(int)
			if !ok {
				t.Fatal("increment update must $inc the matched line's quantity")
			}
			quantities[pid] += inc
			return
		}

		absent := cartLineAbsentFilter(userID, pid)
		if absent["items.productId"].(bson.M)["$ne"] != pid {
			t.Fatal("append filter must refuse carts already holding the line")
		}
		line := models.CartLine{ProductID: pid, Quantity: 1, AddedAt: now}
		pushed := cartAppendUpdate(line, now)["$push"].(bson.M)["items"].(models.CartLine)
		quantities[pid] = pushed.Quantity
	}

	bookA := primitive.NewObjectID()
	bookB := primitive.NewObjectID()

	add(bookA)
	add(bookA)
	add(bookA)
	add(bookB)

	if quantities[bookA] != 3 {
		t.Fatalf("quantity = %d after 3 adds, want 3", quantities[bookA])
	}
	if quantities[bookB] != 1 {
		t.Fatalf("quantity = %d after 1 add, want 1", quantities[bookB])
	}
	if len(quantities) != 2 {
		t.Fatalf("lines = %d, want one per product", len(quantities))
	}
}

func TestCartRemoveManyUpdate(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
	update := cartRemoveManyUpdate(ids, time.Now())

	pull, ok := update["$pull"].(bson.M)
	if !ok {
		t.Fatal("expected $pull stage")
	}
	cond, ok := pull["items"].(bson.M)
	if !ok {
		t.Fatal("expected items condition")
	}
	byID, ok := cond["productId"].(bson.M)
	if !ok {
		t.Fatal("expected productId condition")
	}
	in, ok := byID["$in"].([]primitive.ObjectID)
	if !ok || len(in) != 2 {
		t.Fatalf("expected $in with 2 ids, got %v", byID["$in"])
	}
}

func TestCartClearUpdate(t *testing.T) {
	update := cartClearUpdate(time.Now())

	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatal("expected $set stage")
	}
	items, ok := set["items"].(bson.A)
	if !ok || len(items) != 0 {
		t.Fatalf("expected items reset to empty array, got %v", set["items"])
	}
}

func TestCartTotal(t *testing.T) {
	lines := []models.CartLine{
		{Price: 200, Quantity: 2},
		{Price: 99.5, Quantity: 1},
	}
	if got := cartTotal(lines); got != 499.5 {
		t.Fatalf("cartTotal = %v, want 499.5", got)
	}
}

func TestCartTotalFloorsQuantity(t *testing.T) {
	lines := []models.CartLine{{Price: 100, Quantity: 0}}
	if got := cartTotal(lines); got != 100 {
		t.Fatalf("cartTotal = %v, want 100 with quantity floored to 1", got)
	}
}

func TestCartTotalEmpty(t *testing.T) {
	if got := cartTotal(nil); got != 0 {
		t.Fatalf("cartTotal(nil) = %v, want 0", got)
	}
}
