package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/storefront/pkg/models"
)

type MongoCartRepository struct {
	coll *mongo.Collection
}

func (r *MongoCartRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart); err != nil {
		return nil, mongoErr(err)
	}
	return &cart, nil
}

// AddItem increments an existing line or pushes a new one, creating the
// cart on first use. Two concurrent first adds for the same user race on the
// unique user index; the loser retries once and lands on the existing cart.
func (r *MongoCartRepository) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	err := r.addItem(ctx, userID, productID, quantity)
	if errors.Is(err, ErrDuplicateKey) {
		err = r.addItem(ctx, userID, productID, quantity)
	}
	return err
}

func (r *MongoCartRepository) addItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	now := time.Now()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": userID, "items.product": productID},
		bson.M{
			"$inc": bson.M{"items.$.quantity": quantity},
			"$set": bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"user": userID, "items.product": bson.M{"$ne": productID}},
		bson.M{
			"$push":        bson.M{"items": models.CartItem{Product: productID, Quantity: quantity}},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return mongoErr(err)
}

func (r *MongoCartRepository) SetItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": userID, "items.product": productID},
		bson.M{"$set": bson.M{"items.$.quantity": quantity, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.missing(ctx, userID)
}

func (r *MongoCartRepository) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"product": productID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCartRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// missing tells a missing cart apart from a missing line.
func (r *MongoCartRepository) missing(ctx context.Context, userID primitive.ObjectID) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user": userID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrNotInCart
}
