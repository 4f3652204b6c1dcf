package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoCartRepository_AddItem(t *testing.T) {
	mt := newMockDeployment(t)
	ctx := context.Background()
	user, product := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("increments existing line", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.AddItem(ctx, user, product, 2))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 1)
		assert.Equal(mt, user, lookupID(mt, ups[0], "q", "user"))
		assert.Equal(mt, product, lookupID(mt, ups[0], "q", "items.product"))
		assert.EqualValues(mt, 2, ups[0].Lookup("u", "$inc", "items.$.quantity").AsInt64())
	})

	mt.Run("pushes a line only when absent", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), upserted())

		require.NoError(mt, repo.AddItem(ctx, user, product, 3))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 2)
		push := ups[1]
		assert.Equal(mt, user, lookupID(mt, push, "q", "user"))
		assert.Equal(mt, product, lookupID(mt, push, "q", "items.product", "$ne"))
		assert.Equal(mt, product, lookupID(mt, push, "u", "$push", "items", "product"))
		assert.EqualValues(mt, 3, push.Lookup("u", "$push", "items", "quantity").AsInt64())
		assert.True(mt, push.Lookup("upsert").Boolean())
	})

	mt.Run("retries after losing the cart insert race", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), duplicateKey(), matched(1))

		require.NoError(mt, repo.AddItem(ctx, user, product, 1))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 3)
		assert.Equal(mt, product, lookupID(mt, ups[2], "q", "items.product"))
		assert.EqualValues(mt, 1, ups[2].Lookup("u", "$inc", "items.$.quantity").AsInt64())
	})

	mt.Run("gives up after a second duplicate", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), duplicateKey(), matched(0), duplicateKey())

		err := repo.AddItem(ctx, user, product, 1)
		assert.ErrorIs(mt, err, ErrDuplicateKey)
		assert.Len(mt, sentUpdates(mt), 4)
	})
}

func TestMongoCartRepository_SetItemQuantity(t *testing.T) {
	mt := newMockDeployment(t)
	ctx := context.Background()
	user, product := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("updates the line", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.SetItemQuantity(ctx, user, product, 5))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 1)
		assert.EqualValues(mt, 5, ups[0].Lookup("u", "$set", "items.$.quantity").AsInt64())
	})

	mt.Run("missing cart", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), counted(0))

		assert.ErrorIs(mt, repo.SetItemQuantity(ctx, user, product, 5), ErrNotFound)
	})

	mt.Run("missing line", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), counted(1))

		assert.ErrorIs(mt, repo.SetItemQuantity(ctx, user, product, 5), ErrNotInCart)
	})
}

func TestMongoCartRepository_RemoveAndClear(t *testing.T) {
	mt := newMockDeployment(t)
	ctx := context.Background()
	user, product := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("remove pulls the line", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.RemoveItem(ctx, user, product))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 1)
		assert.Equal(mt, product, lookupID(mt, ups[0], "u", "$pull", "items", "product"))
	})

	mt.Run("remove without cart", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0))

		assert.ErrorIs(mt, repo.RemoveItem(ctx, user, product), ErrNotFound)
	})

	mt.Run("clear without cart", func(mt *mtest.T) {
		repo := &MongoCartRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0))

		assert.ErrorIs(mt, repo.Clear(ctx, user), ErrNotFound)
	})
}
