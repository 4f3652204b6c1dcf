package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoProductRepository_UpsertRating(t *testing.T) {
	mt := newMockDeployment(t)
	ctx := context.Background()
	product, user := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("overwrites the user's rating", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.UpsertRating(ctx, product, user, 4))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 1)
		assert.Equal(mt, product, lookupID(mt, ups[0], "q", "_id"))
		assert.Equal(mt, user, lookupID(mt, ups[0], "q", "ratings.user"))
		assert.EqualValues(mt, 4, ups[0].Lookup("u", "$set", "ratings.$.rating").AsInt64())
	})

	mt.Run("pushes a first rating guarded by user", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), matched(1))

		require.NoError(mt, repo.UpsertRating(ctx, product, user, 5))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 2)
		push := ups[1]
		assert.Equal(mt, user, lookupID(mt, push, "q", "ratings.user", "$ne"))
		assert.Equal(mt, user, lookupID(mt, push, "u", "$push", "ratings", "user"))
		assert.EqualValues(mt, 5, push.Lookup("u", "$push", "ratings", "rating").AsInt64())
		upsert, _ := push.Lookup("upsert").BooleanOK()
		assert.False(mt, upsert)
	})

	mt.Run("falls back to set when a concurrent push won", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), matched(0), matched(1))

		require.NoError(mt, repo.UpsertRating(ctx, product, user, 2))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 3)
		assert.EqualValues(mt, 2, ups[2].Lookup("u", "$set", "ratings.$.rating").AsInt64())
	})

	mt.Run("missing product", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), matched(0), matched(0))

		assert.ErrorIs(mt, repo.UpsertRating(ctx, product, user, 3), ErrNotFound)
	})
}

func TestMongoProductRepository_UpsertReview(t *testing.T) {
	mt := newMockDeployment(t)
	ctx := context.Background()
	product, user := primitive.NewObjectID(), primitive.NewObjectID()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("rewrites the user's review", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.UpsertReview(ctx, product, user, 3, "fine", at))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 1)
		assert.Equal(mt, user, lookupID(mt, ups[0], "q", "reviews.user"))
		set := ups[0].Lookup("u", "$set").Document()
		assert.EqualValues(mt, 3, set.Lookup("reviews.$.rating").AsInt64())
		assert.Equal(mt, "fine", set.Lookup("reviews.$.comment").StringValue())
		assert.Equal(mt, at, set.Lookup("reviews.$.createdAt").Time().UTC())
	})

	mt.Run("pushes a first review with its own id", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), matched(1))

		require.NoError(mt, repo.UpsertReview(ctx, product, user, 5, "great", at))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 2)
		push := ups[1]
		assert.Equal(mt, user, lookupID(mt, push, "q", "reviews.user", "$ne"))
		assert.Equal(mt, user, lookupID(mt, push, "u", "$push", "reviews", "user"))
		assert.False(mt, lookupID(mt, push, "u", "$push", "reviews", "_id").IsZero())
		assert.Equal(mt, "great", push.Lookup("u", "$push", "reviews", "comment").StringValue())
	})

	mt.Run("missing product", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0), matched(0), matched(0))

		assert.ErrorIs(mt, repo.UpsertReview(ctx, product, user, 5, "great", at), ErrNotFound)
	})
}

func TestMongoProductRepository_DeleteReview(t *testing.T) {
	mt := newMockDeployment(t)
	ctx := context.Background()
	product, review := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("pulls the review", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(1))

		require.NoError(mt, repo.DeleteReview(ctx, product, review))

		ups := sentUpdates(mt)
		require.Len(mt, ups, 1)
		assert.Equal(mt, review, lookupID(mt, ups[0], "u", "$pull", "reviews", "_id"))
	})

	mt.Run("unknown review", func(mt *mtest.T) {
		repo := &MongoProductRepository{coll: mt.Coll}
		mt.AddMockResponses(matched(0))

		assert.ErrorIs(mt, repo.DeleteReview(ctx, product, review), ErrNotFound)
	})
}
