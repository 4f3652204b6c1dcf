package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/storefront/pkg/models"
)

type MongoProductRepository struct {
	coll *mongo.Collection
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	if product.Ratings == nil {
		product.Ratings = []models.Rating{}
	}
	if product.Reviews == nil {
		product.Reviews = []models.Review{}
	}
	_, err := r.coll.InsertOne(ctx, product)
	return mongoErr(err)
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, mongoErr(err)
	}
	return &product, nil
}

func (r *MongoProductRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *MongoProductRepository) ExistsBySKU(ctx context.Context, sku string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"sku": sku}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoProductRepository) List(ctx context.Context, f ProductFilter) ([]*models.Product, int64, error) {
	filter := productFilter(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	order := f.SortOrder
	if order == 0 {
		order = -1
	}
	sortBy := f.SortBy
	if !ProductSortFields[sortBy] {
		sortBy = "createdAt"
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortBy, Value: order}, {Key: "_id", Value: order}}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := []*models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func productFilter(f ProductFilter) bson.M {
	filter := bson.M{}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}
	if f.IsFeatured != nil {
		filter["isFeatured"] = *f.IsFeatured
	}
	if f.Search != "" {
		re := containsRegex(f.Search)
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"brand": re},
		}
	}
	if f.Category != "" {
		filter["category"] = containsRegex(f.Category)
	}
	if f.Brand != "" {
		filter["brand"] = containsRegex(f.Brand)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	return filter
}

// containsRegex matches s literally, case-insensitively, anywhere in a field.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func (r *MongoProductRepository) Update(ctx context.Context, p *models.Product) error {
	set := bson.M{
		"name":               p.Name,
		"description":        p.Description,
		"price":              p.Price,
		"discountPercentage": p.DiscountPercentage,
		"category":           p.Category,
		"brand":              p.Brand,
		"images":             p.Images,
		"stock":              p.Stock,
		"sku":                p.SKU,
		"tags":               p.Tags,
		"specifications":     p.Specifications,
		"isActive":           p.IsActive,
		"isFeatured":         p.IsFeatured,
		"updatedAt":          p.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if p.OriginalPrice != nil {
		set["originalPrice"] = *p.OriginalPrice
	} else {
		update["$unset"] = bson.M{"originalPrice": ""}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertRating sets the user's rating in place, or pushes a new one when the
// user has not rated yet. Both paths are single-document atomic updates; a
// push that loses a race to a concurrent push falls back to the set.
func (r *MongoProductRepository) UpsertRating(ctx context.Context, productID, userID primitive.ObjectID, value int) error {
	set := func() (int64, error) {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": productID, "ratings.user": userID},
			bson.M{"$set": bson.M{"ratings.$.rating": value}},
		)
		if err != nil {
			return 0, err
		}
		return res.MatchedCount, nil
	}

	matched, err := set()
	if err != nil || matched > 0 {
		return err
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": productID, "ratings.user": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"ratings": models.Rating{User: userID, Rating: value}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	matched, err = set()
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProductRepository) UpsertReview(ctx context.Context, productID, userID primitive.ObjectID, rating int, comment string, at time.Time) error {
	set := func() (int64, error) {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": productID, "reviews.user": userID},
			bson.M{"$set": bson.M{
				"reviews.$.rating":    rating,
				"reviews.$.comment":   comment,
				"reviews.$.createdAt": at,
			}},
		)
		if err != nil {
			return 0, err
		}
		return res.MatchedCount, nil
	}

	matched, err := set()
	if err != nil || matched > 0 {
		return err
	}

	review := models.Review{
		ID:        primitive.NewObjectID(),
		User:      userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: at,
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": productID, "reviews.user": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"reviews": review}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	matched, err = set()
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProductRepository) DeleteReview(ctx context.Context, productID, reviewID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": productID, "reviews._id": reviewID},
		bson.M{"$pull": bson.M{"reviews": bson.M{"_id": reviewID}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
