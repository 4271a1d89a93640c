package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes every collection relies on. It is
// idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	sets := map[string][]mongo.IndexModel{
		PrincipalCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_users_email").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("idx_users_name").SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "passwordResetToken", Value: 1}},
				Options: options.Index().SetName("idx_users_reset_token").
					SetPartialFilterExpression(bson.D{{Key: "passwordResetToken", Value: bson.D{{Key: "$exists", Value: true}}}}),
			},
		},
		TourCollection: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("idx_tours_name").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}},
				Options: options.Index().SetName("idx_tours_price_rating"),
			},
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetName("idx_tours_slug"),
			},
			{
				Keys:    bson.D{{Key: "startLocation", Value: "2dsphere"}},
				Options: options.Index().SetName("idx_tours_start_location"),
			},
		},
		ReviewCollection: {
			{
				Keys:    bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}},
				Options: options.Index().SetName("idx_reviews_tour_user").SetUnique(true),
			},
		},
	}
	for _, coll := range []string{PrincipalCollection, TourCollection, ReviewCollection} {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, sets[coll]); err != nil {
			return fmt.Errorf("indexes %s: %w", coll, err)
		}
	}
	return nil
}
