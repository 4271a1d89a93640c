package repo

import (
	"context"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"natours-api/internal/domain"
	"natours-api/internal/query"
)

const ReviewCollection = "reviews"

type ReviewMongo struct {
	c *mongo.Collection
}

func NewReviewMongo(db *mongo.Database) *ReviewMongo {
	return &ReviewMongo{c: db.Collection(ReviewCollection)}
}

// ForTour narrows list queries to one tour's reviews. A zero id lists all.
func (r *ReviewMongo) ForTour(tour primitive.ObjectID) query.Executor[domain.Review] {
	return &scopedReviews{r: r, tour: tour}
}

type scopedReviews struct {
	r    *ReviewMongo
	tour primitive.ObjectID
}

func (s *scopedReviews) filter(conds []query.Condition) bson.D {
	f := query.MongoFilter(conds)
	if !s.tour.IsZero() {
		f = append(f, bson.E{Key: "tour", Value: s.tour})
	}
	return f
}

func (s *scopedReviews) Count(ctx context.Context, conds []query.Condition) (int64, error) {
	return s.r.c.CountDocuments(ctx, s.filter(conds))
}

func (s *scopedReviews) Find(ctx context.Context, spec query.Spec) ([]domain.Review, error) {
	cur, err := s.r.c.Find(ctx, s.filter(spec.Conditions), spec.FindOptions())
	if err != nil {
		return nil, err
	}
	var out []domain.Review
	err = cur.All(ctx, &out)
	return out, err
}

func (r *ReviewMongo) Get(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	var rv domain.Review
	if err := r.c.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rv); err != nil {
		return nil, mongoErr(err, domain.ErrReviewNotFound)
	}
	return &rv, nil
}

func (r *ReviewMongo) Create(ctx context.Context, rv *domain.Review) error {
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, rv)
	return mongoErr(err, nil)
}

// RatingStats returns the review count and mean rating of a tour, the
// average rounded to one decimal.
func (r *ReviewMongo) RatingStats(ctx context.Context, tour primitive.ObjectID) (int, float64, error) {
	cur, err := r.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "tour", Value: tour}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tour"},
			{Key: "nRating", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	})
	if err != nil {
		return 0, 0, err
	}
	var rows []struct {
		N   int     `bson:"nRating"`
		Avg float64 `bson:"avgRating"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, domain.DefaultRatingsAverage, nil
	}
	return rows[0].N, math.Round(rows[0].Avg*10) / 10, nil
}

func (r *ReviewMongo) InsertMany(ctx context.Context, reviews []domain.Review) error {
	docs := make([]any, len(reviews))
	for i := range reviews {
		docs[i] = reviews[i]
	}
	_, err := r.c.InsertMany(ctx, docs)
	return mongoErr(err, nil)
}

func (r *ReviewMongo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
