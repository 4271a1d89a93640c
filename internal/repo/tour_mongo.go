package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"natours-api/internal/domain"
	"natours-api/internal/query"
)

const TourCollection = "tours"

func hideSecretTours() Interceptor[bson.D] {
	return Interceptor[bson.D]{
		Pre: func(_ Operation, f bson.D) bson.D {
			return append(f, bson.E{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}})
		},
	}
}

func logDuration(log *zap.Logger, coll string) Interceptor[bson.D] {
	return Interceptor[bson.D]{
		Post: func(op Operation, elapsed time.Duration, err error) {
			log.Debug("query", zap.String("collection", coll), zap.String("op", string(op)),
				zap.Duration("took", elapsed), zap.Error(err))
		},
	}
}

type TourMongo struct {
	c     *mongo.Collection
	hooks *Hooks[bson.D]
}

func NewTourMongo(db *mongo.Database, log *zap.Logger) *TourMongo {
	return &TourMongo{
		c: db.Collection(TourCollection),
		hooks: NewHooks[bson.D]().
			On(ReadOps, hideSecretTours()).
			On([]Operation{OpFind}, logDuration(log, TourCollection)),
	}
}

func (r *TourMongo) Count(ctx context.Context, conds []query.Condition) (int64, error) {
	return r.c.CountDocuments(ctx, r.hooks.Before(OpCount, query.MongoFilter(conds)))
}

func (r *TourMongo) Find(ctx context.Context, spec query.Spec) (out []domain.Tour, err error) {
	start := time.Now()
	defer func() { r.hooks.After(OpFind, start, err) }()

	cur, err := r.c.Find(ctx, r.hooks.Before(OpFind, spec.MongoFilter()), spec.FindOptions())
	if err != nil {
		return nil, err
	}
	err = cur.All(ctx, &out)
	return out, err
}

func (r *TourMongo) Get(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	var t domain.Tour
	err := r.c.FindOne(ctx, r.hooks.Before(OpFindOne, bson.D{{Key: "_id", Value: id}})).Decode(&t)
	if err != nil {
		return nil, mongoErr(err, domain.ErrTourNotFound)
	}
	return &t, nil
}

func (r *TourMongo) Create(ctx context.Context, t *domain.Tour) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, t)
	return mongoErr(err, nil)
}

// Patch writes only the named fields of t. Fields that encode as empty are
// unset so omitempty values can be cleared.
func (r *TourMongo) Patch(ctx context.Context, t *domain.Tour, fields []string) error {
	update, err := patchUpdate(t, fields)
	if err != nil {
		return err
	}
	if len(update) == 0 {
		return nil
	}
	res, err := r.c.UpdateOne(ctx, bson.D{{Key: "_id", Value: t.ID}}, update)
	if err != nil {
		return mongoErr(err, domain.ErrTourNotFound)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTourNotFound
	}
	return nil
}

func patchUpdate(t *domain.Tour, fields []string) (bson.D, error) {
	raw, err := bson.Marshal(t)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	set, unset := bson.D{}, bson.D{}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			set = append(set, bson.E{Key: f, Value: v})
		} else {
			unset = append(unset, bson.E{Key: f, Value: ""})
		}
	}
	var update bson.D
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update, nil
}

func (r *TourMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrTourNotFound
	}
	return nil
}

// UpdateRatings stores the recomputed review aggregate of a tour.
func (r *TourMongo) UpdateRatings(ctx context.Context, id primitive.ObjectID, quantity int, average float64) error {
	_, err := r.c.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "ratingsQuantity", Value: quantity},
		{Key: "ratingsAverage", Value: average},
	}}})
	return err
}

// Aggregate runs a pipeline built by the aggregation planner.
func (r *TourMongo) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cur, err := r.c.Aggregate(ctx, pipeline, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// InsertMany loads fixtures; existing ids fail the batch.
func (r *TourMongo) InsertMany(ctx context.Context, tours []domain.Tour) error {
	docs := make([]any, len(tours))
	for i := range tours {
		docs[i] = tours[i]
	}
	_, err := r.c.InsertMany(ctx, docs)
	return mongoErr(err, nil)
}

func (r *TourMongo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
