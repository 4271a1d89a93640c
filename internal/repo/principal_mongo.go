package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"natours-api/internal/domain"
	"natours-api/internal/query"
)

const PrincipalCollection = "users"

// activeOnly hides deactivated principals from every read.
func activeOnly() Interceptor[bson.D] {
	return Interceptor[bson.D]{
		Pre: func(_ Operation, f bson.D) bson.D {
			return append(f, bson.E{Key: "active", Value: bson.D{{Key: "$ne", Value: false}}})
		},
	}
}

type PrincipalMongo struct {
	c     *mongo.Collection
	hooks *Hooks[bson.D]
	now   func() time.Time
}

func NewPrincipalMongo(db *mongo.Database) *PrincipalMongo {
	return &PrincipalMongo{
		c:     db.Collection(PrincipalCollection),
		hooks: NewHooks[bson.D]().On(append(ReadOps, OpUpdate), activeOnly()),
		now:   time.Now,
	}
}

func (r *PrincipalMongo) filter(op Operation, f bson.D) bson.D {
	return r.hooks.Before(op, f)
}

func (r *PrincipalMongo) Count(ctx context.Context, conds []query.Condition) (int64, error) {
	return r.c.CountDocuments(ctx, r.filter(OpCount, query.MongoFilter(conds)))
}

func (r *PrincipalMongo) Find(ctx context.Context, spec query.Spec) ([]domain.Principal, error) {
	cur, err := r.c.Find(ctx, r.filter(OpFind, spec.MongoFilter()), spec.FindOptions())
	if err != nil {
		return nil, err
	}
	var out []domain.Principal
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PrincipalMongo) Create(ctx context.Context, p *domain.Principal) error {
	_, err := r.c.InsertOne(ctx, p)
	return mongoErr(err, nil)
}

func (r *PrincipalMongo) findOne(ctx context.Context, f bson.D) (*domain.Principal, error) {
	var p domain.Principal
	err := r.c.FindOne(ctx, r.filter(OpFindOne, f)).Decode(&p)
	if err != nil {
		return nil, mongoErr(err, domain.ErrPrincipalNotFound)
	}
	return &p, nil
}

func (r *PrincipalMongo) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *PrincipalMongo) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: domain.NormalizeEmail(email)}})
}

// update applies u to the active principal id and returns the new document.
func (r *PrincipalMongo) update(ctx context.Context, id string, u bson.D) (*domain.Principal, error) {
	u = append(u, bson.E{Key: "$currentDate", Value: bson.D{{Key: "updatedAt", Value: true}}})
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p domain.Principal
	err := r.c.FindOneAndUpdate(ctx, r.filter(OpUpdate, bson.D{{Key: "_id", Value: id}}), u, opts).Decode(&p)
	if err != nil {
		return nil, mongoErr(err, domain.ErrPrincipalNotFound)
	}
	return &p, nil
}

func (r *PrincipalMongo) SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	_, err := r.update(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "password", Value: hash}, {Key: "passwordChangedAt", Value: changedAt}}},
		{Key: "$unset", Value: bson.D{{Key: "passwordResetToken", Value: ""}, {Key: "passwordResetExpires", Value: ""}}},
	})
	return err
}

func (r *PrincipalMongo) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Principal, error) {
	set := bson.D{}
	if u.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *u.Name})
	}
	if u.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *u.Email})
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}
	return r.update(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (r *PrincipalMongo) SetRole(ctx context.Context, id string, role domain.Role) (*domain.Principal, error) {
	return r.update(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: role}}}})
}

func (r *PrincipalMongo) Deactivate(ctx context.Context, id string) error {
	_, err := r.update(ctx, id, bson.D{{Key: "$set", Value: bson.D{{Key: "active", Value: false}}}})
	return err
}

func (r *PrincipalMongo) StoreResetToken(ctx context.Context, id, hash string, expires time.Time) error {
	_, err := r.update(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "passwordResetToken", Value: hash},
		{Key: "passwordResetExpires", Value: expires},
	}}})
	return err
}

func (r *PrincipalMongo) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.c.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, unsetReset())
	return err
}

// ConsumeResetToken atomically swaps a live reset token for a new password.
func (r *PrincipalMongo) ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Principal, error) {
	f := bson.D{
		{Key: "passwordResetToken", Value: hash},
		{Key: "passwordResetExpires", Value: bson.D{{Key: "$gt", Value: now}}},
	}
	u := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: passwordHash},
			{Key: "passwordChangedAt", Value: now},
			{Key: "updatedAt", Value: now},
		}},
		{Key: "$unset", Value: bson.D{{Key: "passwordResetToken", Value: ""}, {Key: "passwordResetExpires", Value: ""}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p domain.Principal
	err := r.c.FindOneAndUpdate(ctx, r.filter(OpUpdate, f), u, opts).Decode(&p)
	if err != nil {
		return nil, mongoErr(err, domain.ErrInvalidOrExpiredToken)
	}
	return &p, nil
}

// DiscardResetToken clears every stored token with this hash, live or not.
func (r *PrincipalMongo) DiscardResetToken(ctx context.Context, hash string) error {
	_, err := r.c.UpdateMany(ctx, bson.D{{Key: "passwordResetToken", Value: hash}}, unsetReset())
	return err
}

func unsetReset() bson.D {
	return bson.D{{Key: "$unset", Value: bson.D{{Key: "passwordResetToken", Value: ""}, {Key: "passwordResetExpires", Value: ""}}}}
}

func (r *PrincipalMongo) InsertMany(ctx context.Context, ps []domain.Principal) error {
	docs := make([]any, len(ps))
	for i := range ps {
		docs[i] = ps[i]
	}
	_, err := r.c.InsertMany(ctx, docs)
	return mongoErr(err, nil)
}

func (r *PrincipalMongo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
