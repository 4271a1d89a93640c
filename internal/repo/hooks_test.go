package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"natours-api/internal/domain"
)

func TestHooksApplyPerOperation(t *testing.T) {
	var seen []Operation
	h := NewHooks[bson.D]().
		On(ReadOps, hideSecretTours()).
		On([]Operation{OpFind}, Interceptor[bson.D]{
			Post: func(op Operation, _ time.Duration, err error) { seen = append(seen, op) },
		})

	got := h.Before(OpFind, bson.D{{Key: "difficulty", Value: "easy"}})
	assert.Equal(t, bson.D{
		{Key: "difficulty", Value: "easy"},
		{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}},
	}, got)

	assert.Equal(t, bson.D{}, h.Before(OpUpdate, bson.D{}), "update has no tour hook")

	h.After(OpFind, time.Now(), nil)
	h.After(OpCount, time.Now(), nil)
	assert.Equal(t, []Operation{OpFind}, seen)
}

func TestNilHooks(t *testing.T) {
	var h *Hooks[bson.D]
	f := bson.D{{Key: "a", Value: 1}}
	assert.Equal(t, f, h.Before(OpFind, f))
	h.After(OpFind, time.Now(), nil)
}

func TestActiveOnlyHook(t *testing.T) {
	h := NewHooks[bson.D]().On(append(ReadOps, OpUpdate), activeOnly())
	for _, op := range []Operation{OpFind, OpFindOne, OpCount, OpUpdate} {
		f := h.Before(op, bson.D{})
		assert.Equal(t, bson.D{{Key: "active", Value: bson.D{{Key: "$ne", Value: false}}}}, f, op)
	}
}

func TestMongoErrMapping(t *testing.T) {
	assert.Nil(t, mongoErr(nil, domain.ErrTourNotFound))
	assert.ErrorIs(t, mongoErr(mongo.ErrNoDocuments, domain.ErrTourNotFound), domain.ErrTourNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: natours.users index: idx_users_email dup key: { email: "a@b.io" }`,
	}}}
	err := mongoErr(dup, nil)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Equal(t, "Duplicate field value: email. Please use another value!", err.Error())

	other := errors.New("socket closed")
	assert.Equal(t, other, mongoErr(other, nil))
}

func TestGormErrMapping(t *testing.T) {
	assert.ErrorIs(t, gormErr(gorm.ErrRecordNotFound, domain.ErrPrincipalNotFound), domain.ErrPrincipalNotFound)
	assert.True(t, domain.IsKind(gormErr(gorm.ErrDuplicatedKey, nil), domain.KindValidation))
}

func TestParseObjectID(t *testing.T) {
	_, err := ParseObjectID("5c88fa8cf4afda39709c2955")
	assert.NoError(t, err)
	_, err = ParseObjectID("nope")
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}
