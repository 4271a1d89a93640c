package repo

import (
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"natours-api/internal/domain"
)

var dupKeyField = regexp.MustCompile(`dup key: \{ ?"?([A-Za-z]+)"?:`)

// mongoErr maps driver errors onto domain kinds. notFound is returned for
// mongo.ErrNoDocuments.
func mongoErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return duplicate(err)
	}
	return err
}

func gormErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate(err)
	}
	return err
}

func duplicate(err error) error {
	field := "value"
	if m := dupKeyField.FindStringSubmatch(err.Error()); len(m) == 2 {
		field = m[1]
	}
	return domain.Wrap(err, domain.KindValidation, "Duplicate field value: "+field+". Please use another value!")
}

// ParseObjectID turns a path id into an ObjectID or a validation error.
func ParseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, domain.Validation("Invalid _id: " + hex)
	}
	return id, nil
}
