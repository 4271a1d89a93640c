package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Review    string             `bson:"review" json:"review"`
	Rating    int                `bson:"rating" json:"rating"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Tour      primitive.ObjectID `bson:"tour" json:"tour"`
	User      string             `bson:"user" json:"user"`
}

func (r *Review) Validate() error {
	r.Review = strings.TrimSpace(r.Review)
	switch {
	case r.Review == "":
		return Validation("Review can not be empty!")
	case r.Rating < 1 || r.Rating > 5:
		return Validation("Rating must be between 1 and 5")
	case r.Tour.IsZero():
		return Validation("Review must belong to a tour.")
	case r.User == "":
		return Validation("Review must belong to a user")
	}
	return nil
}
