package domain

import (
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty is the closed set of tour difficulty levels.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return true
	}
	return false
}

// Location is a GeoJSON point with optional metadata. Coordinates are [lng, lat].
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

const DefaultRatingsAverage = 4.5

type Tour struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Slug            string             `bson:"slug" json:"slug"`
	Duration        int                `bson:"duration" json:"duration"`
	MaxGroupSize    int                `bson:"maxGroupSize" json:"maxGroupSize"`
	Difficulty      Difficulty         `bson:"difficulty" json:"difficulty"`
	RatingsAverage  float64            `bson:"ratingsAverage" json:"ratingsAverage"`
	RatingsQuantity int                `bson:"ratingsQuantity" json:"ratingsQuantity"`
	Price           float64            `bson:"price" json:"price"`
	PriceDiscount   float64            `bson:"priceDiscount,omitempty" json:"priceDiscount,omitempty"`
	Summary         string             `bson:"summary" json:"summary"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageCover      string             `bson:"imageCover" json:"imageCover"`
	Images          []string           `bson:"images,omitempty" json:"images,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	StartDates      []time.Time        `bson:"startDates,omitempty" json:"startDates,omitempty"`
	SecretTour      bool               `bson:"secretTour" json:"-"`
	StartLocation   *Location          `bson:"startLocation,omitempty" json:"startLocation,omitempty"`
	Locations       []Location         `bson:"locations,omitempty" json:"locations,omitempty"`
	Guides          []string           `bson:"guides,omitempty" json:"guides,omitempty"`
}

// tourWritable lists the client-settable fields of a tour by wire name.
// Identity, slug and the review aggregate are maintained by the server.
var tourWritable = map[string]bool{
	"name": true, "duration": true, "maxGroupSize": true, "difficulty": true,
	"price": true, "priceDiscount": true, "summary": true, "description": true,
	"imageCover": true, "images": true, "startDates": true, "startLocation": true,
	"locations": true, "guides": true,
}

// TourWritable reports whether a client may set the named field.
func TourWritable(field string) bool { return tourWritable[field] }

// DurationWeeks is derived and never stored.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Normalize fills derived and defaulted fields before a write.
func (t *Tour) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = Slugify(t.Name)
	if t.RatingsAverage == 0 {
		t.RatingsAverage = DefaultRatingsAverage
	}
	t.RatingsAverage = math.Round(t.RatingsAverage*10) / 10
	if t.StartLocation != nil && t.StartLocation.Type == "" {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
}

// Validate checks the invariants of a tour about to be written.
func (t *Tour) Validate() error {
	switch {
	case t.Name == "":
		return Validation("A tour must have a name")
	case len(t.Name) < 10 || len(t.Name) > 40:
		return Validation("A tour name must have between 10 and 40 characters")
	case t.Duration <= 0:
		return Validation("A tour must have a duration")
	case t.MaxGroupSize <= 0:
		return Validation("A tour must have a group size")
	case !t.Difficulty.Valid():
		return Validation("Difficulty is either: easy, medium, difficult")
	case t.RatingsAverage < 1 || t.RatingsAverage > 5:
		return Validation("Rating must be between 1.0 and 5.0")
	case t.Price <= 0:
		return Validation("A tour must have a price")
	case t.PriceDiscount < 0 || (t.PriceDiscount > 0 && t.PriceDiscount >= t.Price):
		return Validation("Discount price should be below regular price")
	case t.Summary == "":
		return Validation("A tour must have a summary")
	case t.ImageCover == "":
		return Validation("A tour must have a cover image")
	}
	if t.StartLocation != nil {
		if err := t.StartLocation.validate(); err != nil {
			return err
		}
	}
	for i := range t.Locations {
		if err := t.Locations[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Location) validate() error {
	if l.Type != "Point" {
		return Validation("Location type must be Point")
	}
	if len(l.Coordinates) != 2 {
		return Validation("Location coordinates must be [lng, lat]")
	}
	lng, lat := l.Coordinates[0], l.Coordinates[1]
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return Validation("Location coordinates are out of range")
	}
	return nil
}
