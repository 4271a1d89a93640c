// Package aggregation builds mongo aggregation pipelines over tours. Every
// pipeline starts with the visibility stage that hides secret tours.
package aggregation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"natours-api/internal/domain"
)

const (
	DefaultMinRating = 4.5
	monthlyPlanLimit = 6

	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

// Visibility is stage 0 of every tour pipeline.
var Visibility = bson.D{{Key: "$match", Value: bson.D{{Key: "secretTour", Value: bson.D{{Key: "$ne", Value: true}}}}}}

type Planner struct {
	visibility bson.D
}

func NewPlanner() *Planner {
	return &Planner{visibility: Visibility}
}

// Pipeline prepends the visibility stage to stages.
func (p *Planner) Pipeline(stages ...bson.D) mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(stages)+1)
	out = append(out, p.visibility)
	return append(out, stages...)
}

// TourStats groups rated tours by upper-cased difficulty. A non-positive
// minRating falls back to DefaultMinRating.
func (p *Planner) TourStats(minRating float64) mongo.Pipeline {
	if minRating <= 0 {
		minRating = DefaultMinRating
	}
	return p.Pipeline(
		bson.D{{Key: "$match", Value: bson.D{{Key: "ratingsAverage", Value: bson.D{{Key: "$gte", Value: minRating}}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toUpper", Value: "$difficulty"}}},
			{Key: "numTours", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "numRatings", Value: bson.D{{Key: "$sum", Value: "$ratingsQuantity"}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$ratingsAverage"}}},
			{Key: "avgPrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "minPrice", Value: bson.D{{Key: "$min", Value: "$price"}}},
			{Key: "maxPrice", Value: bson.D{{Key: "$max", Value: "$price"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "avgPrice", Value: 1}}}},
	)
}

// MonthlyPlan counts tour starts per month of year, busiest first.
func (p *Planner) MonthlyPlan(year int) (mongo.Pipeline, error) {
	if year < 1970 || year > 9999 {
		return nil, domain.Validation("Invalid year")
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return p.Pipeline(
		bson.D{{Key: "$unwind", Value: "$startDates"}},
		bson.D{{Key: "$match", Value: bson.D{{Key: "startDates", Value: bson.D{
			{Key: "$gte", Value: from},
			{Key: "$lt", Value: to},
		}}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$month", Value: "$startDates"}}},
			{Key: "numTourStarts", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "tours", Value: bson.D{{Key: "$push", Value: "$name"}}},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{{Key: "month", Value: "$_id"}}}},
		bson.D{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}}}},
		bson.D{{Key: "$limit", Value: monthlyPlanLimit}},
	), nil
}

// ParseYear accepts a four digit calendar year.
func ParseYear(raw string) (int, error) {
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validation("Invalid year")
	}
	return y, nil
}

// Unit is a distance unit accepted by geospatial plans.
type Unit string

const (
	Miles      Unit = "mi"
	Kilometers Unit = "km"
)

func (u Unit) earthRadius() (float64, bool) {
	switch u {
	case Miles:
		return earthRadiusMiles, true
	case Kilometers:
		return earthRadiusKm, true
	}
	return 0, false
}

// Within selects tours whose start location lies inside a sphere cap of
// distance around (lat, lng).
func (p *Planner) Within(distance, lat, lng float64, unit Unit) (mongo.Pipeline, error) {
	filter, err := WithinFilter(distance, lat, lng, unit)
	if err != nil {
		return nil, err
	}
	return p.Pipeline(bson.D{{Key: "$match", Value: filter}}), nil
}

// WithinFilter is the $geoWithin predicate used by Within, also usable in find.
func WithinFilter(distance, lat, lng float64, unit Unit) (bson.D, error) {
	radius, ok := unit.earthRadius()
	if !ok {
		return nil, domain.Validation("Unit must be mi or km")
	}
	if math.IsNaN(distance) || math.IsInf(distance, 0) || distance <= 0 {
		return nil, domain.Validation("Distance must be a positive number")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 || math.IsNaN(lat) || math.IsNaN(lng) {
		return nil, domain.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	return bson.D{{Key: "startLocation", Value: bson.D{{Key: "$geoWithin", Value: bson.D{
		{Key: "$centerSphere", Value: bson.A{bson.A{lng, lat}, distance / radius}},
	}}}}}, nil
}

// ParseCenter reads "lat,lng".
func ParseCenter(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, domain.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, domain.Validation("Please provide latitude and longitude in the format lat,lng.")
	}
	return lat, lng, nil
}

// ParseDistance reads a positive distance.
func ParseDistance(raw string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || d <= 0 {
		return 0, domain.Validation("Distance must be a positive number")
	}
	return d, nil
}

// TourStat is one row of TourStats.
type TourStat struct {
	Difficulty string  `bson:"_id" json:"_id"`
	NumTours   int     `bson:"numTours" json:"numTours"`
	NumRatings int     `bson:"numRatings" json:"numRatings"`
	AvgRating  float64 `bson:"avgRating" json:"avgRating"`
	AvgPrice   float64 `bson:"avgPrice" json:"avgPrice"`
	MinPrice   float64 `bson:"minPrice" json:"minPrice"`
	MaxPrice   float64 `bson:"maxPrice" json:"maxPrice"`
}

// MonthStat is one row of MonthlyPlan.
type MonthStat struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int      `bson:"numTourStarts" json:"numTourStarts"`
	Tours         []string `bson:"tours" json:"tours"`
}
