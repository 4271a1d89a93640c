package service

import (
	"net/url"

	"natours-api/internal/query"
)

var PrincipalSchema = query.Schema{
	Fields: map[string]query.Kind{
		"name":      query.String,
		"email":     query.String,
		"photo":     query.String,
		"role":      query.String,
		"createdAt": query.Time,
	},
	DefaultSort: "-createdAt",
	Internal:    []string{"password", "passwordChangedAt", "passwordResetToken", "passwordResetExpires"},
}

var TourSchema = query.Schema{
	Fields: map[string]query.Kind{
		"name":            query.String,
		"slug":            query.String,
		"duration":        query.Number,
		"maxGroupSize":    query.Number,
		"difficulty":      query.String,
		"ratingsAverage":  query.Number,
		"ratingsQuantity": query.Number,
		"price":           query.Number,
		"priceDiscount":   query.Number,
		"summary":         query.String,
		"description":     query.String,
		"imageCover":      query.String,
		"images":          query.String,
		"createdAt":       query.Time,
		"startDates":      query.Time,
		"startLocation":   query.String,
		"locations":       query.String,
		"guides":          query.String,
	},
	DefaultSort: "-createdAt",
	Internal:    []string{"secretTour"},
}

var ReviewSchema = query.Schema{
	Fields: map[string]query.Kind{
		"review":    query.String,
		"rating":    query.Number,
		"createdAt": query.Time,
		"tour":      query.ObjectID,
		"user":      query.String,
	},
	DefaultSort: "-createdAt",
}

// AliasTopTours rewrites a request into the five best rated, cheapest tours.
func AliasTopTours(v url.Values) url.Values {
	out := url.Values{}
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	out.Set("limit", "5")
	out.Set("sort", "-ratingsAverage,price")
	out.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return out
}
