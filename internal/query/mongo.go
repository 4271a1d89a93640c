package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var mongoOps = map[Op]string{
	OpEq:  "$eq",
	OpGte: "$gte",
	OpGt:  "$gt",
	OpLte: "$lte",
	OpLt:  "$lt",
}

// MongoFilter renders conditions as a filter document. Conditions on the
// same field are merged into one operator document.
func MongoFilter(conds []Condition) bson.D {
	filter := bson.D{}
	index := map[string]int{}
	for _, c := range conds {
		i, ok := index[c.Field]
		if !ok {
			filter = append(filter, bson.E{Key: c.Field, Value: bson.D{}})
			i = len(filter) - 1
			index[c.Field] = i
		}
		ops := filter[i].Value.(bson.D)
		filter[i].Value = append(ops, bson.E{Key: mongoOps[c.Op], Value: c.Value})
	}
	return filter
}

func (s Spec) MongoFilter() bson.D { return MongoFilter(s.Conditions) }

// FindOptions renders sort, projection and paging. _id breaks sort ties so
// pages are stable.
func (s Spec) FindOptions() *options.FindOptions {
	opts := options.Find()

	sortDoc := bson.D{}
	hasID := false
	for _, k := range s.Sort {
		dir := 1
		if k.Desc {
			dir = -1
		}
		if k.Field == "_id" {
			hasID = true
		}
		sortDoc = append(sortDoc, bson.E{Key: k.Field, Value: dir})
	}
	if !hasID {
		sortDoc = append(sortDoc, bson.E{Key: "_id", Value: 1})
	}
	opts.SetSort(sortDoc)

	if !s.Projection.Empty() {
		flag := 1
		if s.Projection.Exclude {
			flag = 0
		}
		proj := bson.D{}
		for _, f := range s.Projection.Fields {
			proj = append(proj, bson.E{Key: f, Value: flag})
		}
		opts.SetProjection(proj)
	}

	if s.Limit > 0 {
		opts.SetSkip(int64(s.Skip()))
		opts.SetLimit(int64(s.Limit))
	}
	return opts
}
