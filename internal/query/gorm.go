package query

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns maps public field names to SQL column names. Fields missing from
// the map are rejected.
type Columns map[string]string

func (c Columns) column(field string) (clause.Column, error) {
	name, ok := c[field]
	if !ok {
		return clause.Column{}, fmt.Errorf("query: no column for field %q", field)
	}
	return clause.Column{Name: name}, nil
}

// GormWhere renders conditions only, for counting.
func GormWhere(conds []Condition, cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		exprs := make([]clause.Expression, 0, len(conds))
		for _, c := range conds {
			col, err := cols.column(c.Field)
			if err != nil {
				_ = db.AddError(err)
				return db
			}
			switch c.Op {
			case OpGte:
				exprs = append(exprs, clause.Gte{Column: col, Value: c.Value})
			case OpGt:
				exprs = append(exprs, clause.Gt{Column: col, Value: c.Value})
			case OpLte:
				exprs = append(exprs, clause.Lte{Column: col, Value: c.Value})
			case OpLt:
				exprs = append(exprs, clause.Lt{Column: col, Value: c.Value})
			default:
				exprs = append(exprs, clause.Eq{Column: col, Value: c.Value})
			}
		}
		if len(exprs) == 0 {
			return db
		}
		return db.Clauses(clause.Where{Exprs: exprs})
	}
}

// GormScope renders the whole spec as a scope for db.Scopes.
func (s Spec) GormScope(cols Columns) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = GormWhere(s.Conditions, cols)(db)

		for _, k := range s.Sort {
			col, err := cols.column(k.Field)
			if err != nil {
				_ = db.AddError(err)
				return db
			}
			db = db.Order(clause.OrderByColumn{Column: col, Desc: k.Desc})
		}
		if id, ok := cols["id"]; ok {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: id}})
		}

		if !s.Projection.Empty() {
			names := make([]string, 0, len(s.Projection.Fields))
			for _, f := range s.Projection.Fields {
				// internal fields may have no public column; they stay hidden by the model
				if name, ok := cols[f]; ok {
					names = append(names, name)
				}
			}
			if s.Projection.Exclude {
				db = db.Omit(names...)
			} else if len(names) > 0 {
				db = db.Select(names)
			}
		}

		if s.Limit > 0 {
			db = db.Offset(s.Skip()).Limit(s.Limit)
		}
		return db
	}
}
