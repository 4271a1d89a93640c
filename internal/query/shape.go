package query

import "encoding/json"

// Shape applies a projection to already-typed items so the response carries
// exactly the selected fields. Inclusion always keeps id.
func Shape[T any](items []T, p Projection) (any, error) {
	if p.Empty() {
		return items, nil
	}
	listed := make(map[string]bool, len(p.Fields))
	for _, f := range p.Fields {
		listed[f] = true
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		for k := range doc {
			drop := listed[k] == p.Exclude
			if k == "id" && !p.Exclude {
				drop = false
			}
			if drop {
				delete(doc, k)
			}
		}
		out = append(out, doc)
	}
	return out, nil
}
