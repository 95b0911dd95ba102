package shard

import (
	"fmt"

	"github.com/dreamware/torua/internal/cluster"
)

const maxStringIDBytes = 255

// normalizeID checks doc.ID against idType and returns it coerced to the
// concrete Go type the store expects (int64 for IDTypeInteger, string for
// IDTypeString), or a FieldError describing why it was rejected.
func normalizeID(idType cluster.IDType, id interface{}) (interface{}, *cluster.FieldError) {
	switch idType {
	case cluster.IDTypeInteger:
		return normalizeIntegerID(id)
	case cluster.IDTypeString:
		return normalizeStringID(id)
	default:
		return nil, &cluster.FieldError{Field: "id", Message: fmt.Sprintf("shard has unknown idType %q", idType)}
	}
}

func normalizeIntegerID(id interface{}) (interface{}, *cluster.FieldError) {
	switch v := id.(type) {
	case int64:
		if v < 0 {
			return nil, &cluster.FieldError{Field: "id", Value: id, Message: "integer id must be non-negative"}
		}
		return v, nil
	case int:
		return normalizeIntegerID(int64(v))
	case float64:
		// encoding/json decodes untyped numbers as float64.
		if v != float64(int64(v)) {
			return nil, &cluster.FieldError{Field: "id", Value: id, Message: "integer id must have no fractional part"}
		}
		return normalizeIntegerID(int64(v))
	default:
		return nil, &cluster.FieldError{Field: "id", Value: id, Message: "id must be a non-negative integer for this shard"}
	}
}

func normalizeStringID(id interface{}) (interface{}, *cluster.FieldError) {
	s, ok := id.(string)
	if !ok {
		return nil, &cluster.FieldError{Field: "id", Value: id, Message: "id must be a string for this shard"}
	}
	if s == "" {
		return nil, &cluster.FieldError{Field: "id", Message: "id must not be empty"}
	}
	if len(s) > maxStringIDBytes {
		return nil, &cluster.FieldError{Field: "id", Value: id, Message: fmt.Sprintf("id exceeds %d bytes", maxStringIDBytes)}
	}
	return s, nil
}

// validateBatch normalizes and validates every document in docs against
// idType, returning the field errors for every document that failed (in
// the same order) and, only when errs is empty, the fully normalized
// batch ready for filter.Filter and Store.Upsert.
func validateBatch(idType cluster.IDType, docs []cluster.Document) ([]cluster.Document, []cluster.FieldError) {
	var errs []cluster.FieldError
	normalized := make([]cluster.Document, len(docs))
	for i, d := range docs {
		id, fe := normalizeID(idType, d.ID)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		normalized[i] = cluster.Document{ID: id, Content: d.Content}
	}
	return normalized, errs
}
