package cascade

import (
	"context"

	"siteplanner/internal/models"
)

// Filter matches documents whose Field equals any of Values. With SkipAudit
// set, audit activity records are never matched.
type Filter struct {
	Field     string
	Values    []string
	SkipAudit bool
}

func Eq(field, value string) Filter {
	return Filter{Field: field, Values: []string{value}}
}

func In(field string, values []string) Filter {
	return Filter{Field: field, Values: values}
}

// Store is the slice of the document store the workflow needs. Each call is
// an independent single-collection operation; there are no cross-collection
// transactions.
type Store interface {
	// Values returns field's value (as a string) for every document matching filter.
	Values(ctx context.Context, collection string, filter Filter, field string) ([]string, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	InsertActivity(ctx context.Context, activity models.Activity) (string, error)
}
