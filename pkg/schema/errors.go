package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// FieldError reports why one node data field was rejected.
type FieldError struct {
	Field  string
	Reason string
	Value  any
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Field, e.Reason, e.Value)
}

// Errors is every field failure found in one data bag, ordered by field name.
type Errors []*FieldError

func (errs Errors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return fmt.Sprintf("%d invalid fields: %s", len(parts), strings.Join(parts, "; "))
}

func (errs Errors) sorted() Errors {
	slices.SortStableFunc(errs, func(a, b *FieldError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return errs
}

// ValidationErrors unpacks the field failures carried by err.
func ValidationErrors(err error) []*FieldError {
	var all Errors
	if errors.As(err, &all) {
		return all
	}
	var one *FieldError
	if errors.As(err, &one) {
		return []*FieldError{one}
	}
	return nil
}
