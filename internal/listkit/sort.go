package listkit

import (
	"sort"
	"strings"
	"time"
)

// Field selects the sort key.
type Field string

const (
	FieldName   Field = "name"
	FieldAmount Field = "amount"
	FieldDate   Field = "date"
)

// SortSpec pairs a sort field with a direction. The zero value is not
// meaningful; use DefaultSort for the (name, ascending) default.
type SortSpec struct {
	Field Field
	Desc  bool
}

// DefaultSort is the sort every list view starts with.
func DefaultSort() SortSpec {
	return SortSpec{Field: FieldName}
}

// Accessors supplies the per-field key extractors for Sort. A nil accessor
// makes all keys compare equal for that field, so the input order survives
// (the sort is stable).
type Accessors[T any] struct {
	Name   func(T) string
	Amount func(T) int64
	Date   func(T) time.Time
}

// Sort returns a new slice ordered by the given spec. String comparison is
// case-insensitive; dates compare chronologically. Equal keys keep their
// original relative order, and direction flips the comparator sign rather
// than reversing the output, so ties stay in input order in both directions.
// Zero keys (empty name, zero amount, zero time) sort first in ascending
// order.
func Sort[T any](items []T, spec SortSpec, acc Accessors[T]) []T {
	out := make([]T, len(items))
	copy(out, items)

	cmp := comparator(spec.Field, acc)
	if cmp == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if spec.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func comparator[T any](field Field, acc Accessors[T]) func(a, b T) int {
	switch field {
	case FieldName:
		if acc.Name == nil {
			return nil
		}
		return func(a, b T) int {
			return strings.Compare(strings.ToLower(acc.Name(a)), strings.ToLower(acc.Name(b)))
		}
	case FieldAmount:
		if acc.Amount == nil {
			return nil
		}
		return func(a, b T) int {
			av, bv := acc.Amount(a), acc.Amount(b)
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case FieldDate:
		if acc.Date == nil {
			return nil
		}
		return func(a, b T) int {
			av, bv := acc.Date(a), acc.Date(b)
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			default:
				return 0
			}
		}
	default:
		return nil
	}
}

// ParseField maps a query-string value to a sort field, falling back to
// name for anything unknown.
func ParseField(s string) Field {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldAmount:
		return FieldAmount
	case FieldDate:
		return FieldDate
	default:
		return FieldName
	}
}
