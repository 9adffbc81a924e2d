package listkit

import "time"

// MonthAccessors supplies the date-ish key extractors for FilterMonth.
// OneTime decides whether an item carries a single date (Date) or an active
// range (Start/End). A zero End means unbounded future.
type MonthAccessors[T any] struct {
	OneTime func(T) bool
	Date    func(T) time.Time
	Start   func(T) time.Time
	End     func(T) time.Time
}

// MonthBounds parses a YYYY-MM key into the first and last day of that
// calendar month. ok is false for an empty or malformed key.
func MonthBounds(key string) (start, end time.Time, ok bool) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end, true
}

// FilterMonth returns the items whose active period intersects the selected
// calendar month. An empty or unparsable key returns all items.
//
// One-time items match iff their single date falls inside the month.
// Recurring items match iff start <= monthEnd and (end is zero or
// end >= monthStart). This is an interval overlap test, not an occurrence
// check: a quarterly item starting in January also matches February even
// though no occurrence lands there. Callers rely on that behavior.
func FilterMonth[T any](items []T, key string, acc MonthAccessors[T]) []T {
	start, end, ok := MonthBounds(key)
	if !ok {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	out := make([]T, 0, len(items))
	for _, it := range items {
		if matchesMonth(it, start, end, acc) {
			out = append(out, it)
		}
	}
	return out
}

func matchesMonth[T any](it T, monthStart, monthEnd time.Time, acc MonthAccessors[T]) bool {
	oneTime := acc.OneTime == nil || acc.OneTime(it)
	if oneTime {
		if acc.Date == nil {
			return false
		}
		d := acc.Date(it)
		if d.IsZero() {
			return false
		}
		return !d.Before(monthStart) && !d.After(monthEnd)
	}

	var start, end time.Time
	if acc.Start != nil {
		start = acc.Start(it)
	}
	if acc.End != nil {
		end = acc.End(it)
	}
	if start.After(monthEnd) {
		return false
	}
	if end.IsZero() {
		return true
	}
	return !end.Before(monthStart)
}
