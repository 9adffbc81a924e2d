package listkit

import "sort"

// Selection is an in-memory set of record IDs scoped to one list view.
// It is not safe for concurrent use; a view owns its selection exclusively.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle adds id if absent, removes it if present.
func (s *Selection) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected IDs.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected IDs in sorted order for deterministic iteration.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}

// ToggleAll implements the select-all checkbox against the currently
// visible (already filtered) list: if the selection size equals the visible
// size it clears, otherwise it selects exactly the visible IDs. Selecting
// "all" after filtering therefore selects only the filtered subset.
func (s *Selection) ToggleAll(visible []string) {
	if len(s.ids) == len(visible) && len(visible) > 0 {
		s.Clear()
		return
	}
	s.ids = make(map[string]struct{}, len(visible))
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}
