package table

import "sort"

// SelectionState maps row keys to their selected flag.
type SelectionState map[string]bool

// Clone returns an independent copy.
func (s SelectionState) Clone() SelectionState {
	out := make(SelectionState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SelectionMode is fixed when the Selection is built.
type SelectionMode int

const (
	// SelectionUncontrolled keeps a transient map owned by the table.
	SelectionUncontrolled SelectionMode = iota
	// SelectionControlled reads and writes through the owner's accessors.
	SelectionControlled
)

// Selection is the row-selection model of a table.
type Selection struct {
	mode SelectionMode

	own SelectionState

	get func() SelectionState
	set func(SelectionState)
}

// Uncontrolled returns a selection that owns an empty map.
func Uncontrolled() *Selection {
	return &Selection{mode: SelectionUncontrolled, own: SelectionState{}}
}

// Controlled returns a selection with no state of its own: reads go through
// get and every change is handed to set as a fresh map.
func Controlled(get func() SelectionState, set func(SelectionState)) *Selection {
	return &Selection{mode: SelectionControlled, get: get, set: set}
}

// Mode reports how the selection was built.
func (s *Selection) Mode() SelectionMode {
	return s.mode
}

// State returns the current selection. Callers must not modify it.
func (s *Selection) State() SelectionState {
	if s.mode == SelectionControlled {
		if s.get == nil {
			return SelectionState{}
		}
		if st := s.get(); st != nil {
			return st
		}
		return SelectionState{}
	}
	return s.own
}

// IsSelected reports whether key is selected.
func (s *Selection) IsSelected(key string) bool {
	return s.State()[key]
}

// Set marks key as selected or not.
func (s *Selection) Set(key string, selected bool) {
	next := s.State().Clone()
	next[key] = selected
	s.commit(next)
}

// Toggle flips key.
func (s *Selection) Toggle(key string) {
	s.Set(key, !s.IsSelected(key))
}

// Replace swaps the whole state.
func (s *Selection) Replace(state SelectionState) {
	s.commit(state.Clone())
}

// Selected returns the selected keys, sorted.
func (s *Selection) Selected() []string {
	var keys []string
	for k, v := range s.State() {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *Selection) commit(next SelectionState) {
	if s.mode == SelectionControlled {
		if s.set != nil {
			s.set(next)
		}
		return
	}
	s.own = next
}
