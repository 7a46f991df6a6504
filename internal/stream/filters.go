package stream

// FilterAll is the sentinel filter matching every event type. It is mutually
// exclusive with specific type filters: selecting it clears specific filters,
// and removing the last specific filter reverts to it.
const FilterAll = "all"

// filterSet holds the active event-type filters as an ordered, deduplicated
// list that always contains either the sentinel or specific types, never both.
type filterSet struct {
	types []string
}

func newFilterSet() filterSet {
	return filterSet{types: []string{FilterAll}}
}

// set replaces the filter list. Any occurrence of the sentinel collapses the
// set to just the sentinel; an empty list means "all".
func (f *filterSet) set(types []string) {
	var out []string
	for _, t := range types {
		if t == FilterAll {
			f.types = []string{FilterAll}
			return
		}
		if !containsString(out, t) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = []string{FilterAll}
	}
	f.types = out
}

// add inserts one filter, applying the sentinel exclusivity rule.
func (f *filterSet) add(t string) {
	if t == FilterAll {
		f.types = []string{FilterAll}
		return
	}
	if len(f.types) == 1 && f.types[0] == FilterAll {
		f.types = []string{t}
		return
	}
	if !containsString(f.types, t) {
		f.types = append(f.types, t)
	}
}

// remove drops one filter; an emptied set reverts to the sentinel.
func (f *filterSet) remove(t string) {
	keep := f.types[:0]
	for _, existing := range f.types {
		if existing != t {
			keep = append(keep, existing)
		}
	}
	f.types = keep
	if len(f.types) == 0 {
		f.types = []string{FilterAll}
	}
}

// allows reports whether an event type passes the active filters.
func (f *filterSet) allows(eventType string) bool {
	if containsString(f.types, FilterAll) {
		return true
	}
	return containsString(f.types, eventType)
}

// snapshot returns a copy of the filter list.
func (f *filterSet) snapshot() []string {
	out := make([]string, len(f.types))
	copy(out, f.types)
	return out
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
