package dates

import "strings"

// Set is an unordered collection of dates.
type Set map[Date]struct{}

// NewSet builds a set from ds.
func NewSet(ds ...Date) Set {
	s := make(Set, len(ds))
	for _, d := range ds {
		s[d] = struct{}{}
	}
	return s
}

// ParseSet reads a comma separated list of dates. Blank entries are skipped.
func ParseSet(raw string) (Set, error) {
	s := Set{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := Parse(part)
		if err != nil {
			return nil, err
		}
		s[d] = struct{}{}
	}
	return s, nil
}

// Has reports membership. A nil set contains nothing.
func (s Set) Has(d Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the members in chronological order.
func (s Set) Sorted() []Date {
	out := make([]Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	Sort(out)
	return out
}
