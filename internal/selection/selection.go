// Package selection holds the user's current choice of projects, tags and
// dates.
package selection

import (
	"sort"
	"strings"
)

// Set is an unordered set of strings.
type Set map[string]struct{}

// NewSet builds a Set, skipping blank items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			s[it] = struct{}{}
		}
	}
	return s
}

func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Selection scopes the composite view.
type Selection struct {
	// Projects in display order.
	Projects []string
	// Tags whose blocks are shown. Lines outside any tag block are always
	// shown.
	Tags Set
	// Dates is the optional date focus. Empty means every date.
	Dates Set
}

// InFocus reports whether date belongs to the date focus.
func (s Selection) InFocus(date string) bool {
	return len(s.Dates) == 0 || s.Dates.Has(date)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
