package pager

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Filter narrows a result set. Empty fields do not constrain.
type Filter struct {
	Query  string
	Status string
}

// Normalize trims and applies Unicode NFC, so visually equal filters compare
// equal. Inner whitespace of the query is part of the predicate and is kept.
func (f Filter) Normalize() Filter {
	return Filter{
		Query:  norm.NFC.String(strings.TrimSpace(f.Query)),
		Status: strings.ToLower(strings.TrimSpace(f.Status)),
	}
}

// Equal compares normalized forms.
func (f Filter) Equal(other Filter) bool {
	return f.Normalize() == other.Normalize()
}

// IsZero reports whether the filter is unconstrained.
func (f Filter) IsZero() bool {
	return f.Normalize() == Filter{}
}
