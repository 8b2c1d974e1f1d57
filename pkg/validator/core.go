package validator

import (
	"errors"
	"strings"
)

// ValidationError is a single failed check. Code is stable and machine-readable
// ("required", "max_length", ...); Message is meant for people.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors lists every failed check of one Apply call in rule order.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var b strings.Builder
	b.WriteString(ErrValidationFailed.Error())
	for i, e := range ve {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

func (ve ValidationErrors) Unwrap() error { return ErrValidationFailed }

func (ve ValidationErrors) Has(field string) bool {
	_, ok := ve.ByField()[field]
	return ok
}

// ByField groups messages by field.
func (ve ValidationErrors) ByField() map[string][]string {
	out := make(map[string][]string, len(ve))
	for _, e := range ve {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// Fields returns the failing fields in order of first failure.
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(ve))
	for i, e := range ve {
		if !ve[:i].Has(e.Field) {
			fields = append(fields, e.Field)
		}
	}
	return fields
}

// Rule pairs a check with the failure it reports.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply runs every rule. It returns nil when all pass, ValidationErrors otherwise.
func Apply(rules ...Rule) error {
	var failed ValidationErrors
	for _, r := range rules {
		if !r.Check() {
			failed = append(failed, r.Error)
		}
	}
	if failed == nil {
		return nil
	}
	return failed
}

// Extract finds ValidationErrors anywhere in err's chain.
func Extract(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if err == nil || !errors.As(err, &ve) {
		return nil, false
	}
	return ve, true
}
