// Package validator provides declarative input checks that run before a request is sent.
//
// A Rule pairs a check with the error reported when it fails. Apply runs all
// rules and returns ValidationErrors listing every failed field:
//
//	err := validator.Apply(
//	    validator.Required("title", t.Title),
//	    validator.MaxRunes("title", t.Title, 200),
//	    validator.OneOf("priority", t.Priority, []Priority{Low, Medium, High}),
//	)
//	if errs, ok := validator.Extract(err); ok && errs.Has("title") { ... }
package validator
