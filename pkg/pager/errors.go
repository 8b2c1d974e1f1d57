package pager

import "errors"

var (
	ErrInvalidCursor = errors.New("pager: cursor must not be negative")
	ErrCursorStalled = errors.New("pager: server returned a cursor that does not advance")
	ErrSuperseded    = errors.New("pager: filter changed while the page was loading")
	ErrExhausted     = errors.New("pager: no more pages")
)
