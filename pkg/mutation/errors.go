package mutation

import "errors"

var (
	ErrEmptyChanges    = errors.New("mutation: no changes to apply")
	ErrVersionInChange = errors.New("mutation: version must not be part of the changes")
)
