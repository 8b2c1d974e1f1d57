package credstore

import "errors"

var (
	ErrNotFound      = errors.New("credstore: record not found")
	ErrCorrupt       = errors.New("credstore: record unreadable")
	ErrInvalidRecord = errors.New("credstore: record has no credential")
)
