package session

import "errors"

var (
	ErrAlreadyBooted    = errors.New("session.already_booted")
	ErrNoCredential     = errors.New("session.no_credential")
	ErrClosed           = errors.New("session.closed")
	ErrValidationFailed = errors.New("session.validation_failed")
)
