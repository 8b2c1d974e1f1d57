package submit

import "errors"

var (
	ErrNilIntent      = errors.New("submit: nil intent")
	ErrPayloadChanged = errors.New("submit: payload differs from the intent's first attempt")
)
