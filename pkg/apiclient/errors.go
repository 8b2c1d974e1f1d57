package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Taxonomy sentinels. *Error wraps exactly one of them.
var (
	ErrAuthInvalid         = errors.New("apiclient.auth_invalid")
	ErrVersionConflict     = errors.New("apiclient.version_conflict")
	ErrValidationFailed    = errors.New("apiclient.validation_failed")
	ErrAuthorizationDenied = errors.New("apiclient.authorization_denied")
	ErrTransport           = errors.New("apiclient.transport_failure")
	ErrNotFound            = errors.New("apiclient.not_found")
)

// ErrNoCredential is returned by CredentialSlot.Token when the slot is empty.
var ErrNoCredential = errors.New("apiclient: no credential")

// Kind classifies an error into the taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthInvalid
	KindVersionConflict
	KindValidationFailed
	KindAuthorizationDenied
	KindTransport
	KindNotFound
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindAuthInvalid:
		return "auth_invalid"
	case KindVersionConflict:
		return "version_conflict"
	case KindValidationFailed:
		return "validation_failed"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindTransport:
		return "transport_failure"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrAuthInvalid, KindAuthInvalid},
	{ErrVersionConflict, KindVersionConflict},
	{ErrValidationFailed, KindValidationFailed},
	{ErrAuthorizationDenied, KindAuthorizationDenied},
	{ErrTransport, KindTransport},
	{ErrNotFound, KindNotFound},
}

// KindOf maps err to its Kind. Context cancellation and deadline map to KindCanceled.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	if isContextErr(err) {
		return KindCanceled
	}
	return KindUnknown
}

// Error describes a failed call.
type Error struct {
	// Status is the HTTP status, 0 for network failures.
	Status int
	// Code, Field and Message come from the server's error body when present.
	Code    string
	Field   string
	Message string

	kind  error
	cause error
}

// NewError builds the error for an HTTP status, as the client does for responses.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, kind: sentinelForStatus(status)}
}

func (e *Error) sentinel() error {
	if e.kind != nil {
		return e.kind
	}
	return sentinelForStatus(e.Status)
}

func (e *Error) Error() string {
	kind := e.sentinel()
	switch {
	case e.Status == 0 && e.cause != nil:
		return fmt.Sprintf("%s: %v", kind, e.cause)
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %d %s: %s", kind, e.Status, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %d %s", kind, e.Status, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: %d %s", kind, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.cause}
}

// Reason is the server-provided explanation, suitable for showing verbatim.
func (e *Error) Reason() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.Status)
	}
}

// NewValidationError builds a local ValidationFailed error for field.
func NewValidationError(field, message string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: "VALIDATION", Field: field, Message: message, kind: ErrValidationFailed}
}

func sentinelForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuthInvalid
	case http.StatusForbidden:
		return ErrAuthorizationDenied
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrVersionConflict
	case http.StatusTooManyRequests:
		return ErrTransport
	}
	if status >= 500 || status < 400 {
		return ErrTransport
	}
	return ErrValidationFailed
}

// errorBody accepts {"error":{"code","field","message"}} and {"error":"text"}.
type errorBody struct {
	Error any `json:"error"`
}

func (b errorBody) fields() (code, field, message string) {
	switch v := b.Error.(type) {
	case string:
		return "", "", v
	case map[string]any:
		code, _ = v["code"].(string)
		field, _ = v["field"].(string)
		message, _ = v["message"].(string)
	}
	return code, field, message
}
