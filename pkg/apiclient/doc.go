// Package apiclient is the typed HTTP client for the helpdesk REST backend.
//
// Every endpoint the client core depends on is a method on Client. Credentialed
// calls read the current token from a shared CredentialSlot and attach it as a
// bearer header; the slot doubles as an oauth2.TokenSource so it can be handed
// to other HTTP stacks. Each request carries an X-Request-ID taken from the
// context (see package requestid).
//
// # Errors
//
// Non-2xx responses and network failures become *Error values wrapping one of
// the taxonomy sentinels, so callers branch with errors.Is or KindOf:
//
//	ErrAuthInvalid          401, credential missing, bad or expired
//	ErrAuthorizationDenied  403, role insufficient
//	ErrNotFound             404
//	ErrVersionConflict      409, stale expected version
//	ErrValidationFailed     400 and 422, and local input checks
//	ErrTransport            network failure, 5xx, 429, unreadable response
//
// A cancelled context is returned as the context error, not as ErrTransport:
// the caller went away, there is nobody to report a failure to.
//
// The client never retries. Retry policy belongs to the components built on
// top of it (only package submit replays, and only with the same key).
package apiclient
