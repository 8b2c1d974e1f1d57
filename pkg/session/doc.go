// Package session owns the signed-in identity of a helpdesk client.
//
// A Manager moves through five states:
//
//	Unresolved          before Boot
//	HydratingFromCache  credential found, no cached identity; callers wait
//	Validating          credential and cached identity found; the stale identity is shown
//	Authenticated       credential accepted (or just supplied by Login)
//	Anonymous           no credential
//
// Boot reads the persisted record. With a credential present it applies the
// credential to the shared apiclient.CredentialSlot and validates it against
// GET /me in the background. A validation failure of any kind, including a
// network error, tears the session down: the record is cleared and the state
// becomes Anonymous. Validation is never retried.
//
// Login and Logout bump a generation counter. A validation started under an
// older generation is discarded when it completes, so a background check can
// never undo an explicit Login.
//
// Consumers observe the manager through Subscribe instead of polling; every
// change of state or identity is published. The capability queries
// (IsAuthenticated, IsAgent, IsAdmin, IsUser) read in-memory state only.
//
// Components that see a rejected credential report it with
// CredentialRejectedAt, passing the Generation read before their request was
// sent. It behaves like Logout unless a newer Login or Logout has happened
// since, in which case the refusal is stale and ignored.
package session
