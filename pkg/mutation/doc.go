// Package mutation applies optimistic-concurrency updates to server-held entities.
//
// A Coordinator sends the caller's expected version verbatim together with the
// field changes and classifies the answer:
//
//	Accepted          the server's full new state, to replace any local copy
//	Conflict          the entity moved on (HTTP 409); refresh and let the user decide
//	Rejected          authorization, validation or not-found; terminal, reason verbatim
//	TransportFailure  network-level failure; the user may retry explicitly
//
// Nothing is retried. A rejected credential is reported to the rejection
// handler before Propose returns. At most one Propose per entity id runs at a
// time; later callers wait for the earlier outcome.
//
// When the caller's context is cancelled before the answer is applied the
// outcome is marked Suppressed and no listener runs.
package mutation
