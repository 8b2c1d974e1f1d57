// Package identity defines the client-side identity model shared by the session,
// storage and transport layers: the opaque Credential attached to outgoing calls
// and the Snapshot of the signed-in user cached next to it.
//
// Capability predicates (IsAdmin, IsAgent, IsUser) are pure functions of a Snapshot.
// They never perform I/O and never grant access on their own: the backend enforces
// every role check, the predicates only decide which affordances a client offers.
package identity
