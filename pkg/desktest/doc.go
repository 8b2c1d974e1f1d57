// Package desktest is an in-memory helpdesk backend speaking the same REST
// contract as the production server. It backs integration tests and the
// deskctl sandbox.
//
//	backend := desktest.New()
//	_, token := backend.AddUser("Ann", "ann@example.com", "secret", identity.RoleAgent)
//	srv := httptest.NewServer(backend.Handler())
//
// It enforces ticket versions (409 on mismatch), deduplicates creates by
// Idempotency-Key per user, pages with limit/offset and next_offset, and
// applies role checks. Every route counts its calls, and faults can be
// injected per route with FailNext, including failures that happen after the
// change was committed, which is how a lost response looks to a client.
package desktest
