// Package credstore persists the current credential and identity snapshot
// between client runs.
//
// A Store holds at most one Record per origin. Three backends are provided:
//
//   - MemoryStore for tests and throwaway sessions,
//   - FileStore, a single JSON file (0600) keyed by origin, written atomically,
//   - RedisStore for shared kiosk or agent-desk machines.
//
// File and Redis backends accept an optional secrets.Sealer. When set, records
// are encrypted with a key bound to the origin, so a file copied between
// machines or a Redis key read under a different origin does not reveal the token.
//
// Load returns ErrNotFound when nothing is persisted and ErrCorrupt when a record
// exists but cannot be decoded; callers treat both as "no credential".
package credstore
