// Package cache holds bounded, expiring in-memory copies of server entities.
//
// An LRU keeps at most capacity entries and drops the least recently used one
// when full. Entries older than the configured TTL are treated as absent.
// Values are replaced whole with Put; there is no partial update, so a cached
// copy is always something the server returned.
package cache
