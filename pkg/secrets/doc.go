// Package secrets seals small records at rest with AES-256-GCM.
//
// A Sealer derives its key with HKDF-SHA256 from a device key and an origin
// string, and binds the origin as additional authenticated data. A record sealed
// for one API origin therefore cannot be opened under another one, which is what
// keeps persisted credentials origin-scoped even when several origins share a
// single file or Redis database.
package secrets
