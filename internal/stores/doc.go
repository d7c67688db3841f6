// Package stores provides the in-memory pending registration table used by the
// linking flows.
//
// # Design
//
// The table is a mutex-guarded map from verification code to [PendingEntry].
// Uniqueness of codes among live entries is enforced at insertion by
// [PendingTable.Reserve]; callers re-draw on refusal. Entries carry an optional
// expiry and are evicted lazily on lookup or in bulk by [PendingTable.Sweep].
//
// # Architecture boundaries
//
// This package owns storage and eviction of transient pending records. It does
// NOT generate codes, talk to the identity store, or decide what a failed
// lookup means. Those responsibilities belong to internal/flows.
//
// # What this package must NOT do
//
//   - Import goLink or any sibling internal package.
//   - Persist entries outside process memory.
package stores
