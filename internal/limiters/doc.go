// Package limiters provides Redis-backed rate limiters for the linking flows.
//
// # Limiters
//
//   - [LinkLimiter]: per-account fixed-window throttle for initiate and confirm.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Policy thresholds
// come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goLink or any sibling internal package.
//   - Make policy decisions beyond counting. Flow functions decide consequences.
package limiters
