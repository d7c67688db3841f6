// Package internal contains helper utilities that are intentionally private to goLink,
// including secure verification code generation.
//
// # Sub-packages
//
//   - flows: pure-function flow orchestrators for the linking operations
//   - limiters: Redis-backed fixed-window throttles for initiate and confirm
//   - stores: the in-memory pending registration table
//
// # What this package must NOT do
//
//   - Export types that appear in the public goLink API.
//   - Be imported by any package outside the goLink module.
package internal
