// Package messages holds the user-facing message templates of the linking
// workflow and the placeholder substitution used to render them.
//
// A [Catalog] is populated once at startup, from [Default] or a YAML file
// through [LoadFile], and is read-only afterwards.
//
// # What this package must NOT do
//
//   - Import the goLink root package.
//   - Reload or mutate a Catalog after it is handed to an Engine.
package messages
