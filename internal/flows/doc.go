// Package flows contains pure-function orchestrators for the Engine's linking operations.
//
// Each flow function (RunInitiateLink, RunConfirmLink) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. This design enables exhaustive unit testing with mock
// dependencies and keeps the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the identity store, pending table, notifier,
// rate limiter, audit dispatcher, and metrics. They do NOT own any of these
// resources; the Engine owns them.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goLink (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through the LinkDeps functions.
package flows
