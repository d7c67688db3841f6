// Package goLink links a local (in-game) account to an external (Discord)
// account with a short-lived numeric verification code.
//
// The workflow has two steps. [Engine.InitiateLinking] validates the external
// account id, holds a fresh code as a pending registration and sends it
// through a [Notifier]. [Engine.ConfirmLinking] checks that the confirming
// account owns the code, persists the link through an [IdentityStore] and
// sends the follow-up role command.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// goLink is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces and value types. Flow orchestration, the
// pending table, code generation and rate limiting live under internal/.
// Implementations of the collaborators live in sub-packages: notify,
// messages, stores/yamlstore, stores/redisstore, stores/sqlitestore. The
// player-facing command surface lives in command.
//
// # What this package must NOT do
//
//   - Return verification codes to callers, log them or write them to audit events.
//   - Return user-facing text; callers map errors with [MessageKey].
//   - Share pending registrations between processes.
//   - Import any sub-package that re-imports goLink.
package goLink
