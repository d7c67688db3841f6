// Package command is the player-facing surface of the linking workflow. It
// parses the "discord <id>" and "register <code>" commands, calls the Engine
// and turns every outcome into a configured message.
//
// # Architecture boundaries
//
// Hosts (a game server bridge, the HTTP surface in cmd/golink, the console
// REPL) build a [Sender] and call [Dispatcher.Handle]. This package never
// reads configuration files or talks to Discord directly.
package command
