// Package notify implements goLink.Notifier.
//
// [Webhook] posts a payload to a Discord webhook URL. [Async] wraps any
// Notifier with a bounded FIFO queue and a single delivery goroutine, so
// callers never wait on the network; payloads leave in the order they were
// queued.
package notify
