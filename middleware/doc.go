// Package middleware exposes HTTP middleware for hosts that drive the link
// commands over HTTP.
//
//   - [RequestContext] attaches client IP and source to the request context.
//   - [RequireToken] guards the command surface with a shared bearer token.
//
// # What this package must NOT do
//
//   - Call the Engine; handlers do that.
//   - Trust forwarding headers. The client IP is the socket peer.
package middleware
