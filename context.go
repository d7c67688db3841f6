package goLink

import "context"

type clientIPContextKey struct{}
type sourceContextKey struct{}

// WithClientIP attaches the caller's address to ctx. It is copied into audit
// events only.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithSource attaches the name of the surface that issued a command
// ("console", "http") to ctx. It is copied into audit events and log lines.
//
//	Docs: command
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceContextKey{}, source)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func sourceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	source, _ := ctx.Value(sourceContextKey{}).(string)
	return source
}
