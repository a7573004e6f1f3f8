package authflow

import (
	"context"

	"github.com/MrEthical07/authflow/social"
)

type clientIDContextKey struct{}
type clientIPContextKey struct{}
type secureContextKey struct{}
type originContextKey struct{}
type formContextKey struct{}

// WithClientID attaches the browser client identifier to ctx. It keys the
// stored session, signup drafts and the submission gate. Without it no
// session is saved and concurrent submissions are not gated.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, clientID)
}

// WithClientIP attaches the caller's IP address to ctx for the per-IP login
// throttle and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithSecureContext records whether the page was served over a secure
// context. It takes precedence over WithOrigin.
func WithSecureContext(ctx context.Context, secure bool) context.Context {
	return context.WithValue(ctx, secureContextKey{}, secure)
}

// WithOrigin attaches the page origin. A secure context is inferred from it
// with social.IsSecureOrigin when WithSecureContext was not used.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

func clientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(clientIDContextKey{}).(string)
	return id
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func secureContextFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	if secure, ok := ctx.Value(secureContextKey{}).(bool); ok {
		return secure
	}
	origin, _ := ctx.Value(originContextKey{}).(string)
	return social.IsSecureOrigin(origin)
}

func withForm(ctx context.Context, form Form) context.Context {
	return context.WithValue(ctx, formContextKey{}, form)
}

func formFromContext(ctx context.Context) Form {
	if ctx == nil {
		return ""
	}

	form, _ := ctx.Value(formContextKey{}).(Form)
	return form
}
