// Package requestctx carries per-request values through context.
package requestctx

import (
	"context"

	"golang.org/x/text/language"
)

type requestIDContextKey struct{}

type languageContextKey struct{}

// WithRequestID stores the correlation id for the current request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the correlation id, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey{}).(string)
	return value
}

// WithLanguage stores the negotiated display language.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, languageContextKey{}, tag)
}

// LanguageFromContext returns the negotiated language, defaulting to English.
func LanguageFromContext(ctx context.Context) language.Tag {
	if ctx == nil {
		return language.English
	}
	tag, ok := ctx.Value(languageContextKey{}).(language.Tag)
	if !ok {
		return language.English
	}
	return tag
}
