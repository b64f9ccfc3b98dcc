package app

import "context"

type contextKey string

const appKey contextKey = "app"

// WithContext stores a in ctx for command handlers.
func WithContext(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, appKey, a)
}

// FromContext returns the App stored by WithContext, or nil.
func FromContext(ctx context.Context) *App {
	a, _ := ctx.Value(appKey).(*App)
	return a
}
