package restclient

import "context"

type contextKey string

const (
	retriedKey  contextKey = "restclient_retried"
	noAuthKey   contextKey = "restclient_no_auth"
	bearerValue            = "Bearer "
)

// WithoutAuth marks a request as anonymous: no bearer header is attached and a
// 401 is returned as is. Used for the login call itself.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, noAuthKey, true)
}

// Retried reports whether the request carrying ctx is already the retry of a
// request that failed with 401. Such a request is never refreshed again.
func Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey).(bool)
	return v
}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

func anonymous(ctx context.Context) bool {
	v, _ := ctx.Value(noAuthKey).(bool)
	return v
}
