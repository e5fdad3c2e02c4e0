package backend

import "context"

type tokenKey struct{}

// ContextWithToken carries the caller's bearer token to backend calls. The
// backend makes every authorization decision with it.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Detach keeps the bearer token of ctx on a context that outlives the request,
// for background work such as an upload batch.
func Detach(ctx context.Context) context.Context {
	return ContextWithToken(context.Background(), TokenFromContext(ctx))
}
