package shared

import "context"

type sessionContextKey struct{}

type tokensContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithTokens stores the API tokens used for outbound calls.
func ContextWithTokens(ctx context.Context, t Tokens) context.Context {
	return context.WithValue(ctx, tokensContextKey{}, t)
}

// TokensFromContext returns the API tokens, or zero Tokens.
func TokensFromContext(ctx context.Context) Tokens {
	t, _ := ctx.Value(tokensContextKey{}).(Tokens)
	return t
}
