package ctxutil

import "context"

type sessionKey struct{}

// WithSessionID tags ctx with the narrative session a request acts on.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

func SessionID(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey{}).(string)
	return s
}
