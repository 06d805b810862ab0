package tools

import "context"

// TurnContext carries per-turn metadata through the context tree.
// It is set by the agent loop once per message and read by the dispatcher
// and the task runner for logging.
type TurnContext struct {
	TurnID string
	Issuer string
}

type turnKey struct{}

// WithTurn returns a child context that carries tc.
func WithTurn(ctx context.Context, tc TurnContext) context.Context {
	return context.WithValue(ctx, turnKey{}, tc)
}

// TurnCtx extracts the TurnContext from ctx.
// Returns a zero-value TurnContext if none was set.
func TurnCtx(ctx context.Context) TurnContext {
	tc, _ := ctx.Value(turnKey{}).(TurnContext)
	return tc
}
