package tools

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/world"
)

// ApologyText is the only thing chat ever sees of an execution failure.
const ApologyText = "Something went wrong while carrying out that action."

// Tool is an executable action. The set of tools is closed; every variant
// lives in this package.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	// Execute runs the synchronous part of the action. Long-running work is
	// handed to env.Runner and continues after Execute returns.
	Execute(ctx context.Context, env Env, params schema.Params) error

	sealed()
}

// ChatFunc posts a line to world chat.
type ChatFunc func(text string)

// Env is everything a tool may touch.
type Env struct {
	World  world.World
	State  *agentstate.State
	Runner *TaskRunner
	Say    ChatFunc
	Logger *zap.Logger
}

func (e Env) say(text string) {
	if e.Say != nil {
		e.Say(text)
	}
}

func (e Env) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

type closed struct{}

func (closed) sealed() {}

var (
	_ Tool = (*FollowTool)(nil)
	_ Tool = (*MineTool)(nil)
	_ Tool = (*StopTool)(nil)
)
