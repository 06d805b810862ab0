package tools

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

// StopTool cancels everything the agent is doing.
type StopTool struct {
	closed
}

func NewStopTool() *StopTool { return &StopTool{} }

func (t *StopTool) Name() string        { return string(ToolStop) }
func (t *StopTool) Description() string { return "Stop every action currently in progress." }
func (t *StopTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *StopTool) Execute(ctx context.Context, env Env, _ schema.Params) error {
	n := env.State.RevokeAll()
	env.log().Info("stop: tasks revoked", zap.Int("count", n))
	return env.World.StopNavigation(ctx)
}
