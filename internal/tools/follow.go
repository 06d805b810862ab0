package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/world"
)

// FollowTool keeps the agent close to a player until stopped or the player
// disappears.
type FollowTool struct {
	closed
	distance float64
	interval time.Duration
}

func NewFollowTool(distance float64, interval time.Duration) *FollowTool {
	if distance <= 0 {
		distance = 2
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &FollowTool{distance: distance, interval: interval}
}

func (t *FollowTool) Name() string { return string(ToolFollow) }
func (t *FollowTool) Description() string {
	return "Follow the player who asked, keeping a short distance."
}
func (t *FollowTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"playerName": {
				"type": "string",
				"minLength": 1,
				"description": "Name of the player to follow, defaults to whoever asked"
			}
		}
	}`)
}

func (t *FollowTool) Execute(ctx context.Context, env Env, params schema.Params) error {
	name := params.String("playerName")
	if name == "" {
		name = TurnCtx(ctx).Issuer
		params = params.Clone()
		params["playerName"] = name
	}
	_, present, err := env.World.ResolvePlayer(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve player %s: %w", name, err)
	}
	if !present {
		env.say(fmt.Sprintf("I can't find player %s.", name))
		return nil
	}

	tok := env.State.Replace(env.Runner.Context(), agentstate.KindFollow,
		schema.Action{Tool: t.Name(), Params: params})
	env.Runner.Go(tok, env.Say, func(ctx context.Context) error {
		return t.pursue(ctx, env, tok, name)
	})
	return nil
}

func (t *FollowTool) pursue(ctx context.Context, env Env, tok *agentstate.Token, name string) error {
	log := env.log().With(zap.String("player", name))
	for tok.Active() {
		_, present, err := env.World.ResolvePlayer(ctx, name)
		if err != nil && tok.Active() {
			log.Warn("follow: resolve failed", zap.Error(err))
		}
		if err == nil && !present {
			if tok.Release() {
				env.say("Lost sight of the player I was following.")
			}
			return nil
		}

		if err == nil {
			if err := env.World.NavigateTo(ctx, world.FollowGoal(name, t.distance)); err != nil {
				if !tok.Active() {
					return nil
				}
				log.Warn("follow: navigation failed", zap.Error(err))
			}
		}

		select {
		case <-tok.Done():
			return nil
		case <-time.After(t.interval):
		}
	}
	return nil
}
