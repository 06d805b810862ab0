package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/world"
)

// MineTool gathers a number of blocks of one type from the surroundings.
type MineTool struct {
	closed
	radius int
}

func NewMineTool(radius int) *MineTool {
	if radius <= 0 {
		radius = 32
	}
	return &MineTool{radius: radius}
}

func (t *MineTool) Name() string { return string(ToolMine) }
func (t *MineTool) Description() string {
	return "Mine blocks of the given type nearby."
}
func (t *MineTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"blockType": {
				"type": "string",
				"minLength": 1,
				"description": "Block type in English, e.g. stone, dirt, diamond_ore"
			},
			"amount": {
				"type": ["integer", "number", "string"],
				"description": "How many blocks to mine, default 1"
			}
		},
		"required": ["blockType"]
	}`)
}

func (t *MineTool) Execute(_ context.Context, env Env, params schema.Params) error {
	const busy = "I'm already mining..."
	if env.State.IsMining() {
		env.say(busy)
		return nil
	}

	name := params.String("blockType")
	bt, ok := env.World.BlockType(name)
	if !ok {
		env.say(fmt.Sprintf("I don't know the block type: %s", name))
		return nil
	}

	amount := params.Int("amount", 1)
	if amount < 1 {
		amount = 1
	}

	tok, err := env.State.Acquire(env.Runner.Context(), agentstate.KindMine,
		schema.Action{Tool: t.Name(), Params: params})
	if errors.Is(err, agentstate.ErrBusy) {
		env.say(busy)
		return nil
	}
	if err != nil {
		return err
	}

	env.Runner.Go(tok, env.Say, func(ctx context.Context) error {
		t.gather(ctx, env, tok, bt, name, amount)
		return nil
	})
	return nil
}

func (t *MineTool) gather(ctx context.Context, env Env, tok *agentstate.Token, bt world.BlockType, name string, amount int) {
	log := env.log().With(zap.String("block", name), zap.Int("amount", amount))
	collected := 0

	for collected < amount && tok.Active() {
		found, err := env.World.FindNearby(ctx, bt, t.radius, 1)
		if err != nil {
			if tok.Active() {
				log.Warn("mine: search failed", zap.Error(err))
				env.say(fmt.Sprintf("Mining failed, I couldn't get that %s.", name))
			}
			break
		}
		if len(found) == 0 {
			if tok.Release() {
				env.say(fmt.Sprintf("No more %s nearby.", name))
			}
			return
		}

		if err := t.mineOne(ctx, env, found[0]); err != nil {
			if tok.Active() {
				log.Warn("mine: extraction failed", zap.Error(err), zap.Stringer("pos", found[0]))
				env.say(fmt.Sprintf("Mining failed, I couldn't get that %s.", name))
			}
			break
		}
		collected++
		if amount > 1 {
			env.say(fmt.Sprintf("Mined %d/%d %s", collected, amount, name))
		}
	}

	tok.Release()
	if amount > 1 {
		env.say(fmt.Sprintf("Finished mining, collected %d %s", collected, name))
	}
}

func (t *MineTool) mineOne(ctx context.Context, env Env, pos world.Vec3) error {
	if err := env.World.NavigateTo(ctx, world.BlockGoal(pos)); err != nil {
		return fmt.Errorf("reach %s: %w", pos, err)
	}
	b, err := env.World.BlockAt(ctx, pos)
	if err != nil {
		return err
	}
	if err := env.World.SelectToolFor(ctx, b); err != nil {
		return fmt.Errorf("equip for %s: %w", b.Type.Name, err)
	}
	return env.World.Extract(ctx, b)
}
