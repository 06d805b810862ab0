package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/world"
)

func TestMine_UnknownBlock(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, NewMineTool(32).Execute(context.Background(), h.env, schema.Params{"blockType": "obsidian"}))

	assert.Equal(t, []string{"I don't know the block type: obsidian"}, h.chat.Lines())
	assert.False(t, h.state.IsMining())
}

func TestMine_CollectsRequestedAmount(t *testing.T) {
	h := newHarness(t)
	for x := 1; x <= 4; x++ {
		h.world.AddBlock("stone", world.Vec3{X: x})
	}

	require.NoError(t, NewMineTool(32).Execute(context.Background(), h.env, schema.Params{"blockType": "stone", "amount": 3}))
	h.waitIdle(t)

	assert.Equal(t, []string{
		"Mined 1/3 stone",
		"Mined 2/3 stone",
		"Mined 3/3 stone",
		"Finished mining, collected 3 stone",
	}, h.chat.Lines())
	assert.Equal(t, []world.Vec3{{X: 1}, {X: 2}, {X: 3}}, h.world.Extracted())
	assert.Len(t, h.world.Equipped(), 3)
}

func TestMine_SingleBlockIsQuiet(t *testing.T) {
	h := newHarness(t)
	h.world.AddBlock("dirt", world.Vec3{Y: -1})

	require.NoError(t, NewMineTool(32).Execute(context.Background(), h.env, schema.Params{"blockType": "dirt"}))
	h.waitIdle(t)

	assert.Empty(t, h.chat.Lines())
	assert.Len(t, h.world.Extracted(), 1)
}

func TestMine_AmountAsString(t *testing.T) {
	h := newHarness(t)
	h.world.AddBlock("stone", world.Vec3{X: 1})
	h.world.AddBlock("stone", world.Vec3{X: 2})

	require.NoError(t, NewMineTool(32).Execute(context.Background(), h.env, schema.Params{"blockType": "stone", "amount": "2"}))
	h.waitIdle(t)

	assert.Len(t, h.world.Extracted(), 2)
}

func TestMine_Exhaustion(t *testing.T) {
	h := newHarness(t)
	h.world.AddBlock("stone", world.Vec3{X: 1})
	h.world.AddBlock("stone", world.Vec3{X: 40})

	require.NoError(t, NewMineTool(32).Execute(context.Background(), h.env, schema.Params{"blockType": "stone", "amount": 3}))
	h.waitIdle(t)

	assert.Equal(t, []string{"Mined 1/3 stone", "No more stone nearby."}, h.chat.Lines())
}

func TestMine_ExtractionFailureEndsLoop(t *testing.T) {
	h := newHarness(t)
	h.world.AddBlock("stone", world.Vec3{X: 1})
	h.world.ExtractHook = func(context.Context, world.Block) error { return errors.New("too hard") }

	require.NoError(t, NewMineTool(32).Execute(context.Background(), h.env, schema.Params{"blockType": "stone", "amount": 2}))
	h.waitIdle(t)

	assert.Equal(t, []string{
		"Mining failed, I couldn't get that stone.",
		"Finished mining, collected 0 stone",
	}, h.chat.Lines())
}

func TestMine_RefusesSecondLoop(t *testing.T) {
	h := newHarness(t)
	h.world.AddBlock("stone", world.Vec3{X: 1})
	started := make(chan struct{})
	h.world.ExtractHook = func(ctx context.Context, _ world.Block) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	tool := NewMineTool(32)

	require.NoError(t, tool.Execute(context.Background(), h.env, schema.Params{"blockType": "stone"}))
	<-started
	require.NoError(t, tool.Execute(context.Background(), h.env, schema.Params{"blockType": "stone"}))
	assert.Equal(t, []string{"I'm already mining..."}, h.chat.Lines())
	assert.Len(t, h.state.Snapshot().Tasks, 1)

	h.state.RevokeAll()
	h.waitIdle(t)
	assert.Equal(t, []string{"I'm already mining..."}, h.chat.Lines(), "expected a revoked loop to end quietly")
}
