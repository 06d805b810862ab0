package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/world"
)

func TestStop_ClearsAllFlags(t *testing.T) {
	h := newHarness(t)
	h.world.AddPlayer("alice", world.Vec3{X: 4})
	h.world.AddBlock("stone", world.Vec3{X: 1})
	h.world.ExtractHook = func(ctx context.Context, _ world.Block) error {
		<-ctx.Done()
		return ctx.Err()
	}
	ctx := context.Background()

	require.NoError(t, NewFollowTool(2, 0).Execute(ctx, h.env, schema.Params{"playerName": "alice"}))
	require.NoError(t, NewMineTool(32).Execute(ctx, h.env, schema.Params{"blockType": "stone"}))
	snap := h.state.Snapshot()
	require.True(t, snap.IsFollowing)
	require.True(t, snap.IsMining)

	stop := NewStopTool()
	require.NoError(t, stop.Execute(ctx, h.env, nil))
	once := h.state.Snapshot()
	require.NoError(t, stop.Execute(ctx, h.env, nil))
	twice := h.state.Snapshot()

	assert.Equal(t, agentstate.Snapshot{Tasks: []agentstate.TaskInfo{}}, once)
	assert.Equal(t, once, twice)
	assert.Equal(t, 2, h.world.Stops())

	h.waitIdle(t)
	assert.Empty(t, h.chat.Lines())
}

func TestStop_WhenIdle(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, NewStopTool().Execute(context.Background(), h.env, schema.Params{}))

	assert.False(t, h.state.Snapshot().Active())
	assert.Equal(t, 1, h.world.Stops())
}
