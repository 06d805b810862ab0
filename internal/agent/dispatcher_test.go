package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/tools"
	"github.com/crystaldolphin/blockhand/internal/world"
	"github.com/crystaldolphin/blockhand/internal/world/worldtest"
)

func newTestDispatcher(t *testing.T, e *env) (*Dispatcher, *recorder) {
	rec := &recorder{}
	return NewDispatcher(testRegistry(), e.tools, rec, zaptest.NewLogger(t)), rec
}

func TestDispatch_NilAction(t *testing.T) {
	e := newEnv(t)
	d, rec := newTestDispatcher(t, e)

	assert.Equal(t, DispatchNone, d.Dispatch(context.Background(), nil, "alice"))
	assert.Empty(t, rec.Entries())
}

func TestDispatch_FollowTargetsIssuer(t *testing.T) {
	e := newEnv(t)
	e.world.AddPlayer("alice", world.Vec3{X: 3})
	e.world.AddPlayer("mallory", world.Vec3{Z: 3})
	d, rec := newTestDispatcher(t, e)

	ctx := tools.WithTurn(context.Background(), tools.TurnContext{TurnID: "turn-1", Issuer: "alice"})
	action := &schema.Action{Tool: "follow", Params: schema.Params{"playerName": "mallory"}}

	assert.Equal(t, DispatchOK, d.Dispatch(ctx, action, "alice"))
	assert.Equal(t, "alice", e.state.Snapshot().TargetPlayer)
	assert.Equal(t, "mallory", action.Params["playerName"], "caller's action must not be mutated")

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "turn-1", entries[0].TurnID)
	assert.Equal(t, "alice", entries[0].Issuer)
	assert.Equal(t, "follow", entries[0].Tool)
	assert.JSONEq(t, `{"playerName":"alice"}`, entries[0].Params)
	assert.Equal(t, DispatchOK, entries[0].Outcome)
}

func TestDispatch_UnknownToolLeavesStateUnchanged(t *testing.T) {
	e := newEnv(t)
	d, rec := newTestDispatcher(t, e)

	got := d.Dispatch(context.Background(), &schema.Action{Tool: "fly", Params: schema.Params{}}, "alice")

	assert.Equal(t, DispatchUnknownTool, got)
	assert.False(t, e.state.Snapshot().Active())
	assert.Empty(t, e.world.Goals())
	assert.Empty(t, e.chat.Lines())
	require.Len(t, rec.Entries(), 1)
	assert.Equal(t, DispatchUnknownTool, rec.Entries()[0].Outcome)
}

func TestDispatch_InvalidParams(t *testing.T) {
	e := newEnv(t)
	d, rec := newTestDispatcher(t, e)

	got := d.Dispatch(context.Background(), &schema.Action{Tool: "mine", Params: schema.Params{"amount": 2}}, "alice")

	assert.Equal(t, DispatchInvalid, got)
	assert.False(t, e.state.IsMining())
	assert.Empty(t, e.chat.Lines())
	require.Len(t, rec.Entries(), 1)
	assert.NotEmpty(t, rec.Entries()[0].Detail)
}

func TestDispatch_MineStartsTask(t *testing.T) {
	e := newEnv(t)
	e.world.AddBlock("stone", world.Vec3{X: 1})
	e.world.AddBlock("stone", world.Vec3{X: 2})
	d, _ := newTestDispatcher(t, e)

	got := d.Dispatch(context.Background(), &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "stone", "amount": "2"}}, "alice")

	assert.Equal(t, DispatchOK, got)
	require.Eventually(t, func() bool {
		lines := e.chat.Lines()
		return len(lines) > 0 && lines[len(lines)-1] == "Finished mining, collected 2 stone"
	}, eventually, tick)
	assert.False(t, e.state.IsMining())
	assert.Equal(t, []world.Vec3{{X: 1}, {X: 2}}, e.world.Extracted())
}

type brokenWorld struct {
	*worldtest.Fake
}

func (brokenWorld) ResolvePlayer(context.Context, string) (world.Vec3, bool, error) {
	return world.Vec3{}, false, errors.New("entity table unavailable")
}

func TestDispatch_ExecutionErrorApologises(t *testing.T) {
	e := newEnv(t)
	e.tools.World = brokenWorld{e.world}
	d, rec := newTestDispatcher(t, e)

	got := d.Dispatch(context.Background(), &schema.Action{Tool: "follow"}, "alice")

	assert.Equal(t, DispatchFailed, got)
	assert.Equal(t, []string{tools.ApologyText}, e.chat.Lines())
	assert.False(t, e.state.IsFollowing())
	require.Len(t, rec.Entries(), 1)
	assert.Contains(t, rec.Entries()[0].Detail, "entity table unavailable")
}
