package tools

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/world/worldtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type chatLog struct {
	mu    sync.Mutex
	lines []string
}

func (c *chatLog) say(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, text)
}

func (c *chatLog) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

type harness struct {
	world  *worldtest.Fake
	state  *agentstate.State
	runner *TaskRunner
	chat   *chatLog
	env    Env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		world:  worldtest.New(),
		state:  agentstate.New(),
		runner: NewTaskRunner(ctx, zaptest.NewLogger(t)),
		chat:   &chatLog{},
	}
	h.env = Env{
		World:  h.world,
		State:  h.state,
		Runner: h.runner,
		Say:    h.chat.say,
		Logger: zaptest.NewLogger(t),
	}
	t.Cleanup(func() {
		cancel()
		_ = h.runner.Wait()
	})
	return h
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !h.state.Snapshot().Active() }, 2*time.Second, 5*time.Millisecond)
}

const eventually = 2 * time.Second
const tick = 5 * time.Millisecond
