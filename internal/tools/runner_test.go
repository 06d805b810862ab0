package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/schema"
)

func TestTaskRunner_ReleasesToken(t *testing.T) {
	h := newHarness(t)
	tok, err := h.state.Acquire(h.runner.Context(), agentstate.KindMine, schema.Action{Tool: "mine"})
	require.NoError(t, err)

	h.runner.Go(tok, h.chat.say, func(context.Context) error { return nil })
	require.NoError(t, h.runner.Wait())

	assert.False(t, h.state.IsMining())
	assert.False(t, tok.Active())
	assert.Empty(t, h.chat.Lines())
}

func TestTaskRunner_ErrorApologises(t *testing.T) {
	h := newHarness(t)
	tok, err := h.state.Acquire(h.runner.Context(), agentstate.KindMine, schema.Action{Tool: "mine"})
	require.NoError(t, err)

	h.runner.Go(tok, h.chat.say, func(context.Context) error { return errors.New("boom") })
	require.NoError(t, h.runner.Wait())

	assert.Equal(t, []string{ApologyText}, h.chat.Lines())
	assert.False(t, h.state.IsMining())
}

func TestTaskRunner_RevokedErrorIsQuiet(t *testing.T) {
	h := newHarness(t)
	tok, err := h.state.Acquire(h.runner.Context(), agentstate.KindFollow, schema.Action{Tool: "follow"})
	require.NoError(t, err)

	h.runner.Go(tok, h.chat.say, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.state.RevokeAll()
	require.NoError(t, h.runner.Wait())

	assert.Empty(t, h.chat.Lines())
}

func TestTaskRunner_RecoversPanic(t *testing.T) {
	h := newHarness(t)
	tok, err := h.state.Acquire(h.runner.Context(), agentstate.KindMine, schema.Action{Tool: "mine"})
	require.NoError(t, err)

	h.runner.Go(tok, h.chat.say, func(context.Context) error { panic("unexpected block") })
	err = h.runner.Wait()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, []string{ApologyText}, h.chat.Lines())
	assert.False(t, h.state.IsMining(), "expected the token to be released after a panic")
}
