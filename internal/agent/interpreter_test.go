package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crystaldolphin/blockhand/internal/providers"
	"github.com/crystaldolphin/blockhand/internal/schema"
)

func newTestInterpreter(t *testing.T) *Interpreter {
	return NewInterpreter(testRegistry(), zaptest.NewLogger(t))
}

func defaultMine(amount int) *schema.Action {
	return &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "stone", "amount": amount}}
}

func TestInterpret_EmptyPayloads(t *testing.T) {
	in := newTestInterpreter(t)
	for _, payload := range []any{nil, "", "   ", "undefined", "null", "<think>...</think>"} {
		res, err := in.Interpret(payload, "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, ReplyEmpty, res.Reply, "payload %q", payload)
		assert.Equal(t, OutcomeEmpty, res.Outcome)
		if diff := cmp.Diff(defaultMine(1), res.Action); diff != "" {
			t.Errorf("fallback action mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestInterpret_ParsedAction(t *testing.T) {
	in := newTestInterpreter(t)
	raw := `{"reply":"Mining 3 stone","action":{"tool":"mine","params":{"blockType":"stone","amount":3}}}`

	res, err := in.Interpret(raw, "mine 3 stone", nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeParsed, res.Outcome)
	assert.Equal(t, "Mining 3 stone", res.Reply)
	want := &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "stone", "amount": json.Number("3")}}
	if diff := cmp.Diff(want, res.Action); diff != "" {
		t.Errorf("action mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, res.Action.Params.Int("amount", 0))
}

func TestInterpret_ProseWrappedObject(t *testing.T) {
	in := newTestInterpreter(t)
	raw := "Here you go:\n```json\n{\"reply\": \"Following you\", \"action\": {\"tool\": \"follow\", \"params\": {},},}\n```"

	res, err := in.Interpret(raw, "follow me", nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeParsed, res.Outcome)
	assert.Equal(t, "Following you", res.Reply)
	require.NotNil(t, res.Action)
	assert.Equal(t, "follow", res.Action.Tool)
}

func TestInterpret_DecodedObject(t *testing.T) {
	in := newTestInterpreter(t)
	res, err := in.Interpret(map[string]any{"reply": "Stopping", "action": map[string]any{"tool": "stop"}}, "stop", nil)
	require.NoError(t, err)
	assert.Equal(t, "Stopping", res.Reply)
	assert.Equal(t, &schema.Action{Tool: "stop", Params: schema.Params{}}, res.Action)
}

func TestInterpret_NoAction(t *testing.T) {
	in := newTestInterpreter(t)
	for _, raw := range []string{
		`{"reply":"Hi there!","action":null}`,
		`{"reply":"Hi there!"}`,
		`{"reply":"Hi there!","action":{"params":{}}}`,
	} {
		res, err := in.Interpret(raw, "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, "Hi there!", res.Reply)
		assert.Nil(t, res.Action, raw)
		assert.Equal(t, OutcomeParsed, res.Outcome)
	}
}

func TestInterpret_UnparsableFallsBack(t *testing.T) {
	in := newTestInterpreter(t)
	res, err := in.Interpret("I will go mine some stone for you.", "mine", nil)
	require.NoError(t, err)
	assert.Equal(t, ReplyUnparsable, res.Reply)
	assert.Equal(t, OutcomeUnparsable, res.Outcome)
	assert.Equal(t, defaultMine(1), res.Action)
}

func TestInterpret_UnparsableResumesPreviousActionWithNewAmount(t *testing.T) {
	in := newTestInterpreter(t)
	history := NewContextStore(6, zaptest.NewLogger(t))
	history.Append("mine 3 stone", mineResult("Mining 3 stone", 3))

	res, err := in.Interpret("sure thing!!", "give me 5 more", history)
	require.NoError(t, err)

	want := Result{Reply: ReplyUnparsable, Action: defaultMine(5), Outcome: OutcomeUnparsable}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	// History is not mutated by the fallback.
	assert.Equal(t, 3, history.LastAction().Params["amount"])
}

func TestInterpret_MissingReply(t *testing.T) {
	in := newTestInterpreter(t)
	for _, raw := range []string{`{"action":{"tool":"stop"}}`, `{"reply":"","action":null}`, `{"reply":42}`} {
		_, err := in.Interpret(raw, "x", nil)
		var ie *InterpretationError
		require.True(t, errors.As(err, &ie), raw)
	}
}

func TestInterpret_InvalidActionKeepsReply(t *testing.T) {
	in := newTestInterpreter(t)
	history := NewContextStore(6, zaptest.NewLogger(t))
	history.Append("mine dirt", Result{Reply: "ok", Action: &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "dirt", "amount": 2}}})

	tests := []string{
		`{"reply":"Flying!","action":{"tool":"fly","params":{}}}`,
		`{"reply":"Flying!","action":{"tool":"mine","params":{"blockType":7}}}`,
	}
	for _, raw := range tests {
		res, err := in.Interpret(raw, "fly up", history)
		require.NoError(t, err)
		assert.Equal(t, "Flying!", res.Reply)
		assert.Equal(t, OutcomeInvalidAction, res.Outcome)
		assert.Equal(t, &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "dirt", "amount": 2}}, res.Action)
	}
}

func TestRecover(t *testing.T) {
	in := newTestInterpreter(t)
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", &providers.TransportError{StatusCode: http.StatusTooManyRequests}, ReplyRateLimited},
		{"server error", &providers.TransportError{StatusCode: http.StatusBadGateway}, ReplyServerError},
		{"network", &providers.TransportError{Message: "request failed", Err: errors.New("dial tcp: refused")}, ReplyTransport},
		{"other", errors.New("boom"), ReplyTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := in.Recover(tt.err, "mine 4", nil)
			assert.Equal(t, tt.want, res.Reply)
			assert.Equal(t, OutcomeTransport, res.Outcome)
			assert.Equal(t, defaultMine(4), res.Action)
		})
	}
}

func TestFallbackAction(t *testing.T) {
	follow := &schema.Action{Tool: "follow", Params: schema.Params{"playerName": "alice"}}

	got := fallbackAction("no numbers", follow)
	assert.Equal(t, follow, got)
	assert.NotSame(t, follow, got)

	got = fallbackAction("follow 2 blocks behind", follow)
	assert.Equal(t, 2, got.Params["amount"])
	_, mutated := follow.Params["amount"]
	assert.False(t, mutated)

	assert.Equal(t, defaultMine(12), fallbackAction("12 or 13", &schema.Action{}))
}
