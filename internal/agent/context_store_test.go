package agent

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

func mineResult(reply string, amount any) Result {
	return Result{Reply: reply, Action: &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "stone", "amount": amount}}}
}

func TestContextStore_KeepsWindow(t *testing.T) {
	s := NewContextStore(0, zaptest.NewLogger(t))
	for i := 1; i <= 4; i++ {
		s.Append(fmt.Sprintf("msg %d", i), Result{Reply: fmt.Sprintf("reply %d", i)})
	}

	turns := s.Turns()
	require.Len(t, turns, DefaultContextWindow)
	assert.Equal(t, "msg 2", turns[0].Text)
	assert.Equal(t, schema.RoleUser, turns[0].Role)
	assert.Equal(t, "reply 4", turns[5].Result.Reply)
}

func TestContextStore_CollapsesWhenUnserializable(t *testing.T) {
	s := NewContextStore(6, zaptest.NewLogger(t))
	s.Append("first", Result{Reply: "one"})
	s.marshal = func(any) ([]byte, error) { return nil, errors.New("boom") }

	s.Append("second", Result{Reply: "two"})

	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].Text)
	assert.Equal(t, "two", turns[1].Result.Reply)
}

func TestContextStore_DropsNonScalarParams(t *testing.T) {
	s := NewContextStore(6, zaptest.NewLogger(t))
	res := mineResult("ok", 3)
	res.Action.Params["nested"] = map[string]any{"a": 1}
	res.Outcome = OutcomeParsed

	s.Append("mine", res)

	last := s.LastAction()
	require.NotNil(t, last)
	assert.Equal(t, schema.Params{"blockType": "stone", "amount": 3}, last.Params)
	assert.Equal(t, Outcome(""), s.Turns()[1].Result.Outcome)
}

func TestContextStore_ModelMessages(t *testing.T) {
	s := NewContextStore(6, zaptest.NewLogger(t))
	s.Append("mine 3 stone", mineResult("Mining", 3))
	s.Append("hello", Result{Reply: "Hi!"})

	var got []schema.Message
	for m := range s.ModelMessages() {
		got = append(got, m)
	}
	require.Len(t, got, 4)
	assert.Equal(t, schema.NewUserMessage("mine 3 stone"), got[0])
	assert.Equal(t, schema.RoleAssistant, got[1].Role)
	assert.JSONEq(t, `{"reply":"Mining","action":{"tool":"mine","params":{"blockType":"stone","amount":3}}}`, got[1].Content)
	assert.JSONEq(t, `{"reply":"Hi!","action":null}`, got[3].Content)
}

func TestContextStore_LastActionIsMostRecentAssistantTurn(t *testing.T) {
	s := NewContextStore(6, zaptest.NewLogger(t))
	assert.Nil(t, s.LastAction())

	s.Append("mine", mineResult("Mining", 3))
	last := s.LastAction()
	require.NotNil(t, last)
	assert.Equal(t, "mine", last.Tool)

	// The returned action is a copy.
	last.Params["amount"] = 99
	assert.Equal(t, 3, s.LastAction().Params["amount"])

	s.Append("hi", Result{Reply: "Hello"})
	assert.Nil(t, s.LastAction())
}
