package agent

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/providers"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/shared/llmutils"
)

// Replies used when the model's output cannot be used as is.
const (
	ReplyEmpty       = "Understood, continuing the previous action."
	ReplyUnparsable  = "Okay, continuing the previous action."
	ReplyRateLimited = "I'll keep doing what I was doing."
	ReplyServerError = "Okay, carrying on."
	ReplyTransport   = "Continuing the previous action."
)

// ActionValidator checks an action against the tool catalog.
type ActionValidator interface {
	Validate(action schema.Action) error
}

// History supplies the last known action for the fallback continuation.
type History interface {
	LastAction() *schema.Action
}

// Interpreter turns raw completions into a reply and an optional validated
// action.
type Interpreter struct {
	validator ActionValidator
	log       *zap.Logger
}

func NewInterpreter(validator ActionValidator, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpreter{validator: validator, log: logger}
}

// Interpret accepts the completion as a string, an already decoded object,
// or nil. Every branch yields a usable Result except a parsed object that
// lacks a reply, which is an *InterpretationError.
func (in *Interpreter) Interpret(payload any, userText string, history History) (Result, error) {
	var obj map[string]any

	switch p := payload.(type) {
	case nil:
		return in.continuation(ReplyEmpty, OutcomeEmpty, userText, history), nil
	case map[string]any:
		obj = p
	case string:
		text := strings.TrimSpace(llmutils.StripThink(p))
		if text == "" || text == "undefined" || text == "null" {
			in.log.Warn("interpret: empty completion, continuing previous action")
			return in.continuation(ReplyEmpty, OutcomeEmpty, userText, history), nil
		}
		parsed, err := extractObject(text)
		if err != nil {
			in.log.Warn("interpret: unparsable completion",
				zap.Error(err), zap.String("raw", llmutils.Truncate(text, 200)))
			return in.continuation(ReplyUnparsable, OutcomeUnparsable, userText, history), nil
		}
		obj = parsed
	default:
		in.log.Warn("interpret: unexpected payload type")
		return in.continuation(ReplyUnparsable, OutcomeUnparsable, userText, history), nil
	}

	reply, _ := obj["reply"].(string)
	if strings.TrimSpace(reply) == "" {
		return Result{}, &InterpretationError{Reason: "missing reply field"}
	}

	action := actionFrom(obj["action"])
	if action == nil {
		return Result{Reply: reply, Outcome: OutcomeParsed}, nil
	}
	if err := in.validator.Validate(*action); err != nil {
		in.log.Warn("interpret: invalid action, continuing previous action",
			zap.String("tool", action.Tool), zap.Error(err))
		res := in.continuation(reply, OutcomeInvalidAction, userText, history)
		return res, nil
	}
	return Result{Reply: reply, Action: action, Outcome: OutcomeParsed}, nil
}

// Recover maps a transport failure to a continuation whose reply depends on
// the kind of failure.
func (in *Interpreter) Recover(err error, userText string, history History) Result {
	reply := ReplyTransport
	var te *providers.TransportError
	if errors.As(err, &te) {
		switch {
		case te.IsRateLimited():
			reply = ReplyRateLimited
		case te.IsServerError():
			reply = ReplyServerError
		}
	}
	in.log.Warn("interpret: completion failed, continuing previous action", zap.Error(err))
	return in.continuation(reply, OutcomeTransport, userText, history)
}

func (in *Interpreter) continuation(reply string, outcome Outcome, userText string, history History) Result {
	var last *schema.Action
	if history != nil {
		last = history.LastAction()
	}
	return Result{Reply: reply, Action: fallbackAction(userText, last), Outcome: outcome}
}

// actionFrom reads {tool, params} from a decoded object. Anything without
// a tool name is no action.
func actionFrom(v any) *schema.Action {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	tool, _ := m["tool"].(string)
	if strings.TrimSpace(tool) == "" {
		return nil
	}
	a := &schema.Action{Tool: tool, Params: schema.Params{}}
	if params, ok := m["params"].(map[string]any); ok {
		for k, val := range params {
			a.Params[k] = val
		}
	}
	return a
}
