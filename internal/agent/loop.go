package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/bus"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/shared/llmutils"
	"github.com/crystaldolphin/blockhand/internal/tools"
	"github.com/crystaldolphin/blockhand/internal/transcript"
)

// TranscriptWriter persists one record per handled message.
type TranscriptWriter interface {
	Write(rec transcript.Record) error
}

// Loop is the chat-to-action pipeline.
//
// It reads InboundMessages from the bus strictly one at a time, asks the
// provider for a reply, interprets it, says the reply, dispatches the
// action and records the turn. Long-running actions continue in the
// background while later messages are handled.
type Loop struct {
	bus         bus.Bus
	provider    schema.CompletionProvider
	settings    schema.AgentSettings
	prompt      PromptSource
	store       *ContextStore
	interpreter *Interpreter
	dispatcher  *Dispatcher
	transcript  TranscriptWriter
	log         *zap.Logger
}

// LoopDeps groups the collaborators of a Loop. Bus, Dispatcher and
// Transcript are optional; without a Bus nothing is said, without a
// Dispatcher actions are only reported.
type LoopDeps struct {
	Bus         bus.Bus
	Provider    schema.CompletionProvider
	Settings    schema.AgentSettings
	Prompt      PromptSource
	Store       *ContextStore
	Interpreter *Interpreter
	Dispatcher  *Dispatcher
	Transcript  TranscriptWriter
	Logger      *zap.Logger
}

func NewLoop(deps LoopDeps) *Loop {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	store := deps.Store
	if store == nil {
		store = NewContextStore(deps.Settings.ContextWindow, log)
	}
	return &Loop{
		bus:         deps.Bus,
		provider:    deps.Provider,
		settings:    deps.Settings,
		prompt:      deps.Prompt,
		store:       store,
		interpreter: deps.Interpreter,
		dispatcher:  deps.Dispatcher,
		transcript:  deps.Transcript,
		log:         log,
	}
}

// Store exposes the conversation history.
func (l *Loop) Store() *ContextStore { return l.store }

// Run reads from the inbound bus until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("agent loop started")

	for {
		select {
		case msg := <-l.bus.InboundChan():
			l.handleMessage(ctx, msg)
		case <-ctx.Done():
			l.log.Info("agent loop stopping")
			return ctx.Err()
		}
	}
}

// ProcessDirect handles a message outside the bus (CLI).
func (l *Loop) ProcessDirect(ctx context.Context, sender, text string) (Result, error) {
	return l.process(ctx, sender, text)
}

func (l *Loop) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	sender := msg.SenderId()
	if strings.EqualFold(sender, l.settings.Name) {
		return
	}
	if strings.TrimSpace(msg.Content()) == "" {
		l.log.Warn("ignoring blank message", zap.String("sender", sender))
		return
	}
	if _, err := l.process(ctx, sender, msg.Content()); err != nil && ctx.Err() == nil {
		l.log.Warn("message not handled", zap.String("sender", sender), zap.Error(err))
	}
}

func (l *Loop) process(ctx context.Context, sender, text string) (Result, error) {
	turnID := uuid.NewString()
	ctx = tools.WithTurn(ctx, tools.TurnContext{TurnID: turnID, Issuer: sender})
	log := l.log.With(zap.String("turn_id", turnID), zap.String("sender", sender))
	log.Info("processing message", zap.String("content", llmutils.Truncate(text, 80)))

	conversation := schema.NewMessages()
	if l.prompt != nil {
		conversation.AddSystem(l.prompt.SystemPrompt())
	}
	conversation.AddAll(l.store.ModelMessages())
	conversation.AddUser(UserPrompt(text))

	opts := schema.NewChatOptions(
		llmutils.StringOrDefault(l.settings.Model, l.provider.DefaultModel()),
		l.settings.MaxTokens,
		l.settings.Temperature,
	)
	raw, err := l.provider.Complete(ctx, conversation, opts)

	var res Result
	switch {
	case err != nil && ctx.Err() != nil:
		return Result{}, ctx.Err()
	case err != nil:
		res = l.interpreter.Recover(err, text, l.store)
	default:
		log.Debug("model output", zap.String("raw", llmutils.Truncate(raw, 500)))
		res, err = l.interpreter.Interpret(raw, text, l.store)
	}

	var ie *InterpretationError
	if errors.As(err, &ie) {
		log.Warn("model output had no reply", zap.String("raw", llmutils.Truncate(raw, 200)))
		l.say(ConfusedReply)
		l.writeTranscript(turnID, sender, text, raw, Result{Reply: ConfusedReply}, ie)
		return Result{}, err
	}

	l.say(res.Reply)
	if res.Action != nil {
		log.Info("action", zap.String("tool", res.Action.Tool), zap.Any("params", res.Action.Params),
			zap.String("outcome", string(res.Outcome)))
	}
	if l.dispatcher != nil {
		l.dispatcher.Dispatch(ctx, res.Action, sender)
	}
	l.store.Append(text, res)
	l.writeTranscript(turnID, sender, text, raw, res, nil)
	return res, nil
}

func (l *Loop) say(text string) {
	if l.bus == nil || text == "" {
		return
	}
	l.bus.PublishOutbound(bus.NewOutboundMessage(bus.ChannelWorld, "", text))
}

func (l *Loop) writeTranscript(turnID, sender, text, raw string, res Result, failure error) {
	if l.transcript == nil {
		return
	}
	rec := transcript.Record{
		Time:    time.Now(),
		TurnID:  turnID,
		Sender:  sender,
		Text:    text,
		Raw:     raw,
		Reply:   res.Reply,
		Action:  res.Action,
		Outcome: string(res.Outcome),
	}
	if failure != nil {
		rec.Error = failure.Error()
	}
	if err := l.transcript.Write(rec); err != nil {
		l.log.Warn("transcript write failed", zap.Error(err))
	}
}
