package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/audit"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/tools"
)

// Dispatch outcomes, as recorded in the audit index.
const (
	DispatchNone        = "none"
	DispatchOK          = "ok"
	DispatchUnknownTool = "unknown_tool"
	DispatchInvalid     = "invalid"
	DispatchFailed      = "failed"
)

// ActionRecorder persists dispatched actions.
type ActionRecorder interface {
	Record(e audit.Entry)
}

// Dispatcher resolves actions against the registry and runs them.
type Dispatcher struct {
	registry *tools.Registry
	env      tools.Env
	recorder ActionRecorder
	log      *zap.Logger
}

func NewDispatcher(registry *tools.Registry, env tools.Env, recorder ActionRecorder, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: registry, env: env, recorder: recorder, log: logger}
}

// Dispatch runs action on behalf of issuer. It never fails: unknown tools
// and invalid params are logged and dropped, execution errors become the
// chat apology. A follow always targets the issuer.
func (d *Dispatcher) Dispatch(ctx context.Context, action *schema.Action, issuer string) string {
	if action == nil || action.Tool == "" {
		return DispatchNone
	}
	log := d.log.With(zap.String("tool", action.Tool), zap.String("issuer", issuer),
		zap.String("turn_id", tools.TurnCtx(ctx).TurnID))

	tool, ok := d.registry.Get(action.Tool)
	if !ok {
		log.Warn("dispatch: unknown tool")
		d.record(ctx, issuer, *action, DispatchUnknownTool, "")
		return DispatchUnknownTool
	}

	params := action.Params.Clone()
	if tool.Name() == string(tools.ToolFollow) {
		params["playerName"] = issuer
	}
	resolved := schema.Action{Tool: tool.Name(), Params: params}

	if err := d.registry.Validate(resolved); err != nil {
		log.Warn("dispatch: invalid params", zap.Error(err))
		d.record(ctx, issuer, resolved, DispatchInvalid, err.Error())
		return DispatchInvalid
	}

	if err := d.execute(ctx, tool, params); err != nil {
		log.Error("dispatch: execution failed", zap.Error(err))
		if d.env.Say != nil {
			d.env.Say(tools.ApologyText)
		}
		d.record(ctx, issuer, resolved, DispatchFailed, err.Error())
		return DispatchFailed
	}
	log.Info("dispatch: action started", zap.Any("params", params))
	d.record(ctx, issuer, resolved, DispatchOK, "")
	return DispatchOK
}

func (d *Dispatcher) execute(ctx context.Context, tool tools.Tool, params schema.Params) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), p)
		}
	}()
	return tool.Execute(ctx, d.env, params)
}

func (d *Dispatcher) record(ctx context.Context, issuer string, action schema.Action, outcome, detail string) {
	if d.recorder == nil {
		return
	}
	params, err := json.Marshal(action.Params)
	if err != nil {
		params = []byte("{}")
	}
	d.recorder.Record(audit.Entry{
		Time:    time.Now(),
		TurnID:  tools.TurnCtx(ctx).TurnID,
		Issuer:  issuer,
		Tool:    action.Tool,
		Params:  string(params),
		Outcome: outcome,
		Detail:  detail,
	})
}
