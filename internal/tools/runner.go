package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
)

// TaskRunner runs the long-running part of tools detached from the message
// that started them.
type TaskRunner struct {
	ctx context.Context
	g   errgroup.Group
	log *zap.Logger
}

// NewTaskRunner returns a runner whose tasks end when ctx does.
func NewTaskRunner(ctx context.Context, logger *zap.Logger) *TaskRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskRunner{ctx: ctx, log: logger}
}

// Context is the parent of every task token.
func (r *TaskRunner) Context() context.Context { return r.ctx }

// Go runs fn under tok in its own goroutine and releases tok when fn
// returns. An error from a task that was not revoked, or a panic, is logged
// and answered with ApologyText through say.
func (r *TaskRunner) Go(tok *agentstate.Token, say ChatFunc, fn func(ctx context.Context) error) {
	info := tok.Info()
	log := r.log.With(zap.String("task_id", info.ID), zap.String("kind", string(info.Kind)))

	r.g.Go(func() (err error) {
		defer tok.Release()
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("task %s panicked: %v", info.ID, p)
				log.Error("task panicked", zap.Any("panic", p), zap.Stack("stack"))
				if say != nil {
					say(ApologyText)
				}
			}
		}()

		log.Debug("task started", zap.Any("params", info.Action.Params))
		if ferr := fn(tok.Context()); ferr != nil {
			if tok.Active() {
				log.Error("task failed", zap.Error(ferr))
				if say != nil {
					say(ApologyText)
				}
			} else {
				log.Debug("task ended after revocation", zap.Error(ferr))
			}
			return nil
		}
		log.Debug("task finished")
		return nil
	})
}

// Wait blocks until every task has returned. It reports the first panic.
func (r *TaskRunner) Wait() error {
	return r.g.Wait()
}
