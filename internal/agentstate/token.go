package agentstate

import (
	"context"
	"sync"
)

// Token is the revocable right to run one task.
type Token struct {
	state  *State
	ctx    context.Context
	cancel context.CancelFunc
	info   TaskInfo

	releaseOnce sync.Once
}

// Info describes the task this token was issued for.
func (t *Token) Info() TaskInfo { return t.info }

// Context is cancelled once the token is revoked or released. Pass it to
// every blocking call the task makes.
func (t *Token) Context() context.Context { return t.ctx }

// Done is closed when the token is revoked or released.
func (t *Token) Done() <-chan struct{} { return t.ctx.Done() }

// Active reports whether the task may keep running.
func (t *Token) Active() bool { return t.ctx.Err() == nil }

// Release ends the task from the inside. It clears the task's flag only if
// this token is still the current one for its kind. Safe to call repeatedly;
// it reports whether this call cleared the flag.
func (t *Token) Release() bool {
	cleared := false
	t.releaseOnce.Do(func() {
		t.state.mu.Lock()
		cleared = t.state.dropLocked(t)
		t.state.mu.Unlock()
		t.cancel()
	})
	return cleared
}
