// Package agentstate tracks which long-running tasks the agent is performing.
//
// Every task holds a Token issued by State. Stopping the agent revokes tokens;
// a running loop observes revocation at its own suspension points through
// Token.Active or Token.Done and winds down. A token can only ever clear the
// flag it was issued for, so a revoked loop that is still unwinding never
// clobbers a newer task of the same kind.
package agentstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

// Kind identifies a class of long-running task. At most one task of each
// kind is active at a time.
type Kind string

const (
	KindFollow Kind = "follow"
	KindMine   Kind = "mine"
)

// ErrBusy is returned by Acquire when a task of the same kind is active.
var ErrBusy = errors.New("agentstate: task of this kind already active")

// TaskInfo describes one running task.
type TaskInfo struct {
	ID      string
	Kind    Kind
	Action  schema.Action
	Started time.Time
}

// Snapshot is a point-in-time copy of the agent's activity flags.
type Snapshot struct {
	IsFollowing  bool
	TargetPlayer string
	IsMining     bool
	Tasks        []TaskInfo
}

// Active reports whether any task is running.
func (s Snapshot) Active() bool { return s.IsFollowing || s.IsMining }

// State is the process-wide activity record. The zero value is not usable;
// call New.
type State struct {
	mu     sync.Mutex
	active map[Kind]*Token
	order  []*Token // insertion order of active tokens
	target string
	now    func() time.Time
}

func New() *State {
	return &State{
		active: make(map[Kind]*Token),
		now:    time.Now,
	}
}

// Acquire issues a token for a new task of kind. It fails with ErrBusy when
// a task of that kind is already active. The token's context derives from
// parent and is cancelled when the token is revoked or released.
func (s *State) Acquire(parent context.Context, kind Kind, action schema.Action) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.active[kind]; busy {
		return nil, ErrBusy
	}
	return s.issueLocked(parent, kind, action), nil
}

// Replace revokes any active task of kind and issues a fresh token.
func (s *State) Replace(parent context.Context, kind Kind, action schema.Action) *Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.active[kind]; ok {
		s.dropLocked(old)
		old.cancel()
	}
	return s.issueLocked(parent, kind, action)
}

func (s *State) issueLocked(parent context.Context, kind Kind, action schema.Action) *Token {
	ctx, cancel := context.WithCancel(parent)
	tok := &Token{
		state:  s,
		ctx:    ctx,
		cancel: cancel,
		info: TaskInfo{
			ID:      uuid.NewString(),
			Kind:    kind,
			Action:  *action.Clone(),
			Started: s.now(),
		},
	}
	s.active[kind] = tok
	s.order = append(s.order, tok)
	if kind == KindFollow {
		s.target = action.Params.String("playerName")
	}
	return tok
}

// dropLocked removes tok from the active set if it is still the current
// token for its kind. It reports whether anything changed.
func (s *State) dropLocked(tok *Token) bool {
	cur, ok := s.active[tok.info.Kind]
	if !ok || cur != tok {
		return false
	}
	delete(s.active, tok.info.Kind)
	for i, t := range s.order {
		if t == tok {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if tok.info.Kind == KindFollow {
		s.target = ""
	}
	return true
}

// RevokeAll cancels every active task and clears all flags. Calling it when
// nothing is running is a no-op.
func (s *State) RevokeAll() int {
	s.mu.Lock()
	toks := make([]*Token, len(s.order))
	copy(toks, s.order)
	for _, t := range toks {
		s.dropLocked(t)
	}
	s.target = ""
	s.mu.Unlock()

	for _, t := range toks {
		t.cancel()
	}
	return len(toks)
}

// IsActive reports whether a task of kind is running.
func (s *State) IsActive(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[kind]
	return ok
}

// IsFollowing reports whether a pursue loop is active.
func (s *State) IsFollowing() bool { return s.IsActive(KindFollow) }

// IsMining reports whether a gather loop is active.
func (s *State) IsMining() bool { return s.IsActive(KindMine) }

// Snapshot returns a copy of the current flags and task list.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{TargetPlayer: s.target}
	_, snap.IsFollowing = s.active[KindFollow]
	_, snap.IsMining = s.active[KindMine]
	snap.Tasks = make([]TaskInfo, 0, len(s.order))
	for _, t := range s.order {
		snap.Tasks = append(snap.Tasks, t.info)
	}
	return snap
}
