package agent

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

// DefaultContextWindow is the number of turns kept (three round trips).
const DefaultContextWindow = 6

// Turn is one entry of the conversation. User turns carry Text; assistant
// turns carry the structured Result.
type Turn struct {
	Role   string
	Text   string
	Result *Result
}

func (t Turn) MarshalJSON() ([]byte, error) {
	if t.Role == schema.RoleAssistant {
		return json.Marshal(struct {
			Role    string  `json:"role"`
			Content *Result `json:"content"`
		}{t.Role, t.Result})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{t.Role, t.Text})
}

// ContextStore is the bounded conversation history fed to the model.
type ContextStore struct {
	mu      sync.Mutex
	turns   []Turn
	window  int
	marshal func(any) ([]byte, error)
	log     *zap.Logger
}

func NewContextStore(window int, logger *zap.Logger) *ContextStore {
	if window <= 0 {
		window = DefaultContextWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextStore{window: window, marshal: json.Marshal, log: logger}
}

// Append records one round trip. Only the reply and the action's tool and
// scalar params are kept. The store is truncated to the window; if the
// result cannot be serialized as a whole it collapses to this round trip.
func (s *ContextStore) Append(userText string, res Result) {
	safe := safeResult(res, s.log)
	pair := []Turn{
		{Role: schema.RoleUser, Text: userText},
		{Role: schema.RoleAssistant, Result: &safe},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns, pair...)
	if len(turns) > s.window {
		turns = append([]Turn(nil), turns[len(turns)-s.window:]...)
	}
	if _, err := s.marshal(turns); err != nil {
		s.log.Error("context: history not serializable, keeping last round trip", zap.Error(err))
		turns = pair
	}
	s.turns = turns
}

// ModelMessages yields the history as plain role/content messages. Each
// iteration reads the store afresh.
func (s *ContextStore) ModelMessages() iter.Seq[schema.Message] {
	return func(yield func(schema.Message) bool) {
		for _, t := range s.Turns() {
			if !yield(schema.Message{Role: t.Role, Content: s.content(t)}) {
				return
			}
		}
	}
}

func (s *ContextStore) content(t Turn) string {
	if t.Role != schema.RoleAssistant {
		return t.Text
	}
	if t.Result == nil {
		return "null"
	}
	b, err := json.Marshal(t.Result)
	if err != nil {
		s.log.Warn("context: stringify failed", zap.Error(err))
		return fmt.Sprint(t.Result.Reply)
	}
	return string(b)
}

// LastAction returns a copy of the action carried by the most recent
// assistant turn, or nil.
func (s *ContextStore) LastAction() *schema.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == schema.RoleAssistant {
			if s.turns[i].Result == nil {
				return nil
			}
			return s.turns[i].Result.Action.Clone()
		}
	}
	return nil
}

// Turns returns a copy of the stored turns.
func (s *ContextStore) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *ContextStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// safeResult keeps the serializable core of res: the reply plus the tool
// name and scalar params that encode on their own.
func safeResult(res Result, log *zap.Logger) Result {
	out := Result{Reply: res.Reply}
	if res.Action == nil {
		return out
	}
	params := make(schema.Params, len(res.Action.Params))
	for k, v := range res.Action.Params {
		if !isScalar(v) {
			log.Debug("context: dropping non-scalar param", zap.String("key", k))
			continue
		}
		if _, err := json.Marshal(v); err != nil {
			log.Debug("context: dropping unserializable param", zap.String("key", k), zap.Error(err))
			continue
		}
		params[k] = v
	}
	out.Action = &schema.Action{Tool: res.Action.Tool, Params: params}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
