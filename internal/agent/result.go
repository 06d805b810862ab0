package agent

import "github.com/crystaldolphin/blockhand/internal/schema"

// Outcome names the interpretation path that produced a Result.
type Outcome string

const (
	OutcomeParsed        Outcome = "parsed"
	OutcomeEmpty         Outcome = "empty"
	OutcomeUnparsable    Outcome = "unparsable"
	OutcomeInvalidAction Outcome = "invalid_action"
	OutcomeTransport     Outcome = "transport"
)

// Result is the interpreted reply to one chat message.
type Result struct {
	Reply   string         `json:"reply"`
	Action  *schema.Action `json:"action"`
	Outcome Outcome        `json:"-"`
}

// InterpretationError is returned when model output parses but carries no
// usable reply. It is the one interpretation failure not absorbed by the
// fallback continuation.
type InterpretationError struct {
	Reason string
	Raw    string
}

func (e *InterpretationError) Error() string {
	return "interpretation failed: " + e.Reason
}
