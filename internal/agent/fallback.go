package agent

import (
	"regexp"
	"strconv"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

var numeral = regexp.MustCompile(`\d+`)

// defaultContinuation is used when there is no previous action to resume.
func defaultContinuation() *schema.Action {
	return &schema.Action{Tool: "mine", Params: schema.Params{"blockType": "stone", "amount": 1}}
}

// fallbackAction resumes last, or the default continuation. The first
// numeral in userText replaces the amount.
func fallbackAction(userText string, last *schema.Action) *schema.Action {
	base := last.Clone()
	if base == nil || base.Tool == "" {
		base = defaultContinuation()
	}
	if m := numeral.FindString(userText); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			base.Params["amount"] = n
		}
	}
	return base
}
