package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"bare", `{"a":1}`, []string{`{"a":1}`}},
		{"prose around", `Sure! {"a":1} hope that helps`, []string{`{"a":1}`}},
		{"braces in strings", `{"reply":"use } and {","x":1}`, []string{`{"reply":"use } and {","x":1}`}},
		{"escaped quote", `{"reply":"say \"}\""}`, []string{`{"reply":"say \"}\""}`}},
		{"nested", `{"a":{"b":{}}} {"c":2}`, []string{`{"a":{"b":{}}}`, `{"c":2}`}},
		{"unbalanced", `{"a":1`, nil},
		{"none", `no json here`, nil},
		{"stray close", `} {"a":1}`, []string{`{"a":1}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findJSONCandidates(tt.in))
		})
	}
}

func TestExtractObject(t *testing.T) {
	obj, err := extractObject("```json\n{\"reply\":\"ok\",\"action\":{\"tool\":\"mine\",\"params\":{\"amount\":3,},},}\n```")
	require.NoError(t, err)
	assert.Equal(t, "ok", obj["reply"])
	action := obj["action"].(map[string]any)
	assert.Equal(t, json.Number("3"), action["params"].(map[string]any)["amount"])
}

func TestExtractObject_Failures(t *testing.T) {
	for _, in := range []string{"I will mine now", "[1,2,3]", `{"reply": ok}`} {
		_, err := extractObject(in)
		assert.Error(t, err, in)
	}
}
