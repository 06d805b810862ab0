package schema

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParams_Int(t *testing.T) {
	p := Params{
		"int":      3,
		"float":    4.0,
		"number":   json.Number("5"),
		"fnumber":  json.Number("6.5"),
		"str":      " 7 ",
		"fstr":     "8.9",
		"word":     "five",
		"nan":      math.NaN(),
		"boolean":  true,
		"explicit": nil,
	}

	tests := []struct {
		key  string
		want int
	}{
		{"int", 3},
		{"float", 4},
		{"number", 5},
		{"fnumber", 6},
		{"str", 7},
		{"fstr", 8},
		{"word", 1},
		{"nan", 1},
		{"boolean", 1},
		{"explicit", 1},
		{"missing", 1},
	}
	for _, tt := range tests {
		if got := p.Int(tt.key, 1); got != tt.want {
			t.Errorf("Int(%q): expected %d, got %d", tt.key, tt.want, got)
		}
	}
}

func TestParams_String(t *testing.T) {
	p := Params{
		"name":   "alice",
		"num":    json.Number("12"),
		"float":  2.5,
		"int":    7,
		"flag":   false,
		"nested": []any{"a"},
	}
	want := map[string]string{
		"name":    "alice",
		"num":     "12",
		"float":   "2.5",
		"int":     "7",
		"flag":    "false",
		"nested":  `["a"]`,
		"missing": "",
	}
	for k, w := range want {
		if got := p.String(k); got != w {
			t.Errorf("String(%q): expected %q, got %q", k, w, got)
		}
	}
}

func TestAction_CloneIsIndependent(t *testing.T) {
	var nilAction *Action
	if nilAction.Clone() != nil {
		t.Fatal("expected nil clone of nil action")
	}

	a := &Action{Tool: "mine", Params: Params{"blockType": "stone"}}
	c := a.Clone()
	c.Params["blockType"] = "dirt"
	if a.Params["blockType"] != "stone" {
		t.Errorf("expected original params untouched, got %v", a.Params["blockType"])
	}

	empty := (&Action{Tool: "stop"}).Clone()
	if empty.Params == nil {
		t.Error("expected non-nil params on clone")
	}
	if !(Params{"k": nil}).Has("k") {
		t.Error("expected Has to report keys with nil values")
	}
}
