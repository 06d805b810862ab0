package llmutils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncate me", 8, "truncate..."},
		{"héllo", 2, "h..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d): expected %q, got %q", tt.in, tt.n, tt.want, got)
		}
	}
}

func TestStripThink(t *testing.T) {
	in := "<think>\nplan the mine\n</think>{\"reply\":\"ok\"}"
	if got := StripThink(in); got != `{"reply":"ok"}` {
		t.Errorf("expected think block removed, got %q", got)
	}
}

func TestStripFence(t *testing.T) {
	in := "```json\n{\"reply\":\"ok\"}\n```"
	if got := StripFence(in); got != `{"reply":"ok"}` {
		t.Errorf("expected fence removed, got %q", got)
	}
	if got := StripFence("plain"); got != "plain" {
		t.Errorf("expected plain text untouched, got %q", got)
	}
}

func TestStringOrDefault(t *testing.T) {
	if got := StringOrDefault("", "def"); got != "def" {
		t.Errorf("expected def, got %q", got)
	}
	if got := StringOrDefault("val", "def"); got != "val" {
		t.Errorf("expected val, got %q", got)
	}
}
