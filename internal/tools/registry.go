package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolFollow ToolName = "follow"
	ToolMine   ToolName = "mine"
	ToolStop   ToolName = "stop"
)

// ErrUnknownTool is returned by Validate for names not in the registry.
var ErrUnknownTool = errors.New("unknown tool")

// Registry holds a set of named tools and their compiled parameter schemas.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks that action names a registered tool and that its params
// satisfy the tool's schema.
func (r *Registry) Validate(action schema.Action) error {
	sch, ok := r.schemas[action.Tool]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTool, action.Tool)
	}
	params := action.Params
	if params == nil {
		params = schema.Params{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("tool %s: params not serializable: %w", action.Tool, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("tool %s: %w", action.Tool, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("tool %s: %w", action.Tool, err)
	}
	return nil
}

// Describe renders the catalog for the system prompt, one tool per line.
func (r *Registry) Describe() string {
	var sb strings.Builder
	for _, name := range r.Names() {
		t := r.tools[name]
		fmt.Fprintf(&sb, "- %s: %s", name, t.Description())

		var s struct {
			Properties map[string]struct {
				Type        any    `json:"type"`
				Description string `json:"description"`
			} `json:"properties"`
			Required []string `json:"required"`
		}
		if err := json.Unmarshal(t.Parameters(), &s); err == nil && len(s.Properties) > 0 {
			required := map[string]bool{}
			for _, k := range s.Required {
				required[k] = true
			}
			keys := make([]string, 0, len(s.Properties))
			for k := range s.Properties {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			sb.WriteString(" Params:")
			for _, k := range keys {
				opt := "optional"
				if required[k] {
					opt = "required"
				}
				fmt.Fprintf(&sb, " %s (%s) %s;", k, opt, s.Properties[k].Description)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
