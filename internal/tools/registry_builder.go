package tools

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	tools map[string]Tool
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]Tool)}
}

// WithTool adds a tool and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithTool(tool Tool) *RegistryBuilder {
	b.tools[tool.Name()] = tool

	return b
}

// Build compiles every tool's parameter schema and produces an immutable
// Registry. Tool schemas are static, so a schema that fails to compile is a
// programming error and panics.
func (b *RegistryBuilder) Build() *Registry {
	r := &Registry{
		tools:   make(map[string]Tool, len(b.tools)),
		schemas: make(map[string]*jsonschema.Schema, len(b.tools)),
	}
	for name, t := range b.tools {
		url := name + ".schema.json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, bytes.NewReader(t.Parameters())); err != nil {
			panic(fmt.Sprintf("tools: schema for %s: %v", name, err))
		}
		sch, err := c.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("tools: compile schema for %s: %v", name, err))
		}
		r.tools[name] = t
		r.schemas[name] = sch
	}
	return r
}

// DefaultRegistry builds the registry holding follow, mine and stop.
func DefaultRegistry(follow *FollowTool, mine *MineTool) *Registry {
	return NewRegistryBuilder().
		WithTool(follow).
		WithTool(mine).
		WithTool(NewStopTool()).
		Build()
}
