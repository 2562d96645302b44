package tools

import (
	"fmt"

	"github.com/cloudiagent/cloudiagent/internal/core"
)

// Capability is the public summary of one tool, used by the capabilities tool.
type Capability struct {
	Kind    Kind   `json:"kind"`
	Summary string `json:"summary"`
}

// Registry holds the tool specifications the completion service may invoke.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	specs  []Spec
	byKind map[Kind]int
}

// NewRegistry builds a registry. Kinds must be unique and known, and no spec
// may declare a field that shadows the discriminant.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		specs:  make([]Spec, 0, len(specs)),
		byKind: make(map[Kind]int, len(specs)),
	}
	for _, s := range specs {
		if !s.Kind.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
		}
		if _, dup := r.byKind[s.Kind]; dup {
			return nil, fmt.Errorf("tools: duplicate kind %q", s.Kind)
		}
		if _, shadow := s.field(DiscriminantField); shadow {
			return nil, fmt.Errorf("tools: %s declares reserved field %q", s.Kind, DiscriminantField)
		}
		r.byKind[s.Kind] = len(r.specs)
		r.specs = append(r.specs, s)
	}
	return r, nil
}

// Default returns a registry holding BuiltinSpecs.
func Default() *Registry {
	r, err := NewRegistry(BuiltinSpecs()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the spec for kind.
func (r *Registry) Lookup(kind Kind) (Spec, bool) {
	i, ok := r.byKind[kind]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.specs) }

// Capabilities lists kind and summary of every tool in registration order.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, Capability{Kind: s.Kind, Summary: s.Summary})
	}
	return out
}

// Definitions returns the tools in the function-calling shape sent to the model.
func (r *Registry) Definitions() []core.ToolDefinition {
	defs := make([]core.ToolDefinition, 0, len(r.specs))
	for _, s := range r.specs {
		defs = append(defs, core.ToolDefinition{
			Type: "function",
			Function: core.FunctionSpec{
				Name:        string(s.Kind),
				Description: s.Description,
				Parameters:  s.Schema(),
			},
		})
	}
	return defs
}
