package registry

import (
	"fmt"
	"sort"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/schema"
)

// Parameter declares one configurable field of a node type.
type Parameter struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Required    bool     `json:"required" yaml:"required"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// NodeType is the display metadata and parameter schema of a node type.
type NodeType struct {
	Name        domain.NodeType `json:"name" yaml:"name"`
	DisplayName string          `json:"displayName" yaml:"display_name"`
	Category    string          `json:"category" yaml:"category"`
	Description string          `json:"description" yaml:"description"`
	Version     int             `json:"version" yaml:"version"`
	Parameters  []Parameter     `json:"parameters" yaml:"parameters"`
}

// Parameter looks up a declared parameter by name.
func (t NodeType) Parameter(name string) (Parameter, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Registry is an immutable lookup from node type to its schema.
// It owns no mutable state after construction and is safe for concurrent use.
type Registry struct {
	types   map[domain.NodeType]NodeType
	schemas map[domain.NodeType]schema.Schema
}

// New builds a registry from the given node types.
// It fails if a parameter declares an unsupported type.
func New(types ...NodeType) (*Registry, error) {
	r := &Registry{
		types:   make(map[domain.NodeType]NodeType, len(types)),
		schemas: make(map[domain.NodeType]schema.Schema, len(types)),
	}
	for _, t := range types {
		s := make(schema.Schema, len(t.Parameters))
		for _, p := range t.Parameters {
			var typ schema.Type
			if p.Type == "options" {
				typ = schema.Options(p.Options...)
			} else {
				parsed, err := schema.ParseType(p.Type)
				if err != nil {
					return nil, fmt.Errorf("node type %s, parameter %s: %w", t.Name, p.Name, err)
				}
				typ = parsed
			}
			s[p.Name] = schema.Field{Type: typ, Required: p.Required}
		}
		r.types[t.Name] = t
		r.schemas[t.Name] = s
	}
	return r, nil
}

// MustNew is like New but panics on an invalid catalog.
func MustNew(types ...NodeType) *Registry {
	r, err := New(types...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the schema for typeID. Unknown ids are not an error:
// callers fall back to a generic editor.
func (r *Registry) Get(typeID domain.NodeType) (NodeType, bool) {
	t, ok := r.types[typeID]
	return t, ok
}

// List returns every registered node type sorted by category then name.
func (r *Registry) List() []NodeType {
	out := make([]NodeType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ValidateField checks a single field update for typeID.
// Unregistered types accept any field.
func (r *Registry) ValidateField(typeID domain.NodeType, field string, value any) error {
	s, ok := r.schemas[typeID]
	if !ok {
		return nil
	}
	if _, declared := s[field]; !declared {
		return domain.NewError(domain.KindValidation, fmt.Sprintf("%s does not declare %q", typeID, field), domain.ErrUnknownField)
	}
	if err := schema.ValidateField(s, field, value); err != nil {
		return domain.NewError(domain.KindValidation, fmt.Sprintf("invalid %s field", typeID), err)
	}
	return nil
}

// ValidateData checks a complete data bag for typeID.
// Unregistered types accept any data.
func (r *Registry) ValidateData(typeID domain.NodeType, data map[string]any) error {
	s, ok := r.schemas[typeID]
	if !ok {
		return nil
	}
	if err := schema.Validate(s, data); err != nil {
		return domain.NewError(domain.KindValidation, fmt.Sprintf("invalid %s configuration", typeID), err)
	}
	return nil
}

// Defaults returns the declared default values of typeID's parameters.
func (r *Registry) Defaults(typeID domain.NodeType) map[string]any {
	t, ok := r.types[typeID]
	if !ok {
		return nil
	}
	out := make(map[string]any)
	for _, p := range t.Parameters {
		if p.Default != nil {
			out[p.Name] = domain.CloneValue(p.Default)
		}
	}
	return out
}
