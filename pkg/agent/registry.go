package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/querydesk/querydesk/pkg/ticket"
)

// Parameter declares one tool argument.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
	Required    bool     `json:"required"`

	// Schema overrides the generated fragment for this parameter.
	// Used for nested object arguments.
	Schema map[string]any `json:"schema,omitempty"`
}

// ToolDefinition declares one callable action: its argument schema and
// which roles may see it. An empty Roles list means visible to all.
type ToolDefinition struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  []Parameter   `json:"parameters"`
	Roles       []ticket.Role `json:"roles,omitempty"`
}

// visibleTo reports whether the tool is offered to the given role.
func (d ToolDefinition) visibleTo(role ticket.Role) bool {
	if len(d.Roles) == 0 {
		return true
	}
	for _, r := range d.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Registry holds the declared tool set. Visibility is computed per
// call so a role change between runs never sees a stale list.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]ToolDefinition
	schemas map[string]*gojsonschema.Schema
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register validates and adds a tool definition.
func (r *Registry) Register(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty for %s", def.Name)
	}
	for _, p := range def.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name cannot be empty in %s", def.Name)
		}
		if p.Type == "" && p.Schema == nil {
			return fmt.Errorf("parameter %s.%s needs a type or schema", def.Name, p.Name)
		}
	}

	schemaMap := inputSchema(def)
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = def
	r.schemas[def.Name] = schema
	return nil
}

// ForRole returns the tool definitions visible to a role, in
// registration order.
func (r *Registry) ForRole(role ticket.Role) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if def := r.tools[name]; def.visibleTo(role) {
			out = append(out, def)
		}
	}
	return out
}

// Specs builds the wire-format declarations offered to the model for
// one identity's role.
func (r *Registry) Specs(role ticket.Role) []ToolSpec {
	defs := r.ForRole(role)
	specs := make([]ToolSpec, 0, len(defs))
	for _, def := range defs {
		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def),
		})
	}
	return specs
}

// Names lists all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Validate checks decoded arguments against the tool's schema.
func (r *Registry) Validate(name string, args map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tool not found: %s", name)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", name, err)
	}
	if !result.Valid() {
		details := []string{}
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %v", name, details)
	}
	return nil
}

// inputSchema generates the JSON-schema argument declaration for a tool.
func inputSchema(def ToolDefinition) map[string]any {
	properties := map[string]any{}
	required := []string{}

	for _, p := range def.Parameters {
		if p.Schema != nil {
			properties[p.Name] = p.Schema
		} else {
			fragment := map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				fragment["enum"] = p.Enum
			}
			properties[p.Name] = fragment
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
