package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool input limits to prevent resource exhaustion.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolInputSize is the maximum size of a tool input payload (1MB).
	MaxToolInputSize = 1 << 20
)

// Registry declares the available tools and dispatches execution by name.
// Declarations are built once at registration; lookup and dispatch are safe
// for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its input schema. A tool with the same name
// replaces the previous registration.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" || len(name) > MaxToolNameLength {
		return fmt.Errorf("invalid tool name %q", name)
	}

	schema, err := jsonschema.CompileString(name+".schema.json", string(tool.Schema()))
	if err != nil {
		return fmt.Errorf("compile schema for tool %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
	r.schemas[name] = schema
	return nil
}

// Declarations returns every registered tool declaration, sorted by name so
// the set presented to the backend is deterministic.
func (r *Registry) Declarations() []ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]ToolDeclaration, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, ToolDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// Execute validates the input against the tool's schema and dispatches to the
// matching implementation. It fails with UnknownToolError when no tool
// matches, and wraps implementation failures in ToolExecutionError.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	if len(input) > MaxToolInputSize {
		return "", &ToolExecutionError{Name: name, Cause: fmt.Errorf("input exceeds %d bytes", MaxToolInputSize)}
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return "", &UnknownToolError{Name: name}
	}

	if err := validateInput(schema, input); err != nil {
		return "", &ToolExecutionError{Name: name, Cause: &ToolInputError{Name: name, Cause: err}}
	}

	result, err := tool.Execute(ctx, input)
	if err != nil {
		return "", &ToolExecutionError{Name: name, Cause: err}
	}
	return result, nil
}

func validateInput(schema *jsonschema.Schema, input json.RawMessage) error {
	if schema == nil {
		return nil
	}
	payload := input
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("input is not valid JSON: %w", err)
	}
	return schema.Validate(decoded)
}
