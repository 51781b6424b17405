// Package tool provides the manuscript tools the model can call during a
// turn: reading, writing and listing files inside the thread's project
// directory.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/author-ai/author/internal/transport"
)

// Tool defines the interface for all tools.
type Tool interface {
	// ID returns the tool identifier.
	ID() string

	// Description returns the tool description.
	Description() string

	// Parameters returns the JSON Schema for tool parameters.
	Parameters() json.RawMessage

	// Execute executes the tool with the given input and returns its
	// result text.
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// Registry manages tool registration and lookup. It satisfies the session
// engine's ToolRunner interface.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	workDir string
}

// NewRegistry creates an empty registry rooted at workDir.
func NewRegistry(workDir string) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		workDir: workDir,
	}
}

// DefaultRegistry returns a registry with the manuscript tools installed.
func DefaultRegistry(workDir string) *Registry {
	r := NewRegistry(workDir)
	r.Register(NewReadFileTool(workDir))
	r.Register(NewWriteFileTool(workDir))
	r.Register(NewListFilesTool(workDir))
	return r
}

// Register adds a tool to the registry, replacing any tool with the same id.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.ID()]; !exists {
		r.order = append(r.order, tool.ID())
	}
	r.tools[tool.ID()] = tool
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}

// Defs declares the registered tools in registration order.
func (r *Registry) Defs() []transport.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]transport.ToolDef, 0, len(r.order))
	for _, id := range r.order {
		t := r.tools[id]
		defs = append(defs, transport.ToolDef{
			Name:        t.ID(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Run executes one finalized tool call.
func (r *Registry) Run(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, args)
}
