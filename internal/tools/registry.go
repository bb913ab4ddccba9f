// Package tools provides the typed tool registry the agent loop executes
// against. Tools are business collaborators supplied by the embedding
// application; the engine only knows their name, input schema, and whether
// their results may be cached.
package tools

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sable-ai/sable/internal/model"
)

// Tool represents a callable tool.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns what the tool does.
	Description() string

	// Schema returns the JSON-schema description of the tool's input.
	Schema() *Schema

	// Cacheable reports whether results may be memoized. Only read-only,
	// side-effect-free tools should return true.
	Cacheable() bool

	// Execute runs the tool with the given input on behalf of a principal.
	Execute(ctx context.Context, input map[string]any, principal string) (*Result, error)
}

// Result represents the result of a tool execution.
type Result struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// NewSuccessResult creates a successful result.
func NewSuccessResult(data any) *Result {
	return &Result{
		Success: true,
		Data:    data,
	}
}

// NewErrorResult creates an error result.
func NewErrorResult(err error) *Result {
	return &Result{
		Success: false,
		Error:   err.Error(),
	}
}

// TimedResult wraps a result with duration.
func TimedResult(result *Result, start time.Time) *Result {
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

// Payload returns the result as the JSON-shaped value fed to the model.
// Failures become {"error": ...} so the model can react and recover.
func (r *Result) Payload() any {
	if !r.Success {
		return map[string]any{"error": r.Error}
	}
	return r.Data
}

// Registry manages available tools. Safe for concurrent use; tools are
// registered at startup and looked up per call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cacheable reports whether a named tool exists and allows caching.
func (r *Registry) Cacheable(name string) bool {
	tool, ok := r.Get(name)
	return ok && tool.Cacheable()
}

// Decls returns the normalized tool declarations sent to the model, in
// name order so request shapes are stable across calls (prompt caching
// depends on that).
func (r *Registry) Decls() []model.ToolDecl {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]model.ToolDecl, 0, len(r.tools))
	for _, t := range r.tools {
		decls = append(decls, model.ToolDecl{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema().Parameters,
		})
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })
	return decls
}

// Execute runs a tool by name. An unknown name produces an error Result,
// not a failure, so the model can recover within its remaining rounds.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any, principal string) *Result {
	tool, ok := r.Get(name)
	if !ok {
		return &Result{Success: false, Error: "unknown tool: " + name}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input, principal)
	if err != nil {
		return TimedResult(NewErrorResult(err), start)
	}
	if result == nil {
		result = NewSuccessResult(nil)
	}
	return TimedResult(result, start)
}
