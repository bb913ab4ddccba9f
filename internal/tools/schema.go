package tools

import "context"

// Schema defines a tool's JSON-schema input description.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SchemaBuilder provides a fluent interface for building tool schemas.
type SchemaBuilder struct {
	schema *Schema
}

// NewSchema creates a new schema builder with the given name and description.
func NewSchema(name, description string) *SchemaBuilder {
	return &SchemaBuilder{
		schema: &Schema{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": make(map[string]any),
				"required":   make([]string, 0),
			},
		},
	}
}

// AddParam adds a parameter to the schema.
func (b *SchemaBuilder) AddParam(name, paramType, description string, required bool) *SchemaBuilder {
	props := b.schema.Parameters["properties"].(map[string]any)
	props[name] = map[string]any{
		"type":        paramType,
		"description": description,
	}
	if required {
		req := b.schema.Parameters["required"].([]string)
		b.schema.Parameters["required"] = append(req, name)
	}
	return b
}

// AddParamWithEnum adds a parameter with an enum constraint.
func (b *SchemaBuilder) AddParamWithEnum(name, paramType, description string, enum []string, required bool) *SchemaBuilder {
	props := b.schema.Parameters["properties"].(map[string]any)
	paramDef := map[string]any{
		"type":        paramType,
		"description": description,
	}
	if len(enum) > 0 {
		paramDef["enum"] = enum
	}
	props[name] = paramDef
	if required {
		req := b.schema.Parameters["required"].([]string)
		b.schema.Parameters["required"] = append(req, name)
	}
	return b
}

// Build returns the constructed schema.
func (b *SchemaBuilder) Build() *Schema {
	return b.schema
}

// ============================================================
// Func-backed tool
// ============================================================

// FuncTool adapts a plain function into a Tool. Convenient for embedding
// applications and tests.
type FuncTool struct {
	ToolName    string
	ToolDesc    string
	ToolSchema  *Schema
	IsCacheable bool
	Fn          func(ctx context.Context, input map[string]any, principal string) (*Result, error)
}

func (t *FuncTool) Name() string        { return t.ToolName }
func (t *FuncTool) Description() string { return t.ToolDesc }
func (t *FuncTool) Cacheable() bool     { return t.IsCacheable }

func (t *FuncTool) Schema() *Schema {
	if t.ToolSchema != nil {
		return t.ToolSchema
	}
	return NewSchema(t.ToolName, t.ToolDesc).Build()
}

func (t *FuncTool) Execute(ctx context.Context, input map[string]any, principal string) (*Result, error) {
	return t.Fn(ctx, input, principal)
}
