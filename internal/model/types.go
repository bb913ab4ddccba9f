// Package model defines the normalized model-facing data types: model
// configurations, conversation turns, content blocks, and token usage.
//
// Every vendor adapter collapses into these shapes so the agent loop is
// vendor-agnostic.
package model

// ============================================================
// Vendors and Tiers
// ============================================================

// Vendor identifies the wire protocol family a model speaks.
type Vendor string

const (
	// VendorA is the prompt-caching / extended-reasoning message API family.
	VendorA Vendor = "vendora"

	// VendorB is the contents/parts function-calling API family.
	VendorB Vendor = "vendorb"

	// VendorC is the OpenAI-compatible chat-completions API family.
	VendorC Vendor = "vendorc"
)

// Tier names are opaque strings bound to models in configuration.
const (
	TierFast     = "fast"
	TierStandard = "standard"
	TierPremium  = "premium"
	TierUtility  = "utility"
	TierVision   = "vision"
	TierFallback = "fallback"
)

// Complexity is the classifier's verdict about a question.
type Complexity string

const (
	ComplexityFlash   Complexity = "flash"
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// ============================================================
// ModelConfig
// ============================================================

// Pricing holds per-million-token prices in USD.
type Pricing struct {
	Input      float64 `toml:"input"`
	Output     float64 `toml:"output"`
	CacheRead  float64 `toml:"cache_read"`
	CacheWrite float64 `toml:"cache_write"`
}

// Budgets holds per-complexity token ceilings (input+output, all rounds).
type Budgets struct {
	Flash   int `toml:"flash"`
	Simple  int `toml:"simple"`
	Medium  int `toml:"medium"`
	Complex int `toml:"complex"`
}

// ForComplexity returns the budget for a complexity class.
func (b Budgets) ForComplexity(c Complexity) int {
	switch c {
	case ComplexityFlash:
		return b.Flash
	case ComplexitySimple:
		return b.Simple
	case ComplexityComplex:
		return b.Complex
	default:
		return b.Medium
	}
}

// ModelConfig describes one concrete model. Immutable per call; the agent
// loop may swap the active config mid-conversation during fallback.
type ModelConfig struct {
	ID                string  `toml:"id"`
	Vendor            Vendor  `toml:"vendor"`
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	MaxTokens         int     `toml:"max_tokens"`
	SupportsTools     bool    `toml:"supports_tools"`
	SupportsStreaming bool    `toml:"supports_streaming"`
	SupportsReasoning bool    `toml:"supports_reasoning"`
	MaxToolRounds     int     `toml:"max_tool_rounds"`
	Pricing           Pricing `toml:"pricing"`
	Budgets           Budgets `toml:"budgets"`
}

// ============================================================
// Conversation Turns
// ============================================================

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType identifies the kind of a content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockImage      BlockType = "image"
	BlockToolCall   BlockType = "tool_call"
	BlockToolResult BlockType = "tool_result"
	BlockReasoning  BlockType = "reasoning"
)

// ContentBlock is one piece of a turn's content.
type ContentBlock struct {
	Type BlockType

	// Text holds text and reasoning content
	Text string

	// Image fields, set when Type == BlockImage
	ImageMediaType string
	ImageData      string // base64

	// Tool call fields, set when Type == BlockToolCall
	ToolCall *ToolCall

	// Tool result fields, set when Type == BlockToolResult
	ToolResult *ToolResult
}

// Turn is one conversation turn. The sequence is owned by the caller;
// the agent loop only appends for the duration of one request.
type Turn struct {
	Role   Role
	Blocks []ContentBlock
}

// TextTurn builds a plain-text turn.
func TextTurn(role Role, text string) Turn {
	return Turn{Role: role, Blocks: []ContentBlock{{Type: BlockText, Text: text}}}
}

// ToolCall is a model's request to execute a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the outcome of one tool call, fed back to the model.
// Every ToolCall emitted in a round gets exactly one ToolResult before
// the next model call.
type ToolResult struct {
	CallID    string
	Payload   any  // JSON-serializable; {"error": "..."} on failure
	IsError   bool
	FromCache bool
}

// ============================================================
// Normalized Response
// ============================================================

// StopReason is the normalized stop indicator.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
	StopOther   StopReason = "other"
)

// Usage holds token counts for one call or accumulated across a request.
type Usage struct {
	Input      int
	Output     int
	CacheRead  int
	CacheWrite int
}

// Add accumulates another usage sample. Always additive; never reset by a
// model swap within a request.
func (u *Usage) Add(other Usage) {
	u.Input += other.Input
	u.Output += other.Output
	u.CacheRead += other.CacheRead
	u.CacheWrite += other.CacheWrite
}

// Total returns input+output, the quantity budgets are checked against.
func (u Usage) Total() int {
	return u.Input + u.Output
}

// NormalizedResponse is the vendor-agnostic shape of one model reply.
type NormalizedResponse struct {
	Blocks     []ContentBlock
	StopReason StopReason
	Usage      Usage
	Model      string
}

// Text concatenates the text blocks of the response.
func (r *NormalizedResponse) Text() string {
	var out string
	for _, b := range r.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolCalls returns the tool-call blocks in emission order.
func (r *NormalizedResponse) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range r.Blocks {
		if b.Type == BlockToolCall && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}

// ToolDecl is a tool declaration sent to the model.
type ToolDecl struct {
	Name        string
	Description string
	InputSchema map[string]any
}
