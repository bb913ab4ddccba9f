// Package protocol provides the shared data structures exchanged with the
// Sable engine. These types can be imported by callers and extensions.
package protocol

// Ask represents an incoming question for the engine.
type Ask struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Images      []Image  `json:"images,omitempty"`
	PinnedModel string   `json:"pinned_model,omitempty"` // bypasses tier resolution when set
	Principal   string   `json:"principal,omitempty"`    // identity passed through to tools
	Stream      bool     `json:"stream,omitempty"`
}

// Image is an inline image attached to a question.
type Image struct {
	MediaType string `json:"media_type"` // e.g. "image/png"
	Data      string `json:"data"`       // base64-encoded bytes
}

// Answer represents the engine's final response to one Ask.
type Answer struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Model     string `json:"model"` // concrete model that produced the final text
	Tier      string `json:"tier"`
	Stats     Stats  `json:"stats"`
}

// Stats contains per-request accounting and observability data.
type Stats struct {
	Complexity   string  `json:"complexity"`
	Rounds       int     `json:"rounds"`
	ToolCalls    int     `json:"tool_calls"`
	CacheHits    int     `json:"cache_hits"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CacheRead    int     `json:"cache_read_tokens"`
	CacheWrite   int     `json:"cache_write_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	DurationMs   int64   `json:"duration_ms"`
	Fallbacks    int     `json:"fallbacks"` // model swaps during the request
}

// StreamUpdate is one partial-answer snapshot published while streaming.
type StreamUpdate struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
}
