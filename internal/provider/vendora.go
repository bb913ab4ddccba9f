package provider

import (
	"encoding/json"
	"fmt"

	"github.com/sable-ai/sable/internal/model"
)

// vendorA speaks the prompt-caching / extended-reasoning messages API:
// typed content blocks, cache_control hints, and a thinking budget.
type vendorA struct{}

func (v *vendorA) endpoint(cfg model.ModelConfig) string {
	return cfg.BaseURL + "/v1/messages"
}

func (v *vendorA) headers(cfg model.ModelConfig) map[string]string {
	return map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}
}

func (v *vendorA) buildRequest(cfg model.ModelConfig, req Request, opts reqOpts) (map[string]any, error) {
	maxTokens := cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	payload := map[string]any{
		"model":      cfg.ID,
		"max_tokens": maxTokens,
		"messages":   v.messages(req.Turns),
	}
	if opts.stream {
		payload["stream"] = true
	}

	if req.System != "" {
		system := map[string]any{"type": "text", "text": req.System}
		// cache the system prompt across rounds; it never changes within
		// a conversation
		system["cache_control"] = map[string]any{"type": "ephemeral"}
		payload["system"] = []any{system}
	}

	if len(req.Tools) > 0 && cfg.SupportsTools {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.InputSchema,
			})
		}
		// cache hint on the last tool covers the whole tool block
		tools[len(tools)-1]["cache_control"] = map[string]any{"type": "ephemeral"}
		payload["tools"] = tools
	}

	if cfg.SupportsReasoning && !opts.disableReasoning {
		payload["thinking"] = map[string]any{
			"type":          "enabled",
			"budget_tokens": reasoningBudget(maxTokens),
		}
	}

	return payload, nil
}

// messages converts normalized turns to the vendor's message array.
// Tool results travel as user-role tool_result blocks.
func (v *vendorA) messages(turns []model.Turn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == model.RoleAssistant {
			role = "assistant"
		}

		content := make([]map[string]any, 0, len(turn.Blocks))
		for _, block := range turn.Blocks {
			switch block.Type {
			case model.BlockText:
				content = append(content, map[string]any{"type": "text", "text": block.Text})
			case model.BlockImage:
				content = append(content, map[string]any{
					"type": "image",
					"source": map[string]any{
						"type":       "base64",
						"media_type": block.ImageMediaType,
						"data":       block.ImageData,
					},
				})
			case model.BlockToolCall:
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    block.ToolCall.ID,
					"name":  block.ToolCall.Name,
					"input": block.ToolCall.Args,
				})
			case model.BlockToolResult:
				content = append(content, map[string]any{
					"type":        "tool_result",
					"tool_use_id": block.ToolResult.CallID,
					"content":     marshalPayload(block.ToolResult.Payload),
					"is_error":    block.ToolResult.IsError,
				})
			case model.BlockReasoning:
				// reasoning blocks are not echoed back
			}
		}
		if len(content) == 0 {
			continue
		}
		out = append(out, map[string]any{"role": role, "content": content})
	}
	return out
}

type vendorAResponse struct {
	Content []struct {
		Type     string         `json:"type"`
		Text     string         `json:"text"`
		Thinking string         `json:"thinking"`
		ID       string         `json:"id"`
		Name     string         `json:"name"`
		Input    map[string]any `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Model      string `json:"model"`
	Usage      struct {
		InputTokens         int `json:"input_tokens"`
		OutputTokens        int `json:"output_tokens"`
		CacheReadTokens     int `json:"cache_read_input_tokens"`
		CacheCreationTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

func (v *vendorA) parseResponse(body []byte) (*model.NormalizedResponse, error) {
	var resp vendorAResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	out := &model.NormalizedResponse{
		Model: resp.Model,
		Usage: model.Usage{
			Input:      resp.Usage.InputTokens,
			Output:     resp.Usage.OutputTokens,
			CacheRead:  resp.Usage.CacheReadTokens,
			CacheWrite: resp.Usage.CacheCreationTokens,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Blocks = append(out.Blocks, model.ContentBlock{Type: model.BlockText, Text: block.Text})
		case "thinking":
			out.Blocks = append(out.Blocks, model.ContentBlock{Type: model.BlockReasoning, Text: block.Thinking})
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			out.Blocks = append(out.Blocks, model.ContentBlock{
				Type:     model.BlockToolCall,
				ToolCall: &model.ToolCall{ID: block.ID, Name: block.Name, Args: args},
			})
		}
	}

	switch resp.StopReason {
	case "tool_use":
		out.StopReason = model.StopToolUse
	case "end_turn":
		out.StopReason = model.StopEndTurn
	default:
		out.StopReason = model.StopOther
	}
	return out, nil
}

// marshalPayload renders a tool result payload as the string content the
// vendor expects.
func marshalPayload(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(raw)
}
