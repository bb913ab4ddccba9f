package provider

import (
	"encoding/json"
	"fmt"

	"github.com/sable-ai/sable/internal/model"
)

// vendorC speaks the OpenAI-compatible chat-completions API.
type vendorC struct{}

func (v *vendorC) endpoint(cfg model.ModelConfig) string {
	return cfg.BaseURL + "/v1/chat/completions"
}

func (v *vendorC) headers(cfg model.ModelConfig) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
	}
}

func (v *vendorC) buildRequest(cfg model.ModelConfig, req Request, opts reqOpts) (map[string]any, error) {
	maxTokens := cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	payload := map[string]any{
		"model":      cfg.ID,
		"max_tokens": maxTokens,
		"messages":   v.messages(req.Turns, req.System),
	}
	if opts.stream {
		payload["stream"] = true
	}

	if len(req.Tools) > 0 && cfg.SupportsTools {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.InputSchema,
				},
			})
		}
		payload["tools"] = tools
	}

	return payload, nil
}

// messages converts normalized turns. Tool calls ride on assistant
// messages; tool results become role "tool" messages.
func (v *vendorC) messages(turns []model.Turn, system string) []map[string]any {
	out := make([]map[string]any, 0, len(turns)+1)
	if system != "" {
		out = append(out, map[string]any{"role": "system", "content": system})
	}

	for _, turn := range turns {
		role := "user"
		if turn.Role == model.RoleAssistant {
			role = "assistant"
		}

		var text string
		var toolCalls []map[string]any
		var content []map[string]any
		hasImages := false

		for _, block := range turn.Blocks {
			switch block.Type {
			case model.BlockText:
				text += block.Text
				content = append(content, map[string]any{"type": "text", "text": block.Text})
			case model.BlockImage:
				hasImages = true
				content = append(content, map[string]any{
					"type": "image_url",
					"image_url": map[string]any{
						"url": fmt.Sprintf("data:%s;base64,%s", block.ImageMediaType, block.ImageData),
					},
				})
			case model.BlockToolCall:
				args, err := json.Marshal(block.ToolCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				toolCalls = append(toolCalls, map[string]any{
					"id":   block.ToolCall.ID,
					"type": "function",
					"function": map[string]any{
						"name":      block.ToolCall.Name,
						"arguments": string(args),
					},
				})
			case model.BlockToolResult:
				out = append(out, map[string]any{
					"role":         "tool",
					"tool_call_id": block.ToolResult.CallID,
					"content":      marshalPayload(block.ToolResult.Payload),
				})
			case model.BlockReasoning:
				// not echoed back
			}
		}

		msg := map[string]any{"role": role}
		switch {
		case hasImages:
			msg["content"] = content
		case text != "":
			msg["content"] = text
		}
		if len(toolCalls) > 0 {
			msg["tool_calls"] = toolCalls
		}
		if msg["content"] != nil || len(toolCalls) > 0 {
			out = append(out, msg)
		}
	}
	return out
}

type vendorCResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
}

func (v *vendorC) parseResponse(body []byte) (*model.NormalizedResponse, error) {
	var resp vendorCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	choice := resp.Choices[0]
	out := &model.NormalizedResponse{
		Model: resp.Model,
		Usage: model.Usage{
			Input:     resp.Usage.PromptTokens,
			Output:    resp.Usage.CompletionTokens,
			CacheRead: resp.Usage.PromptTokensDetails.CachedTokens,
		},
	}

	if choice.Message.Content != "" {
		out.Blocks = append(out.Blocks, model.ContentBlock{Type: model.BlockText, Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		out.Blocks = append(out.Blocks, model.ContentBlock{
			Type: model.BlockToolCall,
			ToolCall: &model.ToolCall{
				ID:   call.ID,
				Name: call.Function.Name,
				Args: parseArgs(call.Function.Arguments),
			},
		})
	}

	switch choice.FinishReason {
	case "tool_calls":
		out.StopReason = model.StopToolUse
	case "stop":
		out.StopReason = model.StopEndTurn
	default:
		out.StopReason = model.StopOther
	}
	return out, nil
}
