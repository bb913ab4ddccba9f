package provider

import (
	"encoding/json"
	"fmt"

	"github.com/sable-ai/sable/internal/model"
)

// vendorB speaks the contents/parts function-calling API. It has no native
// tool-call ids, so the adapter synthesizes them, and no system role, so
// the system prompt is prepended to the first user part.
type vendorB struct{}

func (v *vendorB) endpoint(cfg model.ModelConfig) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", cfg.BaseURL, cfg.ID, cfg.APIKey)
}

func (v *vendorB) headers(cfg model.ModelConfig) map[string]string {
	return map[string]string{}
}

func (v *vendorB) buildRequest(cfg model.ModelConfig, req Request, opts reqOpts) (map[string]any, error) {
	maxTokens := cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	payload := map[string]any{
		"contents": v.contents(req.Turns, req.System),
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokens,
		},
	}

	if len(req.Tools) > 0 && cfg.SupportsTools {
		decls := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			})
		}
		payload["tools"] = []any{map[string]any{"function_declarations": decls}}
	}

	return payload, nil
}

// contents converts normalized turns to the vendor shape. Synthesized call
// ids map back to tool names so functionResponse parts can be built.
func (v *vendorB) contents(turns []model.Turn, system string) []map[string]any {
	callNames := make(map[string]string)
	out := make([]map[string]any, 0, len(turns))
	systemPending := system != ""

	for _, turn := range turns {
		role := "user"
		if turn.Role == model.RoleAssistant {
			role = "model"
		}

		parts := make([]map[string]any, 0, len(turn.Blocks))
		for _, block := range turn.Blocks {
			switch block.Type {
			case model.BlockText:
				text := block.Text
				if systemPending && role == "user" {
					text = system + "\n\n" + text
					systemPending = false
				}
				parts = append(parts, map[string]any{"text": text})
			case model.BlockImage:
				parts = append(parts, map[string]any{
					"inline_data": map[string]any{
						"mime_type": block.ImageMediaType,
						"data":      block.ImageData,
					},
				})
			case model.BlockToolCall:
				callNames[block.ToolCall.ID] = block.ToolCall.Name
				parts = append(parts, map[string]any{
					"functionCall": map[string]any{
						"name": block.ToolCall.Name,
						"args": block.ToolCall.Args,
					},
				})
			case model.BlockToolResult:
				name := callNames[block.ToolResult.CallID]
				parts = append(parts, map[string]any{
					"functionResponse": map[string]any{
						"name":     name,
						"response": map[string]any{"result": block.ToolResult.Payload},
					},
				})
			case model.BlockReasoning:
				// not echoed back
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, map[string]any{"role": role, "parts": parts})
	}
	return out
}

type vendorBResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text         string `json:"text"`
				FunctionCall *struct {
					Name string         `json:"name"`
					Args map[string]any `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		CachedContentTokens  int `json:"cachedContentTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (v *vendorB) parseResponse(body []byte) (*model.NormalizedResponse, error) {
	var resp vendorBResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("response has no candidates")
	}

	out := &model.NormalizedResponse{
		Model: resp.ModelVersion,
		Usage: model.Usage{
			Input:     resp.UsageMetadata.PromptTokenCount,
			Output:    resp.UsageMetadata.CandidatesTokenCount,
			CacheRead: resp.UsageMetadata.CachedContentTokens,
		},
	}

	callIndex := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.Blocks = append(out.Blocks, model.ContentBlock{
				Type: model.BlockToolCall,
				ToolCall: &model.ToolCall{
					ID:   fmt.Sprintf("vendorb_%d", callIndex),
					Name: part.FunctionCall.Name,
					Args: args,
				},
			})
			callIndex++
			continue
		}
		if part.Text != "" {
			out.Blocks = append(out.Blocks, model.ContentBlock{Type: model.BlockText, Text: part.Text})
		}
	}

	if callIndex > 0 {
		out.StopReason = model.StopToolUse
	} else if resp.Candidates[0].FinishReason == "STOP" || resp.Candidates[0].FinishReason == "" {
		out.StopReason = model.StopEndTurn
	} else {
		out.StopReason = model.StopOther
	}
	return out, nil
}
