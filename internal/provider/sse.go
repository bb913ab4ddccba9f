package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/sable-ai/sable/internal/errors"
	"github.com/sable-ai/sable/internal/model"
)

// consumeSSE parses a server-sent-events stream, invoking fn for each event.
func consumeSSE(ctx context.Context, r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var eventName string
	var dataBuf strings.Builder
	flush := func() error {
		if dataBuf.Len() == 0 {
			eventName = ""
			return nil
		}
		payload := dataBuf.String()
		dataBuf.Reset()
		return fn(eventName, payload)
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			eventName = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(line[6:])
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// Stream performs one model call in streaming mode, invoking onText with
// each text delta as it arrives, and returns the complete normalized
// response at the end.
//
// Only the VendorA family streams natively; the other vendors degrade to a
// synchronous call followed by a single onText with the whole answer.
func (c *Client) Stream(ctx context.Context, cfg model.ModelConfig, req Request, onText func(delta string)) (*model.NormalizedResponse, error) {
	if cfg.Vendor != model.VendorA || !cfg.SupportsStreaming {
		resp, err := c.Call(ctx, cfg, req)
		if resp != nil && onText != nil {
			if text := resp.Text(); text != "" {
				onText(text)
			}
		}
		return resp, err
	}

	ad := &vendorA{}
	opts := reqOpts{stream: true}

	resp, err := apperrors.DoWithResult(ctx, c.retry, func() (*model.NormalizedResponse, error) {
		return c.streamOnce(ctx, ad, cfg, req, opts, onText)
	})
	if err == nil {
		return resp, nil
	}

	switch apperrors.GetCategory(err) {
	case apperrors.CategoryPermanent, apperrors.CategoryUser, apperrors.CategorySystem:
		return friendlyResponse(apperrors.UserMessage(err)), nil
	default:
		c.log.Warn("streaming call exhausted retries", "model", cfg.ID, "error", err)
		return nil, err
	}
}

// streamOnce opens the stream and accumulates events into a response.
func (c *Client) streamOnce(ctx context.Context, ad *vendorA, cfg model.ModelConfig, req Request, opts reqOpts, onText func(string)) (*model.NormalizedResponse, error) {
	payload, err := ad.buildRequest(cfg, req, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadRequest, MsgBadRequest, apperrors.CategoryPermanent)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadRequest, MsgBadRequest, apperrors.CategoryPermanent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ad.endpoint(cfg), bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderBadRequest, MsgBadRequest, apperrors.CategoryPermanent)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range ad.headers(cfg) {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderTimeout, MsgUnavailable, apperrors.CategoryTransient)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, c.classifyStatus(cfg, httpResp.StatusCode, body)
	}

	acc := newStreamAccumulator(onText)
	if err := consumeSSE(ctx, httpResp.Body, acc.handle); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProviderTimeout, MsgUnavailable, apperrors.CategoryTransient)
	}
	return acc.response(), nil
}

// streamAccumulator folds the vendor's event stream back into one
// normalized response: message_start carries input usage,
// content_block_start/delta/stop carry text, reasoning, and tool-call
// argument fragments, message_delta carries the stop reason and output
// usage.
type streamAccumulator struct {
	onText func(string)

	blocks     []model.ContentBlock
	stopReason model.StopReason
	usage      model.Usage
	modelID    string

	// in-flight block state, keyed by the vendor's block index
	open map[int]*openBlock
}

type openBlock struct {
	kind     string
	text     strings.Builder
	toolID   string
	toolName string
	argsJSON strings.Builder
}

func newStreamAccumulator(onText func(string)) *streamAccumulator {
	return &streamAccumulator{
		onText:     onText,
		stopReason: model.StopOther,
		open:       make(map[int]*openBlock),
	}
}

func (a *streamAccumulator) handle(event, data string) error {
	switch event {
	case "message_start":
		var ev struct {
			Message struct {
				Model string `json:"model"`
				Usage struct {
					InputTokens         int `json:"input_tokens"`
					CacheReadTokens     int `json:"cache_read_input_tokens"`
					CacheCreationTokens int `json:"cache_creation_input_tokens"`
				} `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		a.modelID = ev.Message.Model
		a.usage.Input = ev.Message.Usage.InputTokens
		a.usage.CacheRead = ev.Message.Usage.CacheReadTokens
		a.usage.CacheWrite = ev.Message.Usage.CacheCreationTokens

	case "content_block_start":
		var ev struct {
			Index        int `json:"index"`
			ContentBlock struct {
				Type string `json:"type"`
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"content_block"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		a.open[ev.Index] = &openBlock{
			kind:     ev.ContentBlock.Type,
			toolID:   ev.ContentBlock.ID,
			toolName: ev.ContentBlock.Name,
		}

	case "content_block_delta":
		var ev struct {
			Index int `json:"index"`
			Delta struct {
				Type        string `json:"type"`
				Text        string `json:"text"`
				Thinking    string `json:"thinking"`
				PartialJSON string `json:"partial_json"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		block, ok := a.open[ev.Index]
		if !ok {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			block.text.WriteString(ev.Delta.Text)
			if a.onText != nil {
				a.onText(ev.Delta.Text)
			}
		case "thinking_delta":
			block.text.WriteString(ev.Delta.Thinking)
		case "input_json_delta":
			block.argsJSON.WriteString(ev.Delta.PartialJSON)
		}

	case "content_block_stop":
		var ev struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		block, ok := a.open[ev.Index]
		if !ok {
			return nil
		}
		delete(a.open, ev.Index)
		switch block.kind {
		case "text":
			a.blocks = append(a.blocks, model.ContentBlock{Type: model.BlockText, Text: block.text.String()})
		case "thinking":
			a.blocks = append(a.blocks, model.ContentBlock{Type: model.BlockReasoning, Text: block.text.String()})
		case "tool_use":
			a.blocks = append(a.blocks, model.ContentBlock{
				Type: model.BlockToolCall,
				ToolCall: &model.ToolCall{
					ID:   block.toolID,
					Name: block.toolName,
					Args: parseArgs(block.argsJSON.String()),
				},
			})
		}

	case "message_delta":
		var ev struct {
			Delta struct {
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
			Usage struct {
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		a.usage.Output = ev.Usage.OutputTokens
		switch ev.Delta.StopReason {
		case "tool_use":
			a.stopReason = model.StopToolUse
		case "end_turn":
			a.stopReason = model.StopEndTurn
		}

	case "message_stop":
		// terminal marker, nothing to record
	}
	return nil
}

func (a *streamAccumulator) response() *model.NormalizedResponse {
	return &model.NormalizedResponse{
		Blocks:     a.blocks,
		StopReason: a.stopReason,
		Usage:      a.usage,
		Model:      a.modelID,
	}
}
