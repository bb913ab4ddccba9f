package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sable-ai/sable/internal/model"
)

const streamFixture = `event: message_start
data: {"type": "message_start", "message": {"model": "big-1", "usage": {"input_tokens": 500, "cache_read_input_tokens": 300, "cache_creation_input_tokens": 50}}}

event: content_block_start
data: {"type": "content_block_start", "index": 0, "content_block": {"type": "text"}}

event: content_block_delta
data: {"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "Open orders: "}}

event: content_block_delta
data: {"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "checking now."}}

event: content_block_stop
data: {"type": "content_block_stop", "index": 0}

event: content_block_start
data: {"type": "content_block_start", "index": 1, "content_block": {"type": "tool_use", "id": "call_7", "name": "list_orders"}}

event: content_block_delta
data: {"type": "content_block_delta", "index": 1, "delta": {"type": "input_json_delta", "partial_json": "{\"stat"}}

event: content_block_delta
data: {"type": "content_block_delta", "index": 1, "delta": {"type": "input_json_delta", "partial_json": "us\": \"open\"}"}}

event: content_block_stop
data: {"type": "content_block_stop", "index": 1}

event: message_delta
data: {"type": "message_delta", "delta": {"stop_reason": "tool_use"}, "usage": {"output_tokens": 25}}

event: message_stop
data: {"type": "message_stop"}

`

func TestConsumeSSEFraming(t *testing.T) {
	input := "event: ping\ndata: {\"a\": 1}\n\n: comment line\nevent: pong\ndata: part1\ndata: part2\n\n"

	var events []string
	var payloads []string
	err := consumeSSE(context.Background(), strings.NewReader(input), func(event, data string) error {
		events = append(events, event)
		payloads = append(payloads, data)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ping", "pong"}, events)
	assert.Equal(t, "part1\npart2", payloads[1], "multi-line data joins with newlines")
}

func TestStreamAccumulatesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(streamFixture))
	}))
	defer srv.Close()

	cfg := vendorACfg(srv.URL)
	cfg.SupportsStreaming = true

	var deltas []string
	c, _ := testClient(t)
	resp, err := c.Stream(context.Background(), cfg, simpleRequest(), func(delta string) {
		deltas = append(deltas, delta)
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, []string{"Open orders: ", "checking now."}, deltas)
	assert.Equal(t, "Open orders: checking now.", resp.Text())
	assert.Equal(t, model.StopToolUse, resp.StopReason)
	assert.Equal(t, model.Usage{Input: 500, Output: 25, CacheRead: 300, CacheWrite: 50}, resp.Usage)

	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_7", calls[0].ID)
	assert.Equal(t, "open", calls[0].Args["status"], "tool args accumulate across json deltas")
}

func TestStreamDegradesToSyncForNonStreamingVendors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{"message": {"content": "whole answer"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2}
		}`))
	}))
	defer srv.Close()

	cfg := model.ModelConfig{ID: "mid-1", Vendor: model.VendorC, BaseURL: srv.URL, MaxTokens: 100}

	var deltas []string
	c, _ := testClient(t)
	resp, err := c.Stream(context.Background(), cfg, simpleRequest(), func(delta string) {
		deltas = append(deltas, delta)
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, []string{"whole answer"}, deltas, "non-streaming vendors deliver one final delta")
	assert.Equal(t, model.StopEndTurn, resp.StopReason)
}

func TestStreamErrorStatusMapsLikeSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := vendorACfg(srv.URL)
	cfg.SupportsStreaming = true

	c, _ := testClient(t)
	resp, err := c.Stream(context.Background(), cfg, simpleRequest(), nil)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, MsgConfigIssue, resp.Text())
}
