// Package provider normalizes request/response shapes across the three
// model vendor API families. The agent loop never sees a vendor wire
// format: every adapter collapses into model.NormalizedResponse, and every
// failure collapses into either a user-safe answer, or nil (so the loop
// owns all fallback decisions).
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/sable-ai/sable/internal/errors"
	"github.com/sable-ai/sable/internal/model"
)

// User-safe terminal messages. Nothing vendor-specific ever reaches the
// end user.
const (
	MsgHighDemand  = "The AI service is experiencing high demand right now. Please try again in a moment."
	MsgConfigIssue = "There's a configuration issue with the AI service. Please contact your administrator."
	MsgBadRequest  = "I couldn't process that request. Please try rephrasing your question."
	MsgUnavailable = "I'm temporarily unable to help right now. Please try again in a few minutes."
)

// Request is the normalized input to one model call.
type Request struct {
	Turns  []model.Turn
	System string
	Tools  []model.ToolDecl

	// MaxTokens overrides the model's configured ceiling when positive
	MaxTokens int
}

// adapter translates between the normalized shapes and one vendor family.
type adapter interface {
	endpoint(cfg model.ModelConfig) string
	headers(cfg model.ModelConfig) map[string]string
	buildRequest(cfg model.ModelConfig, req Request, opts reqOpts) (map[string]any, error)
	parseResponse(body []byte) (*model.NormalizedResponse, error)
}

// reqOpts carries per-attempt request variations.
type reqOpts struct {
	stream           bool
	disableReasoning bool
}

// Client issues calls to any configured model.
type Client struct {
	httpClient *http.Client
	retry      *apperrors.Policy
	health     *Health
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the transient-error retry policy.
func WithRetryPolicy(p *apperrors.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a provider client sharing one health registry.
func NewClient(health *Health, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry:      apperrors.ProviderPolicy(),
		health:     health,
		log:        slog.Default(),
	}
	if c.health == nil {
		c.health = NewHealth(0, nil)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health exposes the shared health registry.
func (c *Client) Health() *Health {
	return c.health
}

func adapterFor(vendor model.Vendor) (adapter, error) {
	switch vendor {
	case model.VendorA:
		return &vendorA{}, nil
	case model.VendorB:
		return &vendorB{}, nil
	case model.VendorC:
		return &vendorC{}, nil
	default:
		return nil, fmt.Errorf("unknown vendor %q", vendor)
	}
}

// Call performs one model call.
//
// Returns a NormalizedResponse on success, a user-safe message response on
// permanent errors, and (nil, err) when transient retries are exhausted or
// the vendor's credit is gone. The agent loop treats nil as "try the next
// model".
func (c *Client) Call(ctx context.Context, cfg model.ModelConfig, req Request) (*model.NormalizedResponse, error) {
	ad, err := adapterFor(cfg.Vendor)
	if err != nil {
		return nil, err
	}

	opts := reqOpts{}
	resp, err := apperrors.DoWithResult(ctx, c.retry, func() (*model.NormalizedResponse, error) {
		body, status, err := c.doHTTP(ctx, ad, cfg, req, opts)
		if err != nil {
			return nil, err
		}
		if status == http.StatusOK {
			return ad.parseResponse(body)
		}

		appErr := c.classifyStatus(cfg, status, body)
		if status == http.StatusBadRequest && cfg.SupportsReasoning && !opts.disableReasoning && mentionsReasoning(body) {
			// the vendor rejected the reasoning budget, not the request;
			// retry once with the feature stripped
			opts.disableReasoning = true
			appErr.Retryable = true
			appErr.Category = apperrors.CategoryTransient
		}
		return nil, appErr
	})
	if err == nil {
		return resp, nil
	}

	switch apperrors.GetCategory(err) {
	case apperrors.CategoryPermanent, apperrors.CategoryUser, apperrors.CategorySystem:
		return friendlyResponse(apperrors.UserMessage(err)), nil
	default:
		c.log.Warn("model call exhausted retries", "model", cfg.ID, "error", err)
		return nil, err
	}
}

// doHTTP builds and sends one vendor request, returning the raw body.
func (c *Client) doHTTP(ctx context.Context, ad adapter, cfg model.ModelConfig, req Request, opts reqOpts) ([]byte, int, error) {
	payload, err := ad.buildRequest(cfg, req, opts)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeProviderBadRequest, MsgBadRequest, apperrors.CategoryPermanent)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeProviderBadRequest, MsgBadRequest, apperrors.CategoryPermanent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ad.endpoint(cfg), bytes.NewReader(raw))
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeProviderBadRequest, MsgBadRequest, apperrors.CategoryPermanent)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range ad.headers(cfg) {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// timeouts and connection resets are transient
		return nil, 0, apperrors.Wrap(err, apperrors.CodeProviderTimeout, MsgUnavailable, apperrors.CategoryTransient)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeProviderTimeout, MsgUnavailable, apperrors.CategoryTransient)
	}
	return body, httpResp.StatusCode, nil
}

// classifyStatus maps a vendor error status to the engine taxonomy.
func (c *Client) classifyStatus(cfg model.ModelConfig, status int, body []byte) *apperrors.AppError {
	if status == http.StatusPaymentRequired || mentionsCreditExhaustion(body) {
		c.health.MarkExhausted(cfg.ID)
		c.log.Warn("vendor credit exhausted", "model", cfg.ID)
		return apperrors.New(apperrors.CodeProviderExhausted, MsgUnavailable, apperrors.CategoryTransient).
			WithContext("status", status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited(apperrors.CodeProviderRateLimit, MsgHighDemand, 3*time.Second)
	case status == 529 || status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		return apperrors.Transient(apperrors.CodeProviderOverloaded, MsgHighDemand)
	case status >= 500:
		return apperrors.Transient(apperrors.CodeProviderUnavailable, MsgUnavailable)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Permanent(apperrors.CodeProviderUnauthorized, MsgConfigIssue)
	case status == http.StatusBadRequest:
		return apperrors.Permanent(apperrors.CodeProviderBadRequest, MsgBadRequest)
	default:
		return apperrors.Transient(apperrors.CodeProviderUnavailable, MsgUnavailable)
	}
}

// friendlyResponse wraps a user-safe message as a terminal answer with no
// usage, so permanent errors cost nothing and end the conversation.
func friendlyResponse(msg string) *model.NormalizedResponse {
	return &model.NormalizedResponse{
		Blocks:     []model.ContentBlock{{Type: model.BlockText, Text: msg}},
		StopReason: model.StopEndTurn,
	}
}

// mentionsReasoning detects 400 bodies rejecting the extended-reasoning
// budget rather than the request itself.
func mentionsReasoning(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "thinking") ||
		strings.Contains(lower, "reasoning") ||
		strings.Contains(lower, "budget_tokens") ||
		strings.Contains(lower, "adaptive")
}

// mentionsCreditExhaustion detects out-of-credit error bodies.
func mentionsCreditExhaustion(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "insufficient credit") ||
		strings.Contains(lower, "credit balance") ||
		strings.Contains(lower, "quota exceeded")
}

// reasoningBudget computes the extended-reasoning token budget.
func reasoningBudget(maxTokens int) int {
	budget := maxTokens / 2
	if budget > 8192 {
		budget = 8192
	}
	return budget
}

// parseArgs decodes tool-call arguments, keeping the raw text when the
// vendor emits malformed JSON so the model can see what it sent.
func parseArgs(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}
