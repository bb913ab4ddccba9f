// Package agent drives the bounded model ⇄ tool conversation: classify the
// question, pick the cheapest capable model, loop through tool-use rounds
// under a token budget, fall back across models on failure, and account for
// every token spent.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sable-ai/sable/internal/cache"
	"github.com/sable-ai/sable/internal/classifier"
	"github.com/sable-ai/sable/internal/config"
	"github.com/sable-ai/sable/internal/cost"
	"github.com/sable-ai/sable/internal/distill"
	"github.com/sable-ai/sable/internal/model"
	"github.com/sable-ai/sable/internal/provider"
	"github.com/sable-ai/sable/internal/stream"
	"github.com/sable-ai/sable/internal/tools"
	"github.com/sable-ai/sable/internal/usagelog"
	"github.com/sable-ai/sable/pkg/protocol"
)

// Terminal user-safe messages owned by the loop.
const (
	MsgNotConfigured  = "The AI assistant isn't configured yet. Please ask your administrator to set up a model."
	MsgTooManyLookups = "This query required too many data lookups. Try asking a simpler question."
	MsgMonthlyBudget  = "The monthly AI budget has been reached. Please contact your administrator."
)

// budgetNote is injected as a synthetic tool result once a question's token
// budget is exceeded, guaranteeing the model one final synthesis turn.
const budgetNote = "Token budget reached. Please synthesize your answer from the data already gathered."

// minimalSystemPrompt serves the fast tier, which answers without tools.
const minimalSystemPrompt = "You are a friendly, concise business assistant. Answer briefly."

// Fast-tier and standard-tier output ceilings.
const (
	fastMaxTokens     = 1024
	standardMaxTokens = 4096
)

// Provider is the model-call surface the loop drives. *provider.Client
// satisfies it.
type Provider interface {
	Call(ctx context.Context, cfg model.ModelConfig, req provider.Request) (*model.NormalizedResponse, error)
	Stream(ctx context.Context, cfg model.ModelConfig, req provider.Request, onText func(string)) (*model.NormalizedResponse, error)
	Health() *provider.Health
}

// Options wires an Engine.
type Options struct {
	Config       *config.Config
	Provider     Provider
	Registry     *tools.Registry
	Cache        cache.Store     // nil disables caching
	Streams      stream.Store    // nil disables streaming state
	UsageLog     *usagelog.Store // nil disables the usage log
	SystemPrompt string
	Logger       *slog.Logger
}

// Engine composes the classifier, resolver, provider, tool registry,
// cache, and distiller into one ask-a-question surface.
type Engine struct {
	cfg          *config.Config
	provider     Provider
	resolver     *model.Resolver
	classifier   *classifier.Classifier
	registry     *tools.Registry
	cache        cache.Store
	streams      stream.Store
	usageLog     *usagelog.Store
	tracker      *cost.Tracker
	systemPrompt string
	log          *slog.Logger
}

// New builds an Engine from options.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if opts.Registry == nil {
		opts.Registry = tools.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	resolver := model.NewResolver(opts.Config.Tiers)

	// the classifier's model fallback runs on the cheapest configured tier
	var fallback classifier.FallbackModel
	if utilityCfg, ok := resolver.Resolve(model.TierUtility); ok {
		fallback = &utilityClassifier{provider: opts.Provider, cfg: utilityCfg}
	}

	c := classifier.New(classifier.Options{
		Overrides:      opts.Config.Classifier.Overrides,
		FollowUpMaxLen: opts.Config.Classifier.FollowUpMaxLen,
		ShortQueryLen:  opts.Config.Classifier.ShortQueryLen,
	}, fallback, opts.Logger)

	return &Engine{
		cfg:          opts.Config,
		provider:     opts.Provider,
		resolver:     resolver,
		classifier:   c,
		registry:     opts.Registry,
		cache:        opts.Cache,
		streams:      opts.Streams,
		usageLog:     opts.UsageLog,
		tracker:      cost.NewTracker(),
		systemPrompt: opts.SystemPrompt,
		log:          opts.Logger,
	}, nil
}

// Tracker exposes process-level spend totals.
func (e *Engine) Tracker() *cost.Tracker {
	return e.tracker
}

// utilityClassifier adapts the provider into the classifier's one-word
// fallback call.
type utilityClassifier struct {
	provider Provider
	cfg      model.ModelConfig
}

func (u *utilityClassifier) ClassifyQuestion(ctx context.Context, question string) (string, error) {
	resp, err := u.provider.Call(ctx, u.cfg, provider.Request{
		Turns:     []model.Turn{model.TextTurn(model.RoleUser, question)},
		MaxTokens: 16,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("classification tier unavailable")
	}
	return resp.Text(), nil
}

// run carries the per-request loop state.
type run struct {
	requestID  string
	principal  string
	complexity model.Complexity
	tier       string
	cfg        model.ModelConfig
	turns      []model.Turn
	usage      model.Usage
	stats      protocol.Stats
	publisher  *stream.Publisher
	started    time.Time
}

// Ask answers one question. The conversation history is owned by the
// caller; the loop appends to its own copy for the duration of the request.
// The returned answer is always usable: terminal failures resolve to
// friendly messages, never errors.
func (e *Engine) Ask(ctx context.Context, ask protocol.Ask, history []model.Turn) *protocol.Answer {
	if ask.ID == "" {
		ask.ID = uuid.NewString()
	}
	started := time.Now()

	if answer := e.checkMonthlyBudget(ctx, ask, started); answer != nil {
		return answer
	}

	// image questions skip the text classification layers entirely: the
	// regex rules assume text, and "hello" next to a screenshot is not
	// smalltalk. They get full tool access and the complex budget.
	var result classifier.Result
	if len(ask.Images) > 0 {
		result = classifier.Result{
			Complexity: model.ComplexityComplex,
			Tier:       model.TierVision,
			Source:     classifier.SourceVision,
		}
	} else {
		result = e.classifier.Classify(ctx, ask.Question, history)
	}

	cfg, ok := e.resolver.ResolveFor(result.Tier, ask.Principal, ask.PinnedModel, len(ask.Images) > 0)
	if !ok {
		e.log.Warn("no model configured", "request_id", ask.ID, "tier", result.Tier)
		return e.terminal(ask, result, MsgNotConfigured, started)
	}

	r := &run{
		requestID:  ask.ID,
		principal:  ask.Principal,
		complexity: result.Complexity,
		tier:       result.Tier,
		cfg:        cfg,
		turns:      append(append([]model.Turn{}, history...), userTurn(ask)),
		started:    started,
	}
	r.stats.Complexity = string(result.Complexity)

	if ask.Stream && e.streams != nil {
		r.publisher = stream.NewPublisher(e.streams, ask.ID, 0)
	}

	answer := e.loop(ctx, r)
	if r.publisher != nil {
		r.publisher.Finish(ctx, answer.Text)
	}
	return answer
}

// loop is the core state machine: CALL, then TOOL_USE rounds back into
// CALL, until a terminal stop, the token budget, or the round ceiling.
func (e *Engine) loop(ctx context.Context, r *run) *protocol.Answer {
	maxRounds := r.cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = e.cfg.Engine.MaxToolRounds
	}
	if maxRounds <= 0 {
		maxRounds = 8
	}
	if r.complexity == model.ComplexityFlash {
		// the fast tier answers from the prompt alone
		maxRounds = 1
	}

	for round := 0; round < maxRounds; round++ {
		r.stats.Rounds = round + 1

		resp := e.callWithFallback(ctx, r)
		if resp == nil {
			return e.finish(r, provider.MsgUnavailable)
		}

		// usage accumulates additively across rounds and model swaps
		r.usage.Add(resp.Usage)

		if resp.StopReason != model.StopToolUse {
			return e.finish(r, resp.Text())
		}

		calls := resp.ToolCalls()
		r.turns = append(r.turns, assistantTurn(resp))

		budget := r.cfg.Budgets.ForComplexity(r.complexity)
		if budget > 0 && r.usage.Total() > budget {
			// don't execute: hand the model a synthesis note per call and
			// give it one more turn
			e.log.Info("token budget exceeded, forcing synthesis",
				"request_id", r.requestID, "used", r.usage.Total(), "budget", budget)
			r.turns = append(r.turns, syntheticResults(calls))
			continue
		}

		r.turns = append(r.turns, e.executeCalls(ctx, r, calls))
	}

	return e.finish(r, MsgTooManyLookups)
}

// callWithFallback invokes the provider, walking the downgrade chain and
// the named fallback model when a call returns nil. A swap keeps all
// accumulated turns and usage.
func (e *Engine) callWithFallback(ctx context.Context, r *run) *model.NormalizedResponse {
	resp := e.callModel(ctx, r, r.cfg)
	if resp != nil {
		return resp
	}

	for _, tier := range model.DowngradeChain(r.tier) {
		cfg, ok := e.resolver.Resolve(tier)
		if !ok {
			continue
		}
		if e.provider.Health().Exhausted(cfg.ID) {
			e.log.Info("skipping credit-exhausted model", "request_id", r.requestID, "model", cfg.ID)
			continue
		}
		e.log.Warn("downgrading model", "request_id", r.requestID, "from", r.cfg.ID, "to", cfg.ID)
		r.cfg, r.tier = cfg, tier
		r.stats.Fallbacks++
		if resp := e.callModel(ctx, r, cfg); resp != nil {
			return resp
		}
	}

	if cfg, ok := e.resolver.Resolve(model.TierFallback); ok && cfg.ID != r.cfg.ID {
		if !e.provider.Health().Exhausted(cfg.ID) {
			e.log.Warn("switching to fallback model", "request_id", r.requestID, "model", cfg.ID)
			r.cfg, r.tier = cfg, model.TierFallback
			r.stats.Fallbacks++
			if resp := e.callModel(ctx, r, cfg); resp != nil {
				return resp
			}
		}
	}

	return nil
}

// callModel performs one provider call with the tier's request shaping.
func (e *Engine) callModel(ctx context.Context, r *run, cfg model.ModelConfig) *model.NormalizedResponse {
	req := provider.Request{
		Turns:  r.turns,
		System: e.systemPrompt,
	}

	switch r.complexity {
	case model.ComplexityFlash:
		// no tools, minimal prompt, tight output
		req.System = minimalSystemPrompt
		req.MaxTokens = fastMaxTokens
	case model.ComplexitySimple:
		req.Tools = e.registry.Decls()
		req.MaxTokens = standardMaxTokens
	default:
		req.Tools = e.registry.Decls()
	}
	if !cfg.SupportsTools {
		req.Tools = nil
	}

	var resp *model.NormalizedResponse
	var err error
	if r.publisher != nil {
		resp, err = e.provider.Stream(ctx, cfg, req, func(delta string) {
			r.publisher.Append(ctx, delta)
		})
	} else {
		resp, err = e.provider.Call(ctx, cfg, req)
	}
	if err != nil {
		e.log.Warn("model call failed", "request_id", r.requestID, "model", cfg.ID, "error", err)
		return nil
	}
	return resp
}

// executeCalls runs every requested tool in emission order through the
// cache-or-execute path and returns the tool-result turn.
func (e *Engine) executeCalls(ctx context.Context, r *run, calls []model.ToolCall) model.Turn {
	blocks := make([]model.ContentBlock, 0, len(calls))
	for _, call := range calls {
		r.stats.ToolCalls++
		result := e.executeOne(ctx, r, call)
		blocks = append(blocks, model.ContentBlock{Type: model.BlockToolResult, ToolResult: result})
	}
	return model.Turn{Role: model.RoleUser, Blocks: blocks}
}

func (e *Engine) executeOne(ctx context.Context, r *run, call model.ToolCall) *model.ToolResult {
	cacheable := e.cache != nil && e.registry.Cacheable(call.Name)

	if cacheable {
		if value, ok := e.cache.Get(ctx, call.Name, call.Args); ok {
			r.stats.CacheHits++
			return &model.ToolResult{CallID: call.ID, Payload: value, FromCache: true}
		}
	}

	result := e.registry.Execute(ctx, call.Name, call.Args, r.principal)
	payload := distill.Distill(result.Payload(), distill.Options{})

	if cacheable && result.Success {
		e.cache.Set(ctx, call.Name, call.Args, payload, cache.DeriveTags(call.Name, call.Args))
	}

	return &model.ToolResult{
		CallID:  call.ID,
		Payload: payload,
		IsError: !result.Success,
	}
}

// checkMonthlyBudget short-circuits requests once the org cap is reached.
func (e *Engine) checkMonthlyBudget(ctx context.Context, ask protocol.Ask, started time.Time) *protocol.Answer {
	if e.usageLog == nil || e.cfg.Engine.MonthlyBudgetUSD <= 0 {
		return nil
	}
	spend, err := e.usageLog.MonthlySpend(ctx)
	if err != nil {
		e.log.Warn("monthly spend check failed, allowing request", "error", err)
		return nil
	}
	if spend < e.cfg.Engine.MonthlyBudgetUSD {
		return nil
	}
	e.log.Warn("monthly budget reached", "spend", spend, "budget", e.cfg.Engine.MonthlyBudgetUSD)
	return &protocol.Answer{
		RequestID: ask.ID,
		Text:      MsgMonthlyBudget,
		Stats:     protocol.Stats{DurationMs: time.Since(started).Milliseconds()},
	}
}

// finish computes cost, records usage, and assembles the answer.
func (e *Engine) finish(r *run, text string) *protocol.Answer {
	breakdown := cost.Calculate(r.cfg, r.usage)
	e.tracker.Record(r.cfg.ID, breakdown)

	r.stats.InputTokens = r.usage.Input
	r.stats.OutputTokens = r.usage.Output
	r.stats.CacheRead = r.usage.CacheRead
	r.stats.CacheWrite = r.usage.CacheWrite
	r.stats.CostUSD = breakdown.TotalUSD
	r.stats.DurationMs = time.Since(r.started).Milliseconds()

	if e.usageLog != nil {
		rec := usagelog.Record{
			RequestID:        r.requestID,
			Principal:        r.principal,
			ModelID:          r.cfg.ID,
			Tier:             r.tier,
			Complexity:       string(r.complexity),
			InputTokens:      r.usage.Input,
			OutputTokens:     r.usage.Output,
			CacheReadTokens:  r.usage.CacheRead,
			CacheWriteTokens: r.usage.CacheWrite,
			Rounds:           r.stats.Rounds,
			ToolCalls:        r.stats.ToolCalls,
			CacheHits:        r.stats.CacheHits,
			CostUSD:          breakdown.TotalUSD,
		}
		if err := e.usageLog.Append(context.Background(), rec); err != nil {
			e.log.Warn("usage log append failed", "request_id", r.requestID, "error", err)
		}
	}

	e.log.Info("request finished",
		"request_id", r.requestID,
		"tier", r.tier,
		"model", r.cfg.ID,
		"rounds", r.stats.Rounds,
		"tool_calls", r.stats.ToolCalls,
		"cache_hits", r.stats.CacheHits,
		"cost_usd", breakdown.TotalUSD,
	)

	return &protocol.Answer{
		RequestID: r.requestID,
		Text:      text,
		Model:     r.cfg.ID,
		Tier:      r.tier,
		Stats:     r.stats,
	}
}

// terminal builds an answer for requests that never reached the loop.
func (e *Engine) terminal(ask protocol.Ask, result classifier.Result, text string, started time.Time) *protocol.Answer {
	return &protocol.Answer{
		RequestID: ask.ID,
		Text:      text,
		Tier:      result.Tier,
		Stats: protocol.Stats{
			Complexity: string(result.Complexity),
			DurationMs: time.Since(started).Milliseconds(),
		},
	}
}

// userTurn builds the question turn, inlining any attached images.
func userTurn(ask protocol.Ask) model.Turn {
	blocks := []model.ContentBlock{{Type: model.BlockText, Text: ask.Question}}
	for _, img := range ask.Images {
		blocks = append(blocks, model.ContentBlock{
			Type:           model.BlockImage,
			ImageMediaType: img.MediaType,
			ImageData:      img.Data,
		})
	}
	return model.Turn{Role: model.RoleUser, Blocks: blocks}
}

// assistantTurn echoes the model's text and tool calls back into the
// conversation. Reasoning blocks are not replayed.
func assistantTurn(resp *model.NormalizedResponse) model.Turn {
	blocks := make([]model.ContentBlock, 0, len(resp.Blocks))
	for _, b := range resp.Blocks {
		if b.Type == model.BlockText || b.Type == model.BlockToolCall {
			blocks = append(blocks, b)
		}
	}
	return model.Turn{Role: model.RoleAssistant, Blocks: blocks}
}

// syntheticResults fabricates one budget-note result per emitted call, so
// the turn invariant (every call gets exactly one result) holds even when
// nothing executes.
func syntheticResults(calls []model.ToolCall) model.Turn {
	blocks := make([]model.ContentBlock, 0, len(calls))
	for _, call := range calls {
		blocks = append(blocks, model.ContentBlock{
			Type: model.BlockToolResult,
			ToolResult: &model.ToolResult{
				CallID:  call.ID,
				Payload: map[string]any{"note": budgetNote},
			},
		})
	}
	return model.Turn{Role: model.RoleUser, Blocks: blocks}
}
