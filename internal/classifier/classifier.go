package classifier

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sable-ai/sable/internal/model"
)

// Source records which layer decided a classification.
type Source string

const (
	SourceDefault       Source = "default"
	SourceFollowUp      Source = "follow-up"
	SourceOverrideRegex Source = "override-regex"
	SourceBuiltinRegex  Source = "builtin-regex"
	SourceModelFallback Source = "model-fallback"

	// SourceVision marks image-bearing requests, which bypass the text
	// layers and route straight to the vision tier.
	SourceVision Source = "vision"
)

// Result is the outcome of classifying one question.
type Result struct {
	Complexity model.Complexity
	Tier       string
	Source     Source
}

// FallbackModel issues the one-word classification call when no rule
// matches. Implementations route it to the cheapest configured tier.
type FallbackModel interface {
	ClassifyQuestion(ctx context.Context, question string) (string, error)
}

// fallbackPrompt constrains the model to a parseable single word.
const fallbackPrompt = "Classify the complexity of this business question. " +
	"flash = greeting or smalltalk needing no data. " +
	"simple = one direct lookup. " +
	"complex = analysis, comparison, or multiple lookups. " +
	"Reply with exactly one word: flash, simple, or complex.\n\nQuestion: "

// Options tunes the rule layers. Zero values fall back to defaults.
type Options struct {
	// Overrides maps a complexity class to admin-defined regex patterns,
	// checked before the built-in layers
	Overrides map[string][]string

	// FollowUpMaxLen is the question length bound for follow-up detection
	// (default 60)
	FollowUpMaxLen int

	// ShortQueryLen is the bound below which flash/simple are checked
	// before complex (default 25)
	ShortQueryLen int
}

// Classifier assigns a complexity class using layered rules with a model
// fallback. It never blocks indefinitely and always returns a class.
type Classifier struct {
	overrides      map[model.Complexity][]*regexp.Regexp
	flash          []*Pattern
	simple         []*Pattern
	complexP       []*Pattern
	followUpMaxLen int
	shortQueryLen  int
	fallback       FallbackModel
	log            *slog.Logger
}

// New creates a classifier. fallback may be nil when no utility tier is
// configured; unmatched questions then classify as complex.
func New(opts Options, fallback FallbackModel, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	if opts.FollowUpMaxLen == 0 {
		opts.FollowUpMaxLen = 60
	}
	if opts.ShortQueryLen == 0 {
		opts.ShortQueryLen = 25
	}

	overrides := make(map[model.Complexity][]*regexp.Regexp)
	for class, patterns := range opts.Overrides {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				log.Warn("skipping invalid classifier override", "pattern", p, "error", err)
				continue
			}
			overrides[model.Complexity(class)] = append(overrides[model.Complexity(class)], re)
		}
	}

	return &Classifier{
		overrides:      overrides,
		flash:          flashPatterns(),
		simple:         simplePatterns(),
		complexP:       complexPatterns(),
		followUpMaxLen: opts.FollowUpMaxLen,
		shortQueryLen:  opts.ShortQueryLen,
		fallback:       fallback,
		log:            log,
	}
}

// Classify runs the layers in strict order: follow-up floor, admin
// overrides, built-in rules, model fallback. Any fallback failure
// classifies as complex: failing toward correctness costs money, failing
// toward cheapness costs answers.
func (c *Classifier) Classify(ctx context.Context, question string, history []model.Turn) Result {
	q := strings.TrimSpace(question)
	if q == "" {
		return c.result(model.ComplexityFlash, SourceDefault, false)
	}

	followUp := c.isFollowUp(q, history)

	if class, ok := c.matchOverrides(q); ok {
		return c.result(class, SourceOverrideRegex, followUp)
	}

	if class, ok := c.matchBuiltins(q); ok {
		return c.result(class, SourceBuiltinRegex, followUp)
	}

	if c.fallback == nil {
		return c.result(model.ComplexityComplex, SourceDefault, followUp)
	}

	reply, err := c.fallback.ClassifyQuestion(ctx, fallbackPrompt+q)
	if err != nil {
		c.log.Debug("classification fallback failed", "error", err)
		return c.result(model.ComplexityComplex, SourceModelFallback, followUp)
	}
	class, ok := parseClass(reply)
	if !ok {
		return c.result(model.ComplexityComplex, SourceModelFallback, followUp)
	}
	return c.result(class, SourceModelFallback, followUp)
}

// result applies the follow-up floor and resolves the tier.
func (c *Classifier) result(class model.Complexity, source Source, followUp bool) Result {
	if followUp && class == model.ComplexityFlash {
		class = model.ComplexitySimple
		source = SourceFollowUp
	}
	return Result{
		Complexity: class,
		Tier:       model.TierForComplexity(class),
		Source:     source,
	}
}

// isFollowUp reports whether a short question continues an earlier
// exchange that involved tool access or a substantial answer.
func (c *Classifier) isFollowUp(q string, history []model.Turn) bool {
	if len(q) >= c.followUpMaxLen || len(history) == 0 {
		return false
	}

	matched := false
	for _, re := range continuationPatterns {
		if re.MatchString(q) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != model.RoleAssistant {
			continue
		}
		for _, block := range turn.Blocks {
			if block.Type == model.BlockToolCall {
				return true
			}
			if block.Type == model.BlockText && len(block.Text) > 200 {
				return true
			}
		}
	}
	return false
}

// matchOverrides checks admin regexes in order complex, flash, simple.
// First match wins.
func (c *Classifier) matchOverrides(q string) (model.Complexity, bool) {
	for _, class := range []model.Complexity{model.ComplexityComplex, model.ComplexityFlash, model.ComplexitySimple} {
		for _, re := range c.overrides[class] {
			if re.MatchString(q) {
				return class, true
			}
		}
	}
	return "", false
}

// matchBuiltins checks the built-in layers. Very short text is rarely
// complex, so flash and simple are tried first for short questions.
func (c *Classifier) matchBuiltins(q string) (model.Complexity, bool) {
	if len(q) < c.shortQueryLen {
		if matchAny(c.flash, q) {
			return model.ComplexityFlash, true
		}
		if matchAny(c.simple, q) {
			return model.ComplexitySimple, true
		}
	}
	if matchAny(c.complexP, q) {
		return model.ComplexityComplex, true
	}
	if matchAny(c.flash, q) {
		return model.ComplexityFlash, true
	}
	if matchAny(c.simple, q) {
		return model.ComplexitySimple, true
	}
	return "", false
}

func matchAny(patterns []*Pattern, q string) bool {
	for _, p := range patterns {
		if p.Matches(q) {
			return true
		}
	}
	return false
}

// parseClass extracts the single classification keyword from a model reply.
func parseClass(reply string) (model.Complexity, bool) {
	word := strings.ToLower(strings.TrimSpace(reply))
	word = strings.Trim(word, ".!\"'")
	switch {
	case word == "flash":
		return model.ComplexityFlash, true
	case word == "simple":
		return model.ComplexitySimple, true
	case word == "complex":
		return model.ComplexityComplex, true
	}
	// tolerate a short sentence containing exactly one keyword
	var found model.Complexity
	count := 0
	for _, candidate := range []model.Complexity{model.ComplexityFlash, model.ComplexitySimple, model.ComplexityComplex} {
		if strings.Contains(word, string(candidate)) {
			found = candidate
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return "", false
}
