package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sable-ai/sable/internal/model"
)

// scriptedFallback replays canned replies for the model-fallback layer.
type scriptedFallback struct {
	reply string
	err   error
	calls int
}

func (s *scriptedFallback) ClassifyQuestion(ctx context.Context, question string) (string, error) {
	s.calls++
	return s.reply, s.err
}

func historyWithToolCall() []model.Turn {
	return []model.Turn{
		model.TextTurn(model.RoleUser, "show outstanding invoices for ACME"),
		{
			Role: model.RoleAssistant,
			Blocks: []model.ContentBlock{
				{Type: model.BlockToolCall, ToolCall: &model.ToolCall{ID: "t1", Name: "list_invoices"}},
			},
		},
	}
}

func TestClassifyBuiltins(t *testing.T) {
	c := New(Options{}, nil, nil)
	ctx := context.Background()

	cases := []struct {
		question string
		want     model.Complexity
	}{
		{"hi", model.ComplexityFlash},
		{"good morning!", model.ComplexityFlash},
		{"namaste", model.ComplexityFlash},
		{"thanks", model.ComplexityFlash},
		{"how many sales orders do we have this month", model.ComplexitySimple},
		{"stock of WIDGET-1 in Mumbai warehouse", model.ComplexitySimple},
		{"show all overdue invoices", model.ComplexitySimple},
		{"top 5 customers by revenue", model.ComplexitySimple},
		{"compare revenue this quarter versus last quarter", model.ComplexityComplex},
		{"why did sales decline in March", model.ComplexityComplex},
		{"plot monthly expenses as a chart", model.ComplexityComplex},
		{"what is our DSO", model.ComplexityComplex},
	}

	for _, tc := range cases {
		t.Run(tc.question, func(t *testing.T) {
			got := c.Classify(ctx, tc.question, nil)
			assert.Equal(t, tc.want, got.Complexity)
		})
	}
}

func TestClassifyEmptyInputIsFlash(t *testing.T) {
	c := New(Options{}, nil, nil)
	got := c.Classify(context.Background(), "   ", nil)
	assert.Equal(t, model.ComplexityFlash, got.Complexity)
	assert.Equal(t, model.TierFast, got.Tier)
}

func TestClassifyFollowUpFloor(t *testing.T) {
	c := New(Options{}, nil, nil)
	ctx := context.Background()

	t.Run("follow-up with tool-call history is never flash", func(t *testing.T) {
		got := c.Classify(ctx, "what about last month?", historyWithToolCall())
		assert.NotEqual(t, model.ComplexityFlash, got.Complexity)
		assert.GreaterOrEqual(t, rank(got.Complexity), rank(model.ComplexitySimple))
	})

	t.Run("follow-up phrasing without history stays cheap", func(t *testing.T) {
		fb := &scriptedFallback{reply: "flash"}
		c := New(Options{}, fb, nil)
		got := c.Classify(ctx, "what about last month?", nil)
		assert.Equal(t, model.ComplexityFlash, got.Complexity)
	})

	t.Run("long questions are not follow-ups", func(t *testing.T) {
		q := "what about the complete list of every supplier we purchased from in the previous fiscal year"
		got := c.Classify(ctx, q, historyWithToolCall())
		assert.NotEqual(t, SourceFollowUp, got.Source)
	})

	t.Run("substantial prior answer also qualifies", func(t *testing.T) {
		long := make([]byte, 300)
		for i := range long {
			long[i] = 'a'
		}
		history := []model.Turn{model.TextTurn(model.RoleAssistant, string(long))}
		got := c.Classify(ctx, "and this month?", history)
		assert.GreaterOrEqual(t, rank(got.Complexity), rank(model.ComplexitySimple))
	})
}

func TestClassifyOverridesBeatBuiltins(t *testing.T) {
	c := New(Options{
		Overrides: map[string][]string{
			"complex": {`(?i)\breorder\b`},
			"flash":   {`(?i)^ping$`},
		},
	}, nil, nil)
	ctx := context.Background()

	t.Run("complex override wins", func(t *testing.T) {
		// built-ins would call this a simple lookup
		got := c.Classify(ctx, "show reorder levels", nil)
		assert.Equal(t, model.ComplexityComplex, got.Complexity)
		assert.Equal(t, SourceOverrideRegex, got.Source)
	})

	t.Run("flash override wins", func(t *testing.T) {
		got := c.Classify(ctx, "ping", nil)
		assert.Equal(t, model.ComplexityFlash, got.Complexity)
	})
}

func TestClassifyModelFallback(t *testing.T) {
	ctx := context.Background()
	unmatched := "reconcile the Q3 ledgers against bank statements"

	t.Run("parseable reply is used", func(t *testing.T) {
		fb := &scriptedFallback{reply: "simple"}
		c := New(Options{}, fb, nil)
		got := c.Classify(ctx, unmatched, nil)
		assert.Equal(t, model.ComplexitySimple, got.Complexity)
		assert.Equal(t, SourceModelFallback, got.Source)
		assert.Equal(t, 1, fb.calls)
	})

	t.Run("reply with one embedded keyword is tolerated", func(t *testing.T) {
		fb := &scriptedFallback{reply: "This is complex."}
		c := New(Options{}, fb, nil)
		got := c.Classify(ctx, unmatched, nil)
		assert.Equal(t, model.ComplexityComplex, got.Complexity)
	})

	t.Run("unparseable reply defaults to complex", func(t *testing.T) {
		fb := &scriptedFallback{reply: "it could be simple or complex"}
		c := New(Options{}, fb, nil)
		got := c.Classify(ctx, unmatched, nil)
		assert.Equal(t, model.ComplexityComplex, got.Complexity)
	})

	t.Run("fallback error defaults to complex", func(t *testing.T) {
		fb := &scriptedFallback{err: errors.New("utility tier down")}
		c := New(Options{}, fb, nil)
		got := c.Classify(ctx, unmatched, nil)
		assert.Equal(t, model.ComplexityComplex, got.Complexity)
	})

	t.Run("no fallback model defaults to complex", func(t *testing.T) {
		c := New(Options{}, nil, nil)
		got := c.Classify(ctx, unmatched, nil)
		assert.Equal(t, model.ComplexityComplex, got.Complexity)
		assert.Equal(t, SourceDefault, got.Source)
	})
}

func TestClassifyTierMapping(t *testing.T) {
	c := New(Options{}, nil, nil)
	ctx := context.Background()

	assert.Equal(t, model.TierFast, c.Classify(ctx, "hi", nil).Tier)
	assert.Equal(t, model.TierStandard, c.Classify(ctx, "top 5 customers by revenue", nil).Tier)
	assert.Equal(t, model.TierPremium, c.Classify(ctx, "why did sales decline in March", nil).Tier)
}

// rank orders complexities cheapest-first for floor assertions.
func rank(c model.Complexity) int {
	switch c {
	case model.ComplexityFlash:
		return 0
	case model.ComplexitySimple:
		return 1
	default:
		return 2
	}
}
