package distill

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistillStripsBookkeepingAndEmptyFields(t *testing.T) {
	in := map[string]any{
		"name":        "SO-0001",
		"owner":       "admin@example.com",
		"modified_by": "admin@example.com",
		"doctype":     "Sales Order",
		"notes":       "",
		"tags":        []any{},
		"total":       1200.5,
	}

	out, ok := Distill(in, Options{}).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "SO-0001", out["name"])
	assert.Equal(t, 1200.5, out["total"])
	assert.NotContains(t, out, "owner")
	assert.NotContains(t, out, "doctype")
	assert.NotContains(t, out, "notes")
	assert.NotContains(t, out, "tags")
}

func TestDistillCapsRows(t *testing.T) {
	rows := make([]any, 120)
	for i := range rows {
		rows[i] = map[string]any{"item": fmt.Sprintf("row-%d", i)}
	}

	out := Distill(rows, Options{SummarizeThreshold: 200})
	list, ok := out.([]any)
	require.True(t, ok)
	assert.Len(t, list, 100)
}

func TestDistillSummarizesLargeRowSets(t *testing.T) {
	rows := make([]any, 60)
	for i := range rows {
		status := "open"
		if i%3 == 0 {
			status = "closed"
		}
		rows[i] = map[string]any{
			"amount": float64(i + 1),
			"status": status,
		}
	}

	out, ok := Distill(rows, Options{}).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, out["_auto_summarized"])
	assert.Equal(t, 60, out["row_count"])

	stats, ok := out["column_stats"].(map[string]any)
	require.True(t, ok)
	amount, ok := stats["amount"].(columnStats)
	require.True(t, ok)
	assert.Equal(t, 1.0, amount.Min)
	assert.Equal(t, 60.0, amount.Max)
	assert.InDelta(t, 30.5, amount.Avg, 1e-9)

	top, ok := out["top_values"].(map[string][]string)
	require.True(t, ok)
	assert.Equal(t, []string{"open", "closed"}, top["status"])

	sample, ok := out["sample"].([]any)
	require.True(t, ok)
	assert.Len(t, sample, 10)
}

func TestDistillIsIdempotent(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		in := map[string]any{"name": "X", "owner": "y", "total": 5.0}
		once := Distill(in, Options{})
		twice := Distill(once, Options{})
		assert.Equal(t, once, twice)
	})

	t.Run("summarized rows", func(t *testing.T) {
		rows := make([]any, 80)
		for i := range rows {
			rows[i] = map[string]any{"amount": float64(i)}
		}
		once := Distill(rows, Options{})
		twice := Distill(once, Options{})
		assert.Equal(t, once, twice)
	})
}

func TestDistillLeavesScalarsAlone(t *testing.T) {
	assert.Equal(t, "hello", Distill("hello", Options{}))
	assert.Equal(t, 42.0, Distill(42.0, Options{}))
	assert.Nil(t, Distill(nil, Options{}))
}
