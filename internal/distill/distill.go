// Package distill shrinks tool results before they are fed back to the
// model. Large row sets burn input tokens without improving answers, so
// results are stripped of bookkeeping fields, capped, and above a threshold
// replaced with column-level statistics plus a small sample.
package distill

import (
	"sort"
)

// Options tunes the distiller. Zero values fall back to defaults.
type Options struct {
	// MaxRows is the hard cap on literal rows kept (default 100)
	MaxRows int

	// SummarizeThreshold is the row count above which rows are replaced
	// with statistics (default 50)
	SummarizeThreshold int

	// SampleRows is how many literal rows a summary keeps (default 10)
	SampleRows int

	// TopValues is how many categorical values are reported (default 5)
	TopValues int
}

func (o Options) withDefaults() Options {
	if o.MaxRows == 0 {
		o.MaxRows = 100
	}
	if o.SummarizeThreshold == 0 {
		o.SummarizeThreshold = 50
	}
	if o.SampleRows == 0 {
		o.SampleRows = 10
	}
	if o.TopValues == 0 {
		o.TopValues = 5
	}
	return o
}

// markerDistilled flags any value that already went through Distill.
const markerDistilled = "_distilled"

// markerSummarized flags a row set replaced by statistics.
const markerSummarized = "_auto_summarized"

// strippedFields never help the model reason and are always removed.
var strippedFields = map[string]bool{
	"owner":        true,
	"creation":     true,
	"modified":     true,
	"modified_by":  true,
	"docstatus":    true,
	"idx":          true,
	"doctype":      true,
	"_user_tags":   true,
	"_comments":    true,
	"_assign":      true,
	"_liked_by":    true,
	"parent":       true,
	"parentfield":  true,
	"parenttype":   true,
}

// Distill reduces a decoded JSON value. Idempotent: distilling a distilled
// value returns it unchanged.
func Distill(value any, opts Options) any {
	opts = opts.withDefaults()

	switch v := value.(type) {
	case map[string]any:
		if isMarked(v) {
			return v
		}
		out := distillObject(v, opts)
		out[markerDistilled] = true
		return out
	case []any:
		if rows, ok := asRowSet(v); ok {
			return distillRows(rows, opts)
		}
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, Distill(item, opts))
		}
		return out
	default:
		return value
	}
}

func isMarked(obj map[string]any) bool {
	if b, ok := obj[markerDistilled].(bool); ok && b {
		return true
	}
	if b, ok := obj[markerSummarized].(bool); ok && b {
		return true
	}
	return false
}

// distillObject strips bookkeeping and empty fields, recursing into nested
// row sets.
func distillObject(obj map[string]any, opts Options) map[string]any {
	out := make(map[string]any, len(obj))
	for key, val := range obj {
		if strippedFields[key] {
			continue
		}
		if isEmpty(val) {
			continue
		}
		if rows, ok := val.([]any); ok {
			if rowSet, isRows := asRowSet(rows); isRows {
				out[key] = distillRows(rowSet, opts)
				continue
			}
		}
		if nested, ok := val.(map[string]any); ok {
			out[key] = distillObject(nested, opts)
			continue
		}
		out[key] = val
	}
	return out
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// asRowSet reports whether a slice is a homogeneous set of objects.
func asRowSet(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, obj)
	}
	return rows, true
}

// distillRows strips each row, then caps or summarizes the set.
func distillRows(rows []map[string]any, opts Options) any {
	if len(rows) == 1 && isMarked(rows[0]) {
		return []any{rows[0]}
	}

	cleaned := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if isMarked(row) {
			cleaned = append(cleaned, row)
			continue
		}
		cleaned = append(cleaned, distillObject(row, opts))
	}

	if len(cleaned) > opts.SummarizeThreshold {
		return summarize(cleaned, opts)
	}
	if len(cleaned) > opts.MaxRows {
		cleaned = cleaned[:opts.MaxRows]
	}

	out := make([]any, len(cleaned))
	for i, row := range cleaned {
		out[i] = row
	}
	return out
}

// columnStats holds numeric statistics for one column.
type columnStats struct {
	Sum float64 `json:"sum"`
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// summarize replaces a large row set with per-column statistics plus a
// literal sample.
func summarize(rows []map[string]any, opts Options) map[string]any {
	numeric := make(map[string][]float64)
	categorical := make(map[string]map[string]int)

	for _, row := range rows {
		for key, val := range row {
			switch v := val.(type) {
			case float64:
				numeric[key] = append(numeric[key], v)
			case int:
				numeric[key] = append(numeric[key], float64(v))
			case string:
				if categorical[key] == nil {
					categorical[key] = make(map[string]int)
				}
				categorical[key][v]++
			}
		}
	}

	stats := make(map[string]any, len(numeric))
	for key, vals := range numeric {
		s := columnStats{Min: vals[0], Max: vals[0]}
		for _, v := range vals {
			s.Sum += v
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
		s.Avg = s.Sum / float64(len(vals))
		stats[key] = s
	}

	top := make(map[string][]string, len(categorical))
	for key, counts := range categorical {
		if len(counts) >= len(rows) {
			// every value distinct, counting adds nothing
			continue
		}
		values := make([]string, 0, len(counts))
		for v := range counts {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool {
			if counts[values[i]] != counts[values[j]] {
				return counts[values[i]] > counts[values[j]]
			}
			return values[i] < values[j]
		})
		if len(values) > opts.TopValues {
			values = values[:opts.TopValues]
		}
		top[key] = values
	}

	sampleLen := opts.SampleRows
	if sampleLen > len(rows) {
		sampleLen = len(rows)
	}
	sample := make([]any, sampleLen)
	for i := 0; i < sampleLen; i++ {
		sample[i] = rows[i]
	}

	return map[string]any{
		markerSummarized: true,
		"row_count":      len(rows),
		"column_stats":   stats,
		"top_values":     top,
		"sample":         sample,
	}
}
