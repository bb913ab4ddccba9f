// Package classifier assigns a complexity class to incoming questions.
package classifier

import "regexp"

// Pattern is one rule-based complexity matcher.
type Pattern struct {
	ID    string
	Regex *regexp.Regexp
}

// Matches checks if the pattern matches the given question.
func (p *Pattern) Matches(question string) bool {
	return p.Regex.MatchString(question)
}

// continuationPatterns mark short context-dependent follow-ups. A follow-up
// still needs tool access and conversation context, so it must never land
// on the cheapest tier.
var continuationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(what|how) about\b`),
	regexp.MustCompile(`(?i)^and\b`),
	regexp.MustCompile(`(?i)^also\b`),
	regexp.MustCompile(`(?i)^what if\b`),
	regexp.MustCompile(`(?i)^same (for|with)\b`),
	regexp.MustCompile(`(?i)^(ok(ay)?|but) `),
	regexp.MustCompile(`(?i)^then\b`),
	regexp.MustCompile(`(?i)^(this|last|next) (week|month|quarter|year)\??$`),
	regexp.MustCompile(`(?i)\b(that|those|them|it)\b.{0,20}\?$`),
}

// flashPatterns catch greetings, acknowledgements, and smalltalk that need
// no tools and no context.
func flashPatterns() []*Pattern {
	return []*Pattern{
		{
			ID:    "greeting",
			Regex: regexp.MustCompile(`(?i)^\s*(hi|hii+|hello|hey|yo|sup|good (morning|afternoon|evening|night))[\s!.,]*$`),
		},
		{
			ID:    "greeting_regional",
			Regex: regexp.MustCompile(`(?i)^\s*(namaste|namaskar|vanakkam|salaam|sat sri akal)[\s!.,]*$`),
		},
		{
			ID:    "thanks",
			Regex: regexp.MustCompile(`(?i)^\s*(thanks?( you| u)?|thx|ty|great|nice|awesome|perfect|cool)[\s!.,]*$`),
		},
		{
			ID:    "ack",
			Regex: regexp.MustCompile(`(?i)^\s*(ok(ay)?|yes|no|sure|got it|fine|hmm+|k)[\s!.,]*$`),
		},
		{
			ID:    "farewell",
			Regex: regexp.MustCompile(`(?i)^\s*(bye|goodbye|good night|see (you|ya)|take care)[\s!.,]*$`),
		},
		{
			ID:    "identity",
			Regex: regexp.MustCompile(`(?i)^(who are you|what can you do|help)\??$`),
		},
	}
}

// simplePatterns catch single-lookup questions: one tool call, one entity,
// no cross-referencing.
func simplePatterns() []*Pattern {
	return []*Pattern{
		{
			ID:    "count",
			Regex: regexp.MustCompile(`(?i)^how many\b`),
		},
		{
			ID:    "quantity",
			Regex: regexp.MustCompile(`(?i)\b(stock|qty|quantity|balance) (of|for|in)\b`),
		},
		{
			ID:    "stock_check",
			Regex: regexp.MustCompile(`(?i)\b(in stock|stock level|available stock|on hand)\b`),
		},
		{
			ID:    "price_lookup",
			Regex: regexp.MustCompile(`(?i)\b(price|rate|cost) (of|for)\b`),
		},
		{
			ID:    "list_records",
			Regex: regexp.MustCompile(`(?i)^(list|show|display|get) (me )?(all |the )?\w+`),
		},
		{
			ID:    "top_n",
			Regex: regexp.MustCompile(`(?i)\btop \d+\b`),
		},
		{
			ID:    "status_lookup",
			Regex: regexp.MustCompile(`(?i)\bstatus of\b`),
		},
		{
			ID:    "total_single",
			Regex: regexp.MustCompile(`(?i)^(what('?s| is) the )?total\b`),
		},
		{
			ID:    "alert_manage",
			Regex: regexp.MustCompile(`(?i)\b(create|set|delete|remove|update) (an? )?(alert|reminder)\b`),
		},
		{
			ID:    "outstanding",
			Regex: regexp.MustCompile(`(?i)\b(outstanding|overdue|pending) (invoices?|payments?|orders?|amount)\b`),
		},
	}
}

// complexPatterns catch multi-step analysis: comparisons, trends,
// causality, and anything that needs several lookups joined together.
func complexPatterns() []*Pattern {
	return []*Pattern{
		{
			ID:    "compare",
			Regex: regexp.MustCompile(`(?i)\b(compare|comparison|versus|vs\.?|difference between)\b`),
		},
		{
			ID:    "trend",
			Regex: regexp.MustCompile(`(?i)\b(trend|over time|month over month|year over year|growth|decline)\b`),
		},
		{
			ID:    "causality",
			Regex: regexp.MustCompile(`(?i)^why\b`),
		},
		{
			ID:    "forecast",
			Regex: regexp.MustCompile(`(?i)\b(forecast|predict|projection|estimate next)\b`),
		},
		{
			ID:    "strategy",
			Regex: regexp.MustCompile(`(?i)\b(strategy|recommend|should (i|we)|how can (i|we) improve)\b`),
		},
		{
			ID:    "visualization",
			Regex: regexp.MustCompile(`(?i)\b(chart|graph|plot|visuali[sz]e)\b`),
		},
		{
			ID:    "analysis",
			Regex: regexp.MustCompile(`(?i)\b(analy[sz]e|analysis|breakdown|deep dive|insight)\b`),
		},
		{
			ID:    "finance_ratio",
			Regex: regexp.MustCompile(`(?i)\b(dso|days sales outstanding|cash flow|profit margin|working capital)\b`),
		},
		{
			ID:    "business_pulse",
			Regex: regexp.MustCompile(`(?i)\bhow (is|was) (my|the) (business|company) (doing|performing)\b`),
		},
		{
			ID:    "multi_metric",
			Regex: regexp.MustCompile(`(?i)\b(revenue|sales|expenses).{0,40}\b(and|with|along)\b.{0,40}\b(revenue|sales|expenses|profit|margin)\b`),
		},
	}
}
