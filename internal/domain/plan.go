package domain

import (
	"strings"
	"unicode/utf8"
)

// Intent is the planner's categorical reading of a question
type Intent string

const (
	IntentInformation    Intent = "information-request"
	IntentPartnerListing Intent = "partner-listing"
	IntentProcedure      Intent = "procedure"
	IntentCost           Intent = "cost"
	IntentChecklist      Intent = "checklist"
	IntentAdvanced       Intent = "advanced"
	IntentOffTopic       Intent = "off-topic"
)

// intentAliases maps planner output, including the Korean labels the planner
// prompt was historically written with, onto intents.
var intentAliases = map[string]Intent{
	"information-request": IntentInformation,
	"information":         IntentInformation,
	"정보요청":                IntentInformation,
	"partner-listing":     IntentPartnerListing,
	"partners":            IntentPartnerListing,
	"파트너사목록":              IntentPartnerListing,
	"procedure":           IntentProcedure,
	"절차안내":                IntentProcedure,
	"cost":                IntentCost,
	"비용":                  IntentCost,
	"checklist":           IntentChecklist,
	"체크리스트":               IntentChecklist,
	"advanced":            IntentAdvanced,
	"심화":                  IntentAdvanced,
	"off-topic":           IntentOffTopic,
	"off_topic":           IntentOffTopic,
}

// ParseIntent maps s onto an intent; unknown values become IntentInformation.
func ParseIntent(s string) Intent {
	if intent, ok := intentAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return intent
	}
	return IntentInformation
}

// SearchStrategy is a scoring-aggressiveness hint
type SearchStrategy string

const (
	StrategyExact    SearchStrategy = "exact"
	StrategySemantic SearchStrategy = "semantic"
	StrategyBroad    SearchStrategy = "broad"
)

// ParseSearchStrategy maps s onto a strategy; unknown values become broad.
func ParseSearchStrategy(s string) SearchStrategy {
	switch SearchStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyExact:
		return StrategyExact
	case StrategySemantic:
		return StrategySemantic
	}
	return StrategyBroad
}

const (
	// TopicOther is the sentinel for "no meaningful topic".
	TopicOther = "other"
	// CategoryAll is the sentinel for "no category hint".
	CategoryAll = "all"
)

// QueryPlan is the externally produced interpretation of a question. The
// engine only reads it.
type QueryPlan struct {
	Intent            Intent         `json:"intent"`
	Topic             string         `json:"topic"`
	TargetCategory    string         `json:"targetCategory"`
	TargetSubCategory string         `json:"targetSubCategory"`
	CoreKeywords      []string       `json:"coreKeywords"`
	ExpandedKeywords  []string       `json:"expandedKeywords"`
	ExcludeKeywords   []string       `json:"excludeKeywords"`
	SearchStrategy    SearchStrategy `json:"searchStrategy"`
	SpecialtyRelevant bool           `json:"specialtyRelevant"`
}

// HasTopic reports whether the plan names a topic other than the sentinel.
// "기타" is the Korean form of the sentinel.
func (p *QueryPlan) HasTopic() bool {
	t := strings.ToLower(strings.TrimSpace(p.Topic))
	return t != "" && t != TopicOther && t != "기타"
}

// HasTargetCategory reports whether the plan carries a category hint.
func (p *QueryPlan) HasTargetCategory() bool {
	return isCategoryHint(p.TargetCategory)
}

// HasTargetSubCategory reports whether the plan carries a sub-category hint.
func (p *QueryPlan) HasTargetSubCategory() bool {
	return isCategoryHint(p.TargetSubCategory)
}

func isCategoryHint(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s != "" && s != CategoryAll
}

// Normalize fills in sentinels for missing fields.
func (p *QueryPlan) Normalize() {
	if p.Intent == "" {
		p.Intent = IntentInformation
	}
	if strings.TrimSpace(p.Topic) == "" {
		p.Topic = TopicOther
	}
	if strings.TrimSpace(p.TargetCategory) == "" {
		p.TargetCategory = CategoryAll
	}
	if strings.TrimSpace(p.TargetSubCategory) == "" {
		p.TargetSubCategory = CategoryAll
	}
	if p.SearchStrategy == "" {
		p.SearchStrategy = StrategyBroad
	}
}

// DefaultPlan is used when the planner is unavailable: every query word of two
// or more runes becomes a core keyword and the expansion tokens become
// expanded keywords.
func DefaultPlan(query string, expansion []string) QueryPlan {
	var core []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(query) {
		if utf8.RuneCountInString(w) >= 2 && !seen[w] {
			seen[w] = true
			core = append(core, w)
		}
	}

	var expanded []string
	for _, tok := range expansion {
		if !seen[tok] {
			seen[tok] = true
			expanded = append(expanded, tok)
		}
	}

	return QueryPlan{
		Intent:            IntentInformation,
		Topic:             TopicOther,
		TargetCategory:    CategoryAll,
		TargetSubCategory: CategoryAll,
		CoreKeywords:      core,
		ExpandedKeywords:  expanded,
		ExcludeKeywords:   []string{},
		SearchStrategy:    StrategyBroad,
	}
}
