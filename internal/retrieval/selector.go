package retrieval

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"go.uber.org/zap"
)

// Source is a read-only, index-addressed collection of knowledge items.
// *corpus.Store implements it.
type Source interface {
	Len() int
	At(i int) *domain.KnowledgeItem
}

// Selector narrows a knowledge source to the reference list for one plan.
type Selector struct {
	scorer     *Scorer
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewSelector creates a Selector. A nil logger disables logging.
func NewSelector(scorer *Scorer, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		scorer:     scorer,
		normalizer: NewNormalizer(scorer.Ruleset().Synonyms),
		logger:     logger,
	}
}

// Normalizer returns the query normalizer built from the ruleset synonyms.
func (s *Selector) Normalizer() *Normalizer {
	return s.normalizer
}

// MaxResults is the result budget for plan: listing answers need breadth,
// explanatory answers need focus.
func (s *Selector) MaxResults(plan *domain.QueryPlan, specialty *domain.UserSpecialty) int {
	rs := s.scorer.Ruleset()
	switch {
	case specialty != nil:
		return rs.Limits.Specialty
	case plan.Intent == domain.IntentPartnerListing:
		return rs.Limits.Listing
	case plan.HasTargetCategory() && hasPathPrefix(strings.ToLower(plan.TargetCategory), rs.Categories.PartnerDirectory):
		return rs.Limits.Listing
	}
	return rs.Limits.Default
}

// Select drops items whose prompt names an exclude keyword, scores the rest,
// drops scores under the threshold, sorts, applies the specialty filter and
// truncates. An empty or nil source yields an empty result.
func (s *Selector) Select(src Source, plan *domain.QueryPlan, specialty *domain.UserSpecialty) []domain.ScoredItem {
	if src == nil || src.Len() == 0 {
		s.logger.Warn("knowledge store is empty, no candidates")
		return []domain.ScoredItem{}
	}
	if plan == nil {
		plan = &domain.QueryPlan{}
	}

	threshold := s.scorer.Ruleset().Threshold
	exclude := excludeKeywords(plan.ExcludeKeywords)

	var (
		scored   []domain.ScoredItem
		excluded int
	)
	for i := 0; i < src.Len(); i++ {
		item := src.At(i)
		if !item.Retrievable() {
			continue
		}
		if containsAny(strings.ToLower(item.Prompt), exclude) {
			excluded++
			continue
		}
		score := s.scorer.Score(item, plan, specialty)
		if score < threshold {
			continue
		}
		scored = append(scored, domain.ScoredItem{Ref: i, Item: item, Score: score})
	}

	sortScored(scored)
	filtered := FilterBySpecialty(scored, specialty, plan.SpecialtyRelevant)

	limit := s.MaxResults(plan, specialty)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	s.logger.Debug("candidates selected",
		zap.Int("store_size", src.Len()),
		zap.Int("excluded", excluded),
		zap.Int("above_threshold", len(scored)),
		zap.Int("returned", len(filtered)),
		zap.Int("limit", limit),
		zap.String("intent", string(plan.Intent)),
		zap.Bool("specialty_relevant", plan.SpecialtyRelevant),
	)

	if filtered == nil {
		return []domain.ScoredItem{}
	}
	return filtered
}

// excludeKeywords keeps exclude keywords of two or more runes, lower-cased.
func excludeKeywords(in []string) []string {
	var out []string
	for _, kw := range lowerAll(in) {
		if utf8.RuneCountInString(kw) >= 2 {
			out = append(out, kw)
		}
	}
	return out
}

// sortScored orders by score descending; equal scores keep store order.
func sortScored(items []domain.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Ref < items[j].Ref
	})
}

// Keyword search weights. This is the plan-free path used for the keyword
// search mode.
const (
	keywordOriginalWeight = 0.5
	keywordSynonymStep    = 0.1
	keywordSynonymCap     = 0.3
	keywordFieldBonus     = 0.2
	keywordThreshold      = 0.4
)

// KeywordSearch ranks items by plain keyword overlap with query: the share of
// query words found, a capped bonus per expansion token found, and a bonus
// when the query names the item's domain area.
func (s *Selector) KeywordSearch(src Source, query string, limit int) []domain.ScoredItem {
	if src == nil || src.Len() == 0 || limit <= 0 {
		return []domain.ScoredItem{}
	}

	lowerQuery := normalizeText(query)
	var words []string
	isWord := make(map[string]bool)
	for _, w := range strings.Fields(lowerQuery) {
		w = StripParticle(w)
		if utf8.RuneCountInString(w) >= 2 {
			words = append(words, w)
			isWord[w] = true
		}
	}
	tokens := s.normalizer.Expand(query)

	var results []domain.ScoredItem
	for i := 0; i < src.Len(); i++ {
		item := src.At(i)
		if !item.Retrievable() {
			continue
		}
		target := strings.ToLower(item.Prompt + " " + item.Body)

		score := 0.0
		if len(words) > 0 {
			hits := 0
			for _, w := range words {
				if strings.Contains(target, w) {
					hits++
				}
			}
			score += float64(hits) / float64(len(words)) * keywordOriginalWeight
		}

		synonymHits := 0
		for _, tok := range tokens {
			if !isWord[tok] && strings.Contains(target, tok) {
				synonymHits++
			}
		}
		score += min(float64(synonymHits)*keywordSynonymStep, keywordSynonymCap)

		if field := strings.ToLower(strings.TrimSpace(item.Tags.DomainArea)); field != "" && strings.Contains(lowerQuery, field) {
			score += keywordFieldBonus
		}

		if score > keywordThreshold {
			results = append(results, domain.ScoredItem{Ref: i, Item: item, Score: score})
		}
	}

	sortScored(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		return []domain.ScoredItem{}
	}
	return results
}
