package retrieval

import (
	"math"
	"strings"
	"unicode"

	"github.com/cloo-solutions/consultbot/internal/domain"
)

// Agreement is how an item's subject relates to the subject a plan asks for.
type Agreement int

const (
	agreeNone Agreement = iota
	// agreeItem: the item's own topic or category path names the subject.
	agreeItem
	// agreeField: a Q&A or FAQ item whose domain area names the subject.
	agreeField
	// agreeConfusable: the item is about the other half of a confusable pair.
	agreeConfusable
)

// Facts are the per-pair observations the rule table is evaluated over.
// They are computed once per (item, plan, specialty) and never mutate the item.
type Facts struct {
	Item       *domain.KnowledgeItem
	Provenance domain.Provenance
	Intent     domain.Intent
	Strategy   domain.SearchStrategy

	CoreHits     float64
	CoreMatched  bool
	ExpandedHits float64

	Topic          Agreement
	TopicMentioned bool
	SubCategory    Agreement

	DeepKnowledge    bool
	PartnerDirectory bool
	InTargetCategory bool

	SpecialtyTagged      bool
	SpecialtyKeywordHits int
	SpecialtyQuestion    bool
	CoreInSpecialties    bool

	PartnerQuestion bool
	PartnerDetail   bool
	PartnerHistory  bool

	core      []string
	expanded  []string
	plan      *domain.QueryPlan
	specialty *domain.UserSpecialty
}

// Env exposes the facts to custom rule expressions.
func (f *Facts) Env() map[string]interface{} {
	specialty := ""
	if f.specialty != nil {
		specialty = f.specialty.Code
	}
	return map[string]interface{}{
		"provenance":        string(f.Provenance),
		"prompt":            f.Item.Prompt,
		"body":              f.Item.Body,
		"topic":             f.Item.Tags.Topic,
		"domainArea":        f.Item.Tags.DomainArea,
		"categoryPath":      f.Item.Tags.CategoryPath,
		"subCategory":       f.Item.Tags.SubCategory(),
		"specialties":       f.Item.Tags.Specialties,
		"highlights":        f.Item.Tags.Highlights,
		"intent":            string(f.Intent),
		"strategy":          string(f.Strategy),
		"planTopic":         f.plan.Topic,
		"targetCategory":    f.plan.TargetCategory,
		"targetSubCategory": f.plan.TargetSubCategory,
		"specialty":         specialty,
		"specialtyRelevant": f.plan.SpecialtyRelevant,
		"coreHits":          f.CoreHits,
		"coreMatched":       f.CoreMatched,
		"expandedHits":      f.ExpandedHits,
		"deepKnowledge":     f.DeepKnowledge,
		"partnerDirectory":  f.PartnerDirectory,
	}
}

var factsEnvSample = (&Facts{
	Item: &domain.KnowledgeItem{Tags: domain.Tags{Specialties: []string{}, Highlights: []string{}}},
	plan: &domain.QueryPlan{},
}).Env()

// Contribution records one fired rule.
type Contribution struct {
	Rule  string  `json:"rule"`
	Mode  Mode    `json:"mode"`
	Value float64 `json:"value"`
}

// Explanation is a score together with the rules that produced it.
type Explanation struct {
	Score float64        `json:"score"`
	Fired []Contribution `json:"fired"`
}

// Scorer evaluates the rule table for an item against a plan.
type Scorer struct {
	ruleset *Ruleset
	rules   []Rule
}

// NewScorer builds a Scorer from rs; nil means DefaultRuleset.
func NewScorer(rs *Ruleset) (*Scorer, error) {
	if rs == nil {
		rs = DefaultRuleset()
	}
	rules, err := rs.Rules()
	if err != nil {
		return nil, err
	}
	return &Scorer{ruleset: rs, rules: rules}, nil
}

// NewScorerWithRules builds a Scorer over an explicit rule table.
func NewScorerWithRules(rs *Ruleset, rules []Rule) *Scorer {
	if rs == nil {
		rs = DefaultRuleset()
	}
	return &Scorer{ruleset: rs, rules: rules}
}

// Ruleset returns the policy the scorer was built with.
func (s *Scorer) Ruleset() *Ruleset {
	return s.ruleset
}

// Score returns the non-negative relevance of item for plan. specialty may be
// nil. The result depends only on the arguments.
func (s *Scorer) Score(item *domain.KnowledgeItem, plan *domain.QueryPlan, specialty *domain.UserSpecialty) float64 {
	return s.evaluate(s.Facts(item, plan, specialty), nil)
}

// Explain is Score plus the list of rules that fired.
func (s *Scorer) Explain(item *domain.KnowledgeItem, plan *domain.QueryPlan, specialty *domain.UserSpecialty) Explanation {
	var fired []Contribution
	score := s.evaluate(s.Facts(item, plan, specialty), &fired)
	return Explanation{Score: score, Fired: fired}
}

func (s *Scorer) evaluate(f *Facts, fired *[]Contribution) float64 {
	sum, product := 0.0, 1.0
	for _, r := range s.rules {
		if r.When == nil || !r.When(f) {
			continue
		}
		v := r.value(f)
		if r.Mode == ModeMultiplicative {
			product *= v
		} else {
			sum += v
		}
		if fired != nil {
			*fired = append(*fired, Contribution{Rule: r.Name, Mode: r.Mode, Value: v})
		}
	}

	score := sum * product
	if score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// Facts computes the observations for one (item, plan, specialty) triple.
func (s *Scorer) Facts(item *domain.KnowledgeItem, plan *domain.QueryPlan, specialty *domain.UserSpecialty) *Facts {
	if plan == nil {
		plan = &domain.QueryPlan{}
	}
	rs := s.ruleset
	tags := item.Tags

	prompt := strings.ToLower(item.Prompt)
	body := strings.ToLower(item.Body)
	field := strings.ToLower(tags.DomainArea)
	itemTopic := strings.ToLower(tags.Topic)
	path := strings.ToLower(tags.CategoryPath)
	specialties := strings.ToLower(strings.Join(tags.Specialties, " "))

	text := newHaystack(strings.Join([]string{
		prompt, body, field, itemTopic, specialties,
		strings.ToLower(strings.Join(tags.Highlights, " ")),
	}, " "))
	promptText := newHaystack(prompt)

	f := &Facts{
		Item:       item,
		Provenance: item.Provenance,
		Intent:     plan.Intent,
		Strategy:   plan.SearchStrategy,
		core:       lowerAll(plan.CoreKeywords),
		expanded:   lowerAll(plan.ExpandedKeywords),
		plan:       plan,
		specialty:  specialty,
	}

	for _, kw := range f.core {
		if !text.contains(kw) {
			continue
		}
		f.CoreHits++
		f.CoreMatched = true
		if promptText.contains(kw) {
			f.CoreHits += 0.5
		}
	}
	for _, kw := range f.expanded {
		if text.contains(kw) {
			f.ExpandedHits++
		}
	}

	isKB := item.Provenance == domain.ProvenanceKnowledgeBase
	if plan.HasTopic() {
		topic := strings.ToLower(strings.TrimSpace(plan.Topic))
		switch {
		case isKB && (strings.Contains(itemTopic, topic) || strings.Contains(path, topic)):
			f.Topic = agreeItem
		case !isKB && strings.Contains(field, topic):
			f.Topic = agreeField
		case confusable(rs.ConfusableTopics, topic, itemTopic, path, field):
			f.Topic = agreeConfusable
		}
		f.TopicMentioned = strings.Contains(field, topic) || strings.Contains(prompt, topic)
	}

	if plan.HasTargetSubCategory() && isKB {
		target := strings.ToLower(strings.TrimSpace(plan.TargetSubCategory))
		sub := strings.ToLower(tags.SubCategory())
		switch {
		case sub != "" && strings.Contains(sub, target):
			f.SubCategory = agreeItem
		case confusable(rs.ConfusableSubCategories, target, sub):
			f.SubCategory = agreeConfusable
		}
	}

	f.DeepKnowledge = hasPathPrefix(path, rs.Categories.DeepKnowledge)
	f.PartnerDirectory = hasPathPrefix(path, rs.Categories.PartnerDirectory)
	if plan.HasTargetCategory() && isKB {
		f.InTargetCategory = strings.HasPrefix(path, strings.ToLower(strings.TrimSpace(plan.TargetCategory)))
	}

	if specialty != nil {
		f.SpecialtyTagged = specialty.MatchesAny(tags.Specialties)
		for _, kw := range lowerAll(specialty.Keywords) {
			if text.contains(kw) {
				f.SpecialtyKeywordHits++
			}
		}
	}

	f.SpecialtyQuestion = anyContainsCue(f.core, rs.SpecialtyCues) || anyContainsCue(f.expanded, rs.SpecialtyCues)
	if specialties != "" {
		for _, kw := range f.core {
			if strings.Contains(specialties, kw) {
				f.CoreInSpecialties = true
				break
			}
		}
	}

	f.PartnerQuestion = anyContainsCue(f.core, rs.PartnerCues)
	f.PartnerDetail = containsAny(body, rs.PartnerDetailCues)
	f.PartnerHistory = containsAny(body, rs.PartnerHistoryCues)

	return f
}

// haystack is lower-cased text plus its whitespace-free form, so "잘 보이게"
// still matches "잘보이게".
type haystack struct {
	text    string
	noSpace string
}

func newHaystack(s string) haystack {
	return haystack{text: s, noSpace: stripSpace(s)}
}

func (h haystack) contains(kw string) bool {
	if kw == "" {
		return false
	}
	return strings.Contains(h.text, kw) || strings.Contains(h.noSpace, stripSpace(kw))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// lowerAll lower-cases and trims keywords, dropping blanks.
func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// confusable reports whether subject belongs to one side of a pair while any
// of fields names the other side.
func confusable(pairs []ConfusablePair, subject string, fields ...string) bool {
	for _, p := range pairs {
		if namesSubject(p.A, subject) && fieldsName(p.B, fields) {
			return true
		}
		if namesSubject(p.B, subject) && fieldsName(p.A, fields) {
			return true
		}
	}
	return false
}

func namesSubject(g TopicGroup, subject string) bool {
	for _, n := range g.Names() {
		if n == subject {
			return true
		}
	}
	return false
}

func fieldsName(g TopicGroup, fields []string) bool {
	for _, field := range fields {
		if field != "" && containsAny(field, g.Names()) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	prefix = strings.ToLower(strings.Trim(prefix, "/"))
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func anyContainsCue(keywords, cues []string) bool {
	for _, kw := range keywords {
		if containsAny(kw, cues) {
			return true
		}
	}
	return false
}
