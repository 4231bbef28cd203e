package retrieval

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Mode says how a rule combines with the rest of the score.
type Mode string

const (
	ModeAdditive       Mode = "additive"
	ModeMultiplicative Mode = "multiplicative"
)

// Condition decides whether a rule applies to an item/plan pair.
type Condition func(f *Facts) bool

// Rule is one row of the scoring table. Additive rules add their value to the
// base score; multiplicative rules scale the summed base score.
type Rule struct {
	Name   string
	Mode   Mode
	Weight float64
	When   Condition
	// Amount derives the value from the facts when set. It receives the
	// configured weight, which computed rules use as their ceiling.
	Amount func(f *Facts, weight float64) float64
}

func (r Rule) value(f *Facts) float64 {
	if r.Amount != nil {
		return r.Amount(f, r.Weight)
	}
	return r.Weight
}

// Rule names. Ruleset weights refer to these.
const (
	RuleCoreKeywords          = "core-keywords"
	RuleExpandedKeywords      = "expanded-keywords"
	RuleTopicOnItem           = "topic-on-item"
	RuleTopicOnField          = "topic-on-field"
	RuleTopicConfusable       = "topic-confusable"
	RuleTopicMention          = "topic-mention"
	RuleSubCategoryMatch      = "subcategory-match"
	RuleSubCategoryConfusable = "subcategory-confusable"
	RuleInfoDeepKnowledge     = "info-deep-knowledge"
	RuleInfoPartnerDirectory  = "info-partner-directory"
	RuleListingPartners       = "listing-partner-directory"
	RuleListingDeepKnowledge  = "listing-deep-knowledge"
	RuleTargetCategory        = "target-category"
	RuleSpecialtyTag          = "specialty-tag"
	RuleSpecialtyKeywords     = "specialty-keywords"
	RuleSpecialtyQuestion     = "specialty-question"
	RuleSpecialtyQuestionCore = "specialty-question-core"
	RulePartnerDetail         = "partner-detail"
	RulePartnerHistory        = "partner-history"
	RuleHighlights            = "highlights"
	RuleExactStrategy         = "exact-strategy"
)

const specialtyKeywordStep = 0.2

// TopicGroup names one subject and the spellings it goes by.
type TopicGroup struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Names returns the group name plus its aliases, lower-cased.
func (g TopicGroup) Names() []string {
	names := make([]string, 0, len(g.Aliases)+1)
	if g.Name != "" {
		names = append(names, strings.ToLower(g.Name))
	}
	for _, a := range g.Aliases {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			names = append(names, a)
		}
	}
	return names
}

// ConfusablePair marks two subjects as mutually exclusive: content about one
// is wrong for a question about the other.
type ConfusablePair struct {
	A TopicGroup `yaml:"a"`
	B TopicGroup `yaml:"b"`
}

// Limits are the result-count budgets.
type Limits struct {
	Default   int `yaml:"default"`
	Listing   int `yaml:"listing"`
	Specialty int `yaml:"specialty"`
}

// CategoryPrefixes name the top-level category paths the intent rules key on.
type CategoryPrefixes struct {
	DeepKnowledge    string `yaml:"deepKnowledge"`
	PartnerDirectory string `yaml:"partnerDirectory"`
}

// CustomRule is a rule whose condition is an expression over the facts, for
// example `provenance == "faq" && coreHits > 1`.
type CustomRule struct {
	Name   string  `yaml:"name"`
	Mode   Mode    `yaml:"mode"`
	Weight float64 `yaml:"weight"`
	When   string  `yaml:"when"`
}

// Ruleset is the tunable scoring policy.
type Ruleset struct {
	Threshold               float64             `yaml:"threshold"`
	Limits                  Limits              `yaml:"limits"`
	Categories              CategoryPrefixes    `yaml:"categories"`
	Synonyms                map[string][]string `yaml:"synonyms"`
	ConfusableTopics        []ConfusablePair    `yaml:"confusableTopics"`
	ConfusableSubCategories []ConfusablePair    `yaml:"confusableSubCategories"`
	Weights                 map[string]float64  `yaml:"weights"`
	SpecialtyCues           []string            `yaml:"specialtyCues"`
	PartnerCues             []string            `yaml:"partnerCues"`
	PartnerDetailCues       []string            `yaml:"partnerDetailCues"`
	PartnerHistoryCues      []string            `yaml:"partnerHistoryCues"`
	Custom                  []CustomRule        `yaml:"custom"`
}

func defaultPairs() []ConfusablePair {
	return []ConfusablePair{{
		A: TopicGroup{Name: "interior", Aliases: []string{"인테리어"}},
		B: TopicGroup{Name: "signage", Aliases: []string{"간판"}},
	}}
}

// DefaultRuleset returns the built-in policy.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Threshold:               0.25,
		Limits:                  Limits{Default: 10, Listing: 20, Specialty: 25},
		Categories:              CategoryPrefixes{DeepKnowledge: "advanced", PartnerDirectory: "partners"},
		Synonyms:                DefaultSynonyms(),
		ConfusableTopics:        defaultPairs(),
		ConfusableSubCategories: defaultPairs(),
		SpecialtyCues:           []string{"진료과", "특화", "전문", "specialty"},
		PartnerCues:             []string{"파트너", "업체", "partner", "vendor"},
		PartnerDetailCues:       []string{"회사 소개", "예상 가격", "포트폴리오", "company profile", "estimated price", "portfolio"},
		PartnerHistoryCues:      []string{"년차", "설립", "진행 가능", "years in business", "founded"},
	}
}

// LoadRuleset reads a YAML ruleset from path. Fields it leaves empty keep
// their defaults.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset %s: %w", path, err)
	}
	return ParseRuleset(data)
}

// ParseRuleset decodes a YAML ruleset over the defaults.
func ParseRuleset(data []byte) (*Ruleset, error) {
	rs := DefaultRuleset()
	override := &Ruleset{}
	if err := yaml.Unmarshal(data, override); err != nil {
		return nil, domain.Wrap(domain.ErrInvalidRuleset, err)
	}
	rs.merge(override)
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *Ruleset) merge(o *Ruleset) {
	if o.Threshold != 0 {
		rs.Threshold = o.Threshold
	}
	if o.Limits.Default != 0 {
		rs.Limits.Default = o.Limits.Default
	}
	if o.Limits.Listing != 0 {
		rs.Limits.Listing = o.Limits.Listing
	}
	if o.Limits.Specialty != 0 {
		rs.Limits.Specialty = o.Limits.Specialty
	}
	if o.Categories.DeepKnowledge != "" {
		rs.Categories.DeepKnowledge = o.Categories.DeepKnowledge
	}
	if o.Categories.PartnerDirectory != "" {
		rs.Categories.PartnerDirectory = o.Categories.PartnerDirectory
	}
	for k, v := range o.Synonyms {
		rs.Synonyms[k] = v
	}
	if o.ConfusableTopics != nil {
		rs.ConfusableTopics = o.ConfusableTopics
	}
	if o.ConfusableSubCategories != nil {
		rs.ConfusableSubCategories = o.ConfusableSubCategories
	}
	if len(o.Weights) > 0 {
		rs.Weights = o.Weights
	}
	if o.SpecialtyCues != nil {
		rs.SpecialtyCues = o.SpecialtyCues
	}
	if o.PartnerCues != nil {
		rs.PartnerCues = o.PartnerCues
	}
	if o.PartnerDetailCues != nil {
		rs.PartnerDetailCues = o.PartnerDetailCues
	}
	if o.PartnerHistoryCues != nil {
		rs.PartnerHistoryCues = o.PartnerHistoryCues
	}
	rs.Custom = o.Custom
}

// Validate checks weights, limits and custom rule expressions.
func (rs *Ruleset) Validate() error {
	if rs.Threshold < 0 || math.IsNaN(rs.Threshold) || math.IsInf(rs.Threshold, 0) {
		return domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("threshold must be a non-negative number"))
	}
	if rs.Limits.Default <= 0 || rs.Limits.Listing <= 0 || rs.Limits.Specialty <= 0 {
		return domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("result limits must be positive"))
	}
	for name, w := range rs.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("weight %s must be a non-negative number", name))
		}
	}
	for _, cr := range rs.Custom {
		if _, err := cr.compile(); err != nil {
			return err
		}
	}
	return nil
}

func (cr CustomRule) compile() (Rule, error) {
	if cr.Name == "" {
		return Rule{}, domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("custom rule needs a name"))
	}
	if cr.Mode != ModeAdditive && cr.Mode != ModeMultiplicative {
		return Rule{}, domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("custom rule %s: unknown mode %q", cr.Name, cr.Mode))
	}
	if cr.Weight < 0 || math.IsNaN(cr.Weight) || math.IsInf(cr.Weight, 0) {
		return Rule{}, domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("custom rule %s: weight must be a non-negative number", cr.Name))
	}

	program, err := expr.Compile(cr.When, expr.Env(factsEnvSample), expr.AsBool())
	if err != nil {
		return Rule{}, domain.Wrap(domain.ErrInvalidRuleset, fmt.Errorf("custom rule %s: %w", cr.Name, err))
	}

	return Rule{
		Name:   cr.Name,
		Mode:   cr.Mode,
		Weight: cr.Weight,
		When:   exprCondition(program),
	}, nil
}

// exprCondition adapts a compiled expression. Evaluation errors count as a
// non-match.
func exprCondition(program *vm.Program) Condition {
	return func(f *Facts) bool {
		out, err := expr.Run(program, f.Env())
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}

// Rules builds the rule table for the ruleset: the built-in rows, with any
// weight overrides applied, followed by the custom rows.
func (rs *Ruleset) Rules() ([]Rule, error) {
	rules := builtinRules()
	for i := range rules {
		if w, ok := rs.Weights[rules[i].Name]; ok {
			rules[i].Weight = w
		}
	}
	for _, cr := range rs.Custom {
		r, err := cr.compile()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func builtinRules() []Rule {
	return []Rule{
		{
			Name: RuleCoreKeywords, Mode: ModeAdditive, Weight: 0.6,
			When: func(f *Facts) bool { return len(f.core) > 0 },
			Amount: func(f *Facts, w float64) float64 {
				return math.Min(f.CoreHits/float64(len(f.core))*w, w)
			},
		},
		{
			Name: RuleExpandedKeywords, Mode: ModeAdditive, Weight: 0.25,
			When: func(f *Facts) bool { return len(f.expanded) > 0 },
			Amount: func(f *Facts, w float64) float64 {
				return math.Min(f.ExpandedHits/float64(len(f.expanded))*w, w)
			},
		},
		{
			Name: RuleTopicOnItem, Mode: ModeAdditive, Weight: 2.0,
			When: func(f *Facts) bool { return f.Topic == agreeItem },
		},
		{
			Name: RuleTopicOnField, Mode: ModeAdditive, Weight: 1.5,
			When: func(f *Facts) bool { return f.Topic == agreeField },
		},
		{
			Name: RuleTopicConfusable, Mode: ModeMultiplicative, Weight: 0.1,
			When: func(f *Facts) bool { return f.Topic == agreeConfusable },
		},
		{
			Name: RuleTopicMention, Mode: ModeAdditive, Weight: 0.1,
			When: func(f *Facts) bool { return f.TopicMentioned },
		},
		{
			Name: RuleSubCategoryMatch, Mode: ModeAdditive, Weight: 1.0,
			When: func(f *Facts) bool { return f.SubCategory == agreeItem },
		},
		{
			Name: RuleSubCategoryConfusable, Mode: ModeMultiplicative, Weight: 0.5,
			When: func(f *Facts) bool { return f.SubCategory == agreeConfusable },
		},
		{
			Name: RuleInfoDeepKnowledge, Mode: ModeAdditive, Weight: 0.8,
			When: func(f *Facts) bool {
				return f.Intent == domain.IntentInformation && (f.DeepKnowledge || f.Provenance == domain.ProvenanceQA)
			},
		},
		{
			Name: RuleInfoPartnerDirectory, Mode: ModeMultiplicative, Weight: 0.7,
			When: func(f *Facts) bool { return f.Intent == domain.IntentInformation && f.PartnerDirectory },
		},
		{
			Name: RuleListingPartners, Mode: ModeAdditive, Weight: 0.8,
			When: func(f *Facts) bool { return f.Intent == domain.IntentPartnerListing && f.PartnerDirectory },
		},
		{
			Name: RuleListingDeepKnowledge, Mode: ModeMultiplicative, Weight: 0.7,
			When: func(f *Facts) bool { return f.Intent == domain.IntentPartnerListing && f.DeepKnowledge },
		},
		{
			Name: RuleTargetCategory, Mode: ModeMultiplicative, Weight: 1.5,
			When: func(f *Facts) bool { return f.InTargetCategory },
		},
		{
			Name: RuleSpecialtyTag, Mode: ModeAdditive, Weight: 2.0,
			When: func(f *Facts) bool { return f.SpecialtyTagged },
		},
		{
			Name: RuleSpecialtyKeywords, Mode: ModeAdditive, Weight: 0.8,
			When: func(f *Facts) bool { return !f.SpecialtyTagged && f.SpecialtyKeywordHits > 0 },
			Amount: func(f *Facts, w float64) float64 {
				return math.Min(float64(f.SpecialtyKeywordHits)*specialtyKeywordStep, w)
			},
		},
		{
			Name: RuleSpecialtyQuestion, Mode: ModeAdditive, Weight: 0.2,
			When: func(f *Facts) bool { return f.SpecialtyQuestion && len(f.Item.Tags.Specialties) > 0 },
		},
		{
			Name: RuleSpecialtyQuestionCore, Mode: ModeAdditive, Weight: 0.15,
			When: func(f *Facts) bool { return f.SpecialtyQuestion && f.CoreInSpecialties },
		},
		{
			Name: RulePartnerDetail, Mode: ModeAdditive, Weight: 0.3,
			When: func(f *Facts) bool { return f.PartnerQuestion && f.PartnerDetail },
		},
		{
			Name: RulePartnerHistory, Mode: ModeAdditive, Weight: 0.2,
			When: func(f *Facts) bool { return f.PartnerQuestion && f.PartnerHistory },
		},
		{
			Name: RuleHighlights, Mode: ModeAdditive, Weight: 0.05,
			When: func(f *Facts) bool { return len(f.Item.Tags.Highlights) > 0 },
		},
		{
			Name: RuleExactStrategy, Mode: ModeMultiplicative, Weight: 0.3,
			When: func(f *Facts) bool {
				return f.Strategy == domain.StrategyExact && len(f.core) > 0 && !f.CoreMatched
			},
		},
	}
}
