package retrieval

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ExpansionTokens are search tokens guessed from raw query text. They come
// from suffix stripping and synonym lookup and carry no confidence; callers
// use them as hints only.
type ExpansionTokens []string

// Strings returns a copy of the tokens as a plain slice.
func (t ExpansionTokens) Strings() []string {
	if len(t) == 0 {
		return nil
	}
	out := make([]string, len(t))
	copy(out, t)
	return out
}

// particleSuffixes are stripped from the end of a token, longest first.
var particleSuffixes = []string{
	"에서", "으로", "에게", "까지", "부터",
	"은", "는", "이", "가", "을", "를", "에", "로", "의", "와", "과", "도", "만",
}

const trailingPunct = "?!.,;:~\"'()[]"

// DefaultSynonyms is the built-in synonym table.
func DefaultSynonyms() map[string][]string {
	return map[string][]string{
		"밤":    {"야간", "심야", "저녁"},
		"야간":   {"밤", "심야", "저녁"},
		"낮":    {"주간", "오전", "오후"},
		"주간":   {"낮", "오전", "오후"},
		"비용":   {"가격", "요금", "금액", "돈", "예산"},
		"가격":   {"비용", "요금", "금액"},
		"예산":   {"비용", "가격", "금액"},
		"의원":   {"병원", "클리닉", "진료소"},
		"병원":   {"의원", "클리닉", "진료소"},
		"벽":    {"벽면", "벽체", "내벽"},
		"바닥":   {"바닥재", "플로어"},
		"마감재":  {"마감", "자재", "소재"},
		"인테리어": {"실내", "내부"},
		"개원":   {"오픈", "창업", "개업"},
		"간판":   {"사인", "싸인", "현판"},
		"환자":   {"고객", "내원객"},
		"진료":   {"치료", "시술"},

		"night":    {"evening", "nighttime"},
		"cost":     {"price", "budget", "fee"},
		"price":    {"cost", "fee"},
		"budget":   {"cost", "price"},
		"clinic":   {"hospital"},
		"hospital": {"clinic"},
		"interior": {"indoor", "finishing"},
		"signage":  {"signboard", "sign"},
		"opening":  {"launch", "startup"},
		"patient":  {"customer", "visitor"},
	}
}

// Normalizer expands raw user text into search tokens.
type Normalizer struct {
	synonyms map[string][]string
	keys     []string
}

// NewNormalizer creates a Normalizer over a synonym table. Keys are matched in
// sorted order so the output does not depend on map iteration.
func NewNormalizer(synonyms map[string][]string) *Normalizer {
	table := make(map[string][]string, len(synonyms))
	keys := make([]string, 0, len(synonyms))
	for k, v := range synonyms {
		k = normalizeText(k)
		if k == "" {
			continue
		}
		if _, ok := table[k]; !ok {
			keys = append(keys, k)
		}
		vals := table[k]
		for _, s := range v {
			vals = append(vals, normalizeText(s))
		}
		table[k] = vals
	}
	sort.Strings(keys)
	return &Normalizer{synonyms: table, keys: keys}
}

// Expand returns the raw tokens, their particle-stripped forms and the
// synonyms of any matching table key, deduplicated in first-seen order.
// Tokens shorter than two runes are dropped.
func (n *Normalizer) Expand(query string) ExpansionTokens {
	var out ExpansionTokens
	seen := make(map[string]bool)
	add := func(tok string) {
		if utf8.RuneCountInString(tok) < 2 || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	for _, raw := range strings.Fields(normalizeText(query)) {
		stripped := StripParticle(raw)
		add(raw)
		add(stripped)

		for _, key := range n.keys {
			if strings.Contains(raw, key) || stripped == key {
				for _, syn := range n.synonyms[key] {
					add(syn)
				}
				add(key)
			}
		}
	}
	return out
}

// StripParticle removes trailing punctuation and at most one trailing
// grammatical particle from tok.
func StripParticle(tok string) string {
	tok = strings.TrimRight(tok, trailingPunct)
	for _, suffix := range particleSuffixes {
		if strings.HasSuffix(tok, suffix) && len(tok) > len(suffix) {
			return strings.TrimSuffix(tok, suffix)
		}
	}
	return tok
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
