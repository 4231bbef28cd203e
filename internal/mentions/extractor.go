// Package mentions finds entities an assistant has already presented in a
// conversation, so the next answer can avoid repeating them.
package mentions

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// Candidates are entity-like phrases guessed from earlier answers. Extraction
// is pattern based and false positives are expected, so they are advisory
// hints and never validated entity data.
type Candidates []string

// Strings returns a copy of the candidates as a plain slice.
func (c Candidates) Strings() []string {
	if len(c) == 0 {
		return nil
	}
	out := make([]string, len(c))
	copy(out, c)
	return out
}

// Contains reports whether s is a candidate.
func (c Candidates) Contains(s string) bool {
	for _, v := range c {
		if v == s {
			return true
		}
	}
	return false
}

const (
	minRunes = 2
	maxRunes = 35
)

var (
	acronymRe    = regexp.MustCompile(`\(([A-Z][A-Z0-9&/\-]{1,14})\)`)
	labelRe      = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+•][ \t]+|\d+[.)][ \t]+)?(?:\*\*)?([^:\n*]{2,40}?)(?:\*\*)?[ \t]*:[ \t]+\S`)
	citationRe   = regexp.MustCompile(`\[\s*\d+(?:\s*,\s*\d+)*\s*\]`)
	enumRe       = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*+•·])\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// phraseStops end the leading noun phrase of a list item.
var phraseStops = []string{":", " - ", " – ", "(", "[", ",", ". ", "\n"}

var defaultStoplist = []string{
	"note", "important", "tip", "tips", "summary", "example", "warning", "caution",
	"answer", "question", "reference", "references", "step", "overview", "cost", "price",
	"참고", "주의", "중요", "요약", "팁", "예시", "결론", "답변", "질문", "참고문서",
	"사용자", "어시스턴트", "이전 대화 요약", "비용", "가격", "예상 비용", "장점", "단점",
	"특징", "기간", "방법", "절차", "체크리스트", "주의사항", "참고사항", "추천", "정리",
	// field labels of vendor listings
	"업력", "주요 특징", "시공 기간", "소요 기간", "업체명", "연락처", "전화번호", "위치",
	"주소", "대표", "주요 서비스", "주요 실적", "영업시간", "견적", "비고",
}

// Extractor pulls candidate mentions from markdown answer text.
type Extractor struct {
	stop map[string]bool
}

// NewExtractor creates an Extractor with the default stoplist plus extra.
func NewExtractor(extra ...string) *Extractor {
	stop := make(map[string]bool, len(defaultStoplist)+len(extra))
	for _, s := range append(append([]string(nil), defaultStoplist...), extra...) {
		stop[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return &Extractor{stop: stop}
}

var defaultExtractor = NewExtractor()

// Extract scans the summary and then every buffered assistant reply.
func Extract(turns []domain.ConversationTurn, summary string) Candidates {
	return defaultExtractor.Extract(turns, summary)
}

// Extract returns the cleaned, bounded, deduplicated candidates found in the
// summary and the assistant side of turns, in first-seen order.
func (e *Extractor) Extract(turns []domain.ConversationTurn, summary string) Candidates {
	c := &collector{stop: e.stop, seen: make(map[string]bool)}

	texts := make([]string, 0, len(turns)+1)
	if strings.TrimSpace(summary) != "" {
		texts = append(texts, summary)
	}
	for _, t := range turns {
		if strings.TrimSpace(t.AssistantText) != "" {
			texts = append(texts, t.AssistantText)
		}
	}

	for _, text := range texts {
		c.scanMarkdown(text)
		for _, m := range acronymRe.FindAllStringSubmatch(text, -1) {
			c.add(m[1])
		}
		for _, m := range labelRe.FindAllStringSubmatch(text, -1) {
			c.add(m[1])
		}
	}
	return c.out
}

type collector struct {
	stop map[string]bool
	seen map[string]bool
	out  Candidates
}

func (c *collector) scanMarkdown(text string) {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := markdown.Parse([]byte(text), p)

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.ListItem:
			c.add(leadingPhrase(firstBlockText(n)))
		case *ast.Strong:
			c.add(nodeText(n))
		}
		return ast.GoToNext
	})
}

func (c *collector) add(raw string) {
	s := clean(raw)
	n := utf8.RuneCountInString(s)
	if n < minRunes || n > maxRunes {
		return
	}
	if c.stop[strings.ToLower(s)] || c.seen[s] || !hasLetter(s) {
		return
	}
	c.seen[s] = true
	c.out = append(c.out, s)
}

// firstBlockText is the text of the first paragraph of a list item.
func firstBlockText(item *ast.ListItem) string {
	for _, child := range item.GetChildren() {
		if _, ok := child.(*ast.Paragraph); ok {
			return nodeText(child)
		}
	}
	return ""
}

// nodeText concatenates the literal text below node.
func nodeText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n.(type) {
		case *ast.Softbreak, *ast.Hardbreak:
			b.WriteByte('\n')
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return b.String()
}

// leadingPhrase cuts s at the first delimiter that usually ends a name.
func leadingPhrase(s string) string {
	cut := len(s)
	for _, stop := range phraseStops {
		if i := strings.Index(s, stop); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSuffix(s[:cut], ".")
}

func clean(s string) string {
	s = citationRe.ReplaceAllString(s, "")
	s = enumRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) && r != ')' && r != '&'
	})
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
