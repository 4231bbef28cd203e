package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/domain"
)

const generatorTemperature = 0.4

// GenerateRequest is the input of one answer generation
type GenerateRequest struct {
	Query            string
	References       []domain.ScoredItem
	Context          string
	Specialty        *domain.UserSpecialty
	AlreadyMentioned []string
}

// Generation is a raw generated answer, sentinels included
type Generation struct {
	Text  string
	Model string
}

// Generator writes answers grounded on numbered references
type Generator struct {
	client   *Client
	models   []string
	maxRunes int
}

// NewGenerator creates a Generator that tries the client's generator models.
func NewGenerator(client *Client) *Generator {
	return &Generator{
		client:   client,
		models:   client.cfg.GeneratorModels,
		maxRunes: client.cfg.MaxReferenceRunes,
	}
}

// Generate produces the answer text. The reply may start with the
// [OFF_TOPIC] or [NO_DATA] sentinel; classifying it is the caller's job.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	content, model, err := g.client.Complete(ctx, g.models, generatorPrompt(req, g.maxRunes), req.Query, generatorTemperature)
	if err != nil {
		return nil, domain.Wrap(domain.ErrGenerationFailed, err)
	}
	return &Generation{Text: strings.TrimSpace(content), Model: model}, nil
}

// FormatReferences renders refs as "[i] Q: ...\nA: ..." blocks numbered from
// one. Bodies longer than maxRunes are cut; the stored items are untouched.
func FormatReferences(refs []domain.ScoredItem, maxRunes int) string {
	blocks := make([]string, 0, len(refs))
	for i, ref := range refs {
		if ref.Item == nil {
			continue
		}
		body := ref.Item.Body
		if maxRunes > 0 {
			if r := []rune(body); len(r) > maxRunes {
				body = string(r[:maxRunes]) + "..."
			}
		}
		blocks = append(blocks, fmt.Sprintf("[%d] Q: %s\nA: %s", i+1, ref.Item.Prompt, body))
	}
	return strings.Join(blocks, "\n\n")
}

func generatorPrompt(req GenerateRequest, maxRunes int) string {
	history := strings.TrimSpace(req.Context)
	if history == "" {
		history = "(첫 대화입니다)"
	}
	refs := FormatReferences(req.References, maxRunes)
	if refs == "" {
		refs = "(관련 데이터 없음)"
	}

	var b strings.Builder
	b.WriteString("당신은 병원 개원 전문 AI 컨설턴트입니다. 친절하고 전문적인 어조로 답변해주세요.\n")
	if s := req.Specialty; s != nil && s.Code != "" {
		fmt.Fprintf(&b, "사용자의 진료과는 %s입니다. 해당 진료과에 맞는 정보를 우선 안내하세요.\n", s.Label)
	}

	fmt.Fprintf(&b, "\n# 이전 대화 내역\n%s\n\n# 참고문서\n%s\n", history, refs)

	if len(req.AlreadyMentioned) > 0 {
		fmt.Fprintf(&b, "\n# 이미 안내한 항목\n%s\n사용자가 추가 정보를 원하면 위 항목은 반복하지 말고 새로운 항목을 우선 안내하세요.\n",
			strings.Join(req.AlreadyMentioned, ", "))
	}

	fmt.Fprintf(&b, `
# 규칙
1. 참고문서에 관련 정보가 조금이라도 있으면 그 내용을 기반으로 답변하세요.
2. 질문이 병원 개원과 전혀 무관하면 "%s죄송합니다. 해당 질문에 대해서는 답변을 드리기 어렵습니다."로 답하세요.
3. 병원 개원 관련인데 참고문서에 관련 내용이 전혀 없으면 "%s죄송합니다. 현재 해당 질문에 대한 답변을 드리기 어렵습니다."로 답하세요.
4. 참고문서에 없는 내용을 지어내지 마세요.
5. 출처는 참고문서 번호 [1], [2]를 문장 끝에 붙여 표기하세요.
6. 파트너사나 업체 목록 질문이면 참고문서의 업체를 번호를 붙여 모두 나열하세요.
7. 모든 문장은 "~요", "~습니다" 체로 작성하세요.`, domain.SentinelOffTopic, domain.SentinelNoData)

	return b.String()
}
