package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// planSchema describes the planner reply. Intent, topic and strategy are
// free strings because the model answers with Korean labels as often as with
// the canonical names.
const planSchema = `{
  "type": "object",
  "required": ["intent", "coreKeywords"],
  "properties": {
    "intent": {"type": "string"},
    "topic": {"type": "string"},
    "targetCategory": {"type": "string"},
    "targetSubCategory": {"type": "string"},
    "specialtyRelevant": {"type": "boolean"},
    "coreKeywords": {"type": "array", "items": {"type": "string"}},
    "expandedKeywords": {"type": "array", "items": {"type": "string"}},
    "excludeKeywords": {"type": "array", "items": {"type": "string"}},
    "searchStrategy": {"type": "string"}
  }
}`

const plannerTemperature = 0.1

var errNoJSONObject = errors.New("no JSON object in planner reply")

// PlanRequest is the input of one planning call
type PlanRequest struct {
	Query               string
	ConversationContext string
	Specialty           *domain.UserSpecialty
}

// PlanResult is a parsed plan and the model that produced it
type PlanResult struct {
	Plan  domain.QueryPlan
	Model string
}

// Planner turns a question into a QueryPlan
type Planner struct {
	client *Client
	models []string
	schema *gojsonschema.Schema
	logger *zap.Logger
}

// NewPlanner creates a Planner that tries the client's planner models.
func NewPlanner(client *Client) (*Planner, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(planSchema))
	if err != nil {
		return nil, fmt.Errorf("invalid plan schema: %w", err)
	}
	return &Planner{
		client: client,
		models: client.cfg.PlannerModels,
		schema: schema,
		logger: client.logger,
	}, nil
}

// Plan asks the planner models for a plan. Every failure is reported as
// PlanningUnavailable so callers can fall back to the default plan.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	content, model, err := p.client.Complete(ctx, p.models, plannerPrompt(req), req.Query, plannerTemperature)
	if err != nil {
		return nil, domain.Wrap(domain.ErrPlanningUnavailable, err)
	}

	plan, err := p.parse(content)
	if err != nil {
		p.logger.Warn("planner reply rejected", zap.String("model", model), zap.Error(err))
		return nil, domain.Wrap(domain.ErrPlanningUnavailable, err)
	}

	return &PlanResult{Plan: *plan, Model: model}, nil
}

func (p *Planner) parse(content string) (*domain.QueryPlan, error) {
	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	result, err := p.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("plan validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("plan does not match schema: %s", strings.Join(msgs, "; "))
	}

	var payload planPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return payload.toPlan(), nil
}

type planPayload struct {
	Intent            string   `json:"intent"`
	Topic             string   `json:"topic"`
	TargetCategory    string   `json:"targetCategory"`
	TargetSubCategory string   `json:"targetSubCategory"`
	SpecialtyRelevant bool     `json:"specialtyRelevant"`
	CoreKeywords      []string `json:"coreKeywords"`
	ExpandedKeywords  []string `json:"expandedKeywords"`
	ExcludeKeywords   []string `json:"excludeKeywords"`
	SearchStrategy    string   `json:"searchStrategy"`
}

func (pp planPayload) toPlan() *domain.QueryPlan {
	topic := strings.TrimSpace(pp.Topic)
	if topic == "기타" {
		topic = domain.TopicOther
	}

	plan := &domain.QueryPlan{
		Intent:            domain.ParseIntent(pp.Intent),
		Topic:             topic,
		TargetCategory:    strings.TrimSpace(pp.TargetCategory),
		TargetSubCategory: strings.TrimSpace(pp.TargetSubCategory),
		CoreKeywords:      cleanKeywords(pp.CoreKeywords),
		ExpandedKeywords:  cleanKeywords(pp.ExpandedKeywords),
		ExcludeKeywords:   cleanKeywords(pp.ExcludeKeywords),
		SearchStrategy:    domain.ParseSearchStrategy(pp.SearchStrategy),
		SpecialtyRelevant: pp.SpecialtyRelevant,
	}
	plan.Normalize()
	return plan
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// ExtractJSONObject returns the text from the first '{' to the last '}',
// which strips prose and code fences around a JSON reply.
func ExtractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", errNoJSONObject
	}
	return s[start : end+1], nil
}

func plannerPrompt(req PlanRequest) string {
	var b strings.Builder
	b.WriteString(`당신은 병원 개원 상담 챗봇의 Query Planner입니다.
사용자 질문을 분석하여 검색 전략을 JSON으로 출력하세요.
`)

	if s := req.Specialty; s != nil && s.Code != "" {
		fmt.Fprintf(&b, `
[사용자 진료과: %s]
질문에 진료과 언급이 없어도 %s 관련 키워드를 coreKeywords나 expandedKeywords에 추가하세요.
`, s.Label, s.Label)
	}

	if history := strings.TrimSpace(req.ConversationContext); history != "" {
		fmt.Fprintf(&b, `
[최근 대화 맥락]
"더 없어?", "그거 말고" 같은 후속 질문이면 아래 대화의 topic을 유지하세요.

%s
`, history)
	}

	b.WriteString(`
[데이터 소스]
1. Q&A - 병원 개원 관련 일반 질문/답변
2. FAQ - 자주 묻는 질문
3. 지식 베이스 - 파트너사, 프로세스, 체크리스트 등 상세 정보
   partners/, hospital-basics/, advanced/, checklist/

[의도 구분]
- 파트너사 알려줘/추천해줘 → intent "파트너사목록", targetCategory "partners"
- 절차/과정/방법 → intent "절차안내", targetCategory "hospital-basics"
- 체크리스트/점검 → intent "체크리스트", targetCategory "checklist"
- 일반 정보 요청 → intent "정보요청", targetCategory "all"
- 병원 개원과 무관 → intent "off_topic"

[반환할 JSON 형식]
{
  "intent": "파트너사목록|절차안내|비용|체크리스트|심화|정보요청|off_topic",
  "topic": "인테리어|간판|의료기기|세무|마케팅|개원비용|CI/BI|기타",
  "targetCategory": "partners|hospital-basics|advanced|checklist|all",
  "targetSubCategory": "하위 폴더 이름 또는 all",
  "specialtyRelevant": true,
  "coreKeywords": ["핵심 키워드 1-3개"],
  "expandedKeywords": ["관련 확장 키워드"],
  "excludeKeywords": [],
  "searchStrategy": "semantic|broad|exact"
}

specialtyRelevant는 진료과별로 답변이 달라야 하는 질문(의료기기, 파트너사 추천)에만 true입니다.

반드시 JSON만 출력하세요.`)
	return b.String()
}
