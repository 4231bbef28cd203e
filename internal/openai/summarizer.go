package openai

import (
	"context"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/domain"
)

const summarizerTemperature = 0.2

// Summarizer folds conversation turns into a running summary
type Summarizer struct {
	client *Client
	models []string
}

// NewSummarizer creates a Summarizer that tries the client's summarizer models.
func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client, models: client.cfg.SummarizerModels}
}

// Summarize returns priorSummary extended with the content of oldest.
func (s *Summarizer) Summarize(ctx context.Context, priorSummary string, oldest domain.ConversationTurn) (string, error) {
	var b strings.Builder
	if prior := strings.TrimSpace(priorSummary); prior != "" {
		b.WriteString("기존 요약:\n")
		b.WriteString(prior)
		b.WriteString("\n\n")
	}
	b.WriteString("새 대화:\n")
	b.WriteString("사용자: " + oldest.UserText + "\n어시스턴트: " + oldest.AssistantText)

	content, _, err := s.client.Complete(ctx, s.models, summarizerPrompt, b.String(), summarizerTemperature)
	if err != nil {
		return "", domain.Wrap(domain.ErrSummarizationFailure, err)
	}
	return strings.TrimSpace(content), nil
}

const summarizerPrompt = `당신은 병원 개원 상담 대화를 요약합니다.
기존 요약과 새 대화를 합쳐 300자 이내의 한 문단으로 요약하세요.
사용자가 물어본 주제와 안내된 업체명, 장비명, 비용은 반드시 남기세요.
요약문만 출력하세요.`
