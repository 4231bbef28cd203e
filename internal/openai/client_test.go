package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/consultbot/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatAPI is a mock for the chat completion API
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

func forModel(model string) interface{} {
	return mock.MatchedBy(func(req openai.ChatCompletionRequest) bool { return req.Model == model })
}

func newTestClient(api ChatAPI) *Client {
	return NewClientWithAPI(api, Config{
		PlannerModels:     []string{"plan-a", "plan-b"},
		GeneratorModels:   []string{"gen-a", "gen-b"},
		SummarizerModels:  []string{"sum-a"},
		MaxReferenceRunes: 10,
	}, nil)
}

func TestClient_Complete_FallsBackToNextModel(t *testing.T) {
	api := new(MockChatAPI)
	client := newTestClient(api)

	api.On("CreateChatCompletion", mock.Anything, forModel("m1")).Return(openai.ChatCompletionResponse{}, errors.New("503")).Once()
	api.On("CreateChatCompletion", mock.Anything, forModel("m2")).Return(reply(""), nil).Once()
	api.On("CreateChatCompletion", mock.Anything, forModel("m3")).Return(reply("hello"), nil).Once()

	content, model, err := client.Complete(context.Background(), []string{"m1", "m2", "m3"}, "system", "user", 0)

	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Equal(t, "m3", model)
	api.AssertExpectations(t)
}

func TestClient_Complete_AllModelsFail(t *testing.T) {
	api := new(MockChatAPI)
	client := newTestClient(api)

	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, errors.New("quota"))

	_, _, err := client.Complete(context.Background(), []string{"m1", "m2"}, "", "user", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "m1: quota")
	assert.Contains(t, err.Error(), "m2: quota")
}

func TestClient_Complete_SendsSystemAndUser(t *testing.T) {
	api := new(MockChatAPI)
	client := newTestClient(api)

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[1].Role == openai.ChatMessageRoleUser &&
			req.Messages[1].Content == "question"
	})).Return(reply("ok"), nil)

	_, _, err := client.Complete(context.Background(), []string{"m"}, "sys", "question", 0)
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestClient_Complete_InputErrors(t *testing.T) {
	client := newTestClient(new(MockChatAPI))

	_, _, err := client.Complete(context.Background(), []string{"m"}, "sys", " ", 0)
	assert.Equal(t, ErrEmptyText, err)

	_, _, err = client.Complete(context.Background(), nil, "sys", "q", 0)
	assert.Equal(t, ErrNoModels, err)
}

func TestClient_Complete_CancelledContext(t *testing.T) {
	api := new(MockChatAPI)
	client := newTestClient(api)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.Complete(ctx, []string{"m"}, "", "q", 0)

	assert.ErrorIs(t, err, context.Canceled)
	api.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultPlannerModels, client.Config().PlannerModels)
	assert.Equal(t, DefaultMaxReferenceRunes, client.Config().MaxReferenceRunes)
}

func TestPlanner_Plan(t *testing.T) {
	api := new(MockChatAPI)
	planner, err := NewPlanner(newTestClient(api))
	require.NoError(t, err)

	raw := "```json\n" + `{"intent":"파트너사목록","topic":"기타","targetCategory":"partners","specialtyRelevant":true,` +
		`"coreKeywords":["인테리어", " "],"expandedKeywords":["시공"],"excludeKeywords":[],"searchStrategy":"fuzzy"}` + "\n```"
	api.On("CreateChatCompletion", mock.Anything, forModel("plan-a")).Return(openai.ChatCompletionResponse{}, errors.New("timeout")).Once()
	api.On("CreateChatCompletion", mock.Anything, forModel("plan-b")).Return(reply(raw), nil).Once()

	res, err := planner.Plan(context.Background(), PlanRequest{Query: "인테리어 파트너사 추천해줘"})

	require.NoError(t, err)
	assert.Equal(t, "plan-b", res.Model)
	assert.Equal(t, domain.IntentPartnerListing, res.Plan.Intent)
	assert.Equal(t, domain.TopicOther, res.Plan.Topic)
	assert.Equal(t, "partners", res.Plan.TargetCategory)
	assert.Equal(t, domain.CategoryAll, res.Plan.TargetSubCategory)
	assert.Equal(t, []string{"인테리어"}, res.Plan.CoreKeywords)
	assert.Equal(t, domain.StrategyBroad, res.Plan.SearchStrategy)
	assert.True(t, res.Plan.SpecialtyRelevant)
}

func TestPlanner_PromptCarriesContextAndSpecialty(t *testing.T) {
	api := new(MockChatAPI)
	planner, err := NewPlanner(newTestClient(api))
	require.NoError(t, err)

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		system := req.Messages[0].Content
		return strings.Contains(system, "사용자: 간판 업체?") && strings.Contains(system, "[사용자 진료과: 피부과]")
	})).Return(reply(`{"intent":"off_topic","coreKeywords":[]}`), nil)

	res, err := planner.Plan(context.Background(), PlanRequest{
		Query:               "더 없어?",
		ConversationContext: "사용자: 간판 업체?\n어시스턴트: 두 곳이 있어요.",
		Specialty:           &domain.UserSpecialty{Code: "dermatology", Label: "피부과"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.IntentOffTopic, res.Plan.Intent)
	api.AssertExpectations(t)
}

func TestPlanner_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "죄송합니다, 이해하지 못했어요."},
		{"broken json", `{"intent": "비용", "coreKeywords": [}`},
		{"missing keywords", `{"intent": "비용"}`},
		{"wrong type", `{"intent": "비용", "coreKeywords": "간판"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockChatAPI)
			planner, err := NewPlanner(newTestClient(api))
			require.NoError(t, err)
			api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(reply(tt.content), nil)

			res, err := planner.Plan(context.Background(), PlanRequest{Query: "간판 비용"})

			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrPlanningUnavailable)
		})
	}
}

func TestPlanner_AllModelsDown(t *testing.T) {
	api := new(MockChatAPI)
	planner, err := NewPlanner(newTestClient(api))
	require.NoError(t, err)
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, errors.New("down"))

	_, err = planner.Plan(context.Background(), PlanRequest{Query: "간판 비용"})

	assert.ErrorIs(t, err, domain.ErrPlanningUnavailable)
	api.AssertNumberOfCalls(t, "CreateChatCompletion", 2)
}

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSONObject("plan: {\"a\": {\"b\": 1}} done")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = ExtractJSONObject("} no object {")
	assert.Error(t, err)
}

func TestFormatReferences(t *testing.T) {
	refs := []domain.ScoredItem{
		{Item: &domain.KnowledgeItem{Prompt: "간판 비용?", Body: "크기별 달라요."}},
		{Item: &domain.KnowledgeItem{Prompt: "야간 간판", Body: "LED 채널 간판은 야간 시인성이 좋아요."}},
	}

	got := FormatReferences(refs, 10)

	assert.Equal(t, "[1] Q: 간판 비용?\nA: 크기별 달라요.\n\n[2] Q: 야간 간판\nA: LED 채널 간판은...", got)
	assert.Equal(t, "LED 채널 간판은 야간 시인성이 좋아요.", refs[1].Item.Body)
}

func TestGenerator_Generate(t *testing.T) {
	api := new(MockChatAPI)
	gen := NewGenerator(newTestClient(api))

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		system := req.Messages[0].Content
		return req.Model == "gen-a" &&
			strings.Contains(system, "[1] Q: 간판 비용?") &&
			strings.Contains(system, "디자인캐프, 빛나는사인") &&
			strings.Contains(system, domain.SentinelNoData)
	})).Return(reply("  간판은 크기에 따라 달라요.[1]  "), nil)

	res, err := gen.Generate(context.Background(), GenerateRequest{
		Query:            "간판 비용",
		References:       []domain.ScoredItem{{Item: &domain.KnowledgeItem{Prompt: "간판 비용?", Body: "크기에 따라"}}},
		AlreadyMentioned: []string{"디자인캐프", "빛나는사인"},
	})

	require.NoError(t, err)
	assert.Equal(t, "간판은 크기에 따라 달라요.[1]", res.Text)
	assert.Equal(t, "gen-a", res.Model)
	api.AssertExpectations(t)
}

func TestGenerator_Failure(t *testing.T) {
	api := new(MockChatAPI)
	gen := NewGenerator(newTestClient(api))
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, errors.New("down"))

	_, err := gen.Generate(context.Background(), GenerateRequest{Query: "간판"})

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestSummarizer_Summarize(t *testing.T) {
	api := new(MockChatAPI)
	s := NewSummarizer(newTestClient(api))

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		user := req.Messages[1].Content
		return strings.Contains(user, "기존 요약:\n개원 비용 문의") && strings.Contains(user, "사용자: 간판?")
	})).Return(reply(" 개원 비용과 간판 문의 \n"), nil)

	got, err := s.Summarize(context.Background(), "개원 비용 문의", domain.ConversationTurn{UserText: "간판?", AssistantText: "LED"})

	require.NoError(t, err)
	assert.Equal(t, "개원 비용과 간판 문의", got)
}

func TestSummarizer_Failure(t *testing.T) {
	api := new(MockChatAPI)
	s := NewSummarizer(newTestClient(api))
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, errors.New("down"))

	_, err := s.Summarize(context.Background(), "", domain.ConversationTurn{UserText: "q", AssistantText: "a"})

	assert.ErrorIs(t, err, domain.ErrSummarizationFailure)
}
