package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/citation"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/memory"
	"github.com/cloo-solutions/consultbot/internal/mentions"
	"github.com/cloo-solutions/consultbot/internal/openai"
	"github.com/cloo-solutions/consultbot/internal/retrieval"
	"github.com/cloo-solutions/consultbot/internal/telemetry"
	"go.uber.org/zap"
)

// OffTopicReply answers questions unrelated to opening a clinic.
const OffTopicReply = "죄송합니다. 해당 질문에 대해서는 답변을 드리기 어렵습니다."

// previewRunes bounds the body preview of a returned reference.
const previewRunes = 200

// PlannerInterface defines the query planner used by the chat service
type PlannerInterface interface {
	Plan(ctx context.Context, req openai.PlanRequest) (*openai.PlanResult, error)
}

// GeneratorInterface defines the answer generator used by the chat service
type GeneratorInterface interface {
	Generate(ctx context.Context, req openai.GenerateRequest) (*openai.Generation, error)
}

// Reference is a cited knowledge item as returned to clients
type Reference struct {
	Number       int               `json:"number"`
	ID           string            `json:"id"`
	Provenance   domain.Provenance `json:"provenance"`
	Prompt       string            `json:"prompt"`
	Preview      string            `json:"preview"`
	CategoryPath string            `json:"categoryPath,omitempty"`
	Link         string            `json:"link,omitempty"`
	Score        float64           `json:"score"`
}

// TurnResult is the outcome of one question
type TurnResult struct {
	SessionID    string            `json:"sessionId"`
	Kind         domain.AnswerKind `json:"kind"`
	Text         string            `json:"text"`
	References   []Reference       `json:"references"`
	Plan         domain.QueryPlan  `json:"plan"`
	PlanFallback bool              `json:"planFallback"`
	Mentions     []string          `json:"mentions,omitempty"`
	Unmapped     []int             `json:"unmapped,omitempty"`
	Model        string            `json:"model,omitempty"`
	MemoryState  memory.State      `json:"memoryState"`
}

// ChatService runs consultation turns
type ChatService struct {
	sessions  *SessionStore
	selector  *retrieval.Selector
	planner   PlannerInterface
	generator GeneratorInterface
	catalog   domain.SpecialtyCatalog
	logger    *zap.Logger
}

// ChatDeps holds the collaborators of a ChatService. Planner may be nil, in
// which case every turn uses the default plan.
type ChatDeps struct {
	Sessions  *SessionStore
	Selector  *retrieval.Selector
	Planner   PlannerInterface
	Generator GeneratorInterface
	Catalog   domain.SpecialtyCatalog
	Logger    *zap.Logger
}

// NewChatService creates a new ChatService instance
func NewChatService(deps ChatDeps) *ChatService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if len(deps.Catalog) == 0 {
		deps.Catalog = domain.DefaultSpecialties
	}
	return &ChatService{
		sessions:  deps.Sessions,
		selector:  deps.Selector,
		planner:   deps.Planner,
		generator: deps.Generator,
		catalog:   deps.Catalog,
		logger:    deps.Logger,
	}
}

// Specialties returns the selectable specialties.
func (s *ChatService) Specialties() domain.SpecialtyCatalog {
	return s.catalog
}

// NewSession starts a conversation.
func (s *ChatService) NewSession() *SessionView {
	return s.sessions.Create().View()
}

// GetSession returns the state of a conversation.
func (s *ChatService) GetSession(id string) (*SessionView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.View(), nil
}

// EndSession drops a conversation.
func (s *ChatService) EndSession(id string) error {
	if !s.sessions.Delete(id) {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Reset clears a conversation's memory and moves it onto the current corpus.
func (s *ChatService) Reset(id string) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	sess.memory.Reset()
	s.sessions.Rebind(sess)
	return nil
}

// SetSpecialty selects a specialty by code or label; an empty code clears
// it. Changing the specialty resets the conversation memory.
func (s *ChatService) SetSpecialty(id, code string) (*domain.UserSpecialty, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	var next *domain.UserSpecialty
	if strings.TrimSpace(code) != "" {
		if next, err = s.catalog.Lookup(code); err != nil {
			return nil, err
		}
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	prev := sess.Specialty()
	if specialtyCode(prev) != specialtyCode(next) {
		sess.setSpecialty(next)
		sess.memory.Reset()
		s.logger.Info("session specialty changed",
			zap.String("session_id", id),
			zap.String("from", specialtyCode(prev)),
			zap.String("to", specialtyCode(next)),
		)
	}
	return next, nil
}

func specialtyCode(sp *domain.UserSpecialty) string {
	if sp == nil {
		return ""
	}
	return sp.Code
}

// Ask answers query within a session. An empty sessionID starts a new
// session. Planner and summarizer faults degrade the turn; only a generator
// failure is returned.
func (s *ChatService) Ask(ctx context.Context, sessionID, query string) (*TurnResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	var sess *Session
	if sessionID == "" {
		sess = s.sessions.Create()
	} else {
		var err error
		if sess, err = s.sessions.Get(sessionID); err != nil {
			return nil, err
		}
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "chat.ask", telemetry.SpanAttributes{SessionID: sess.ID, Operation: "ask"})
	defer span.End()

	specialty := sess.Specialty()
	history := sess.memory.ContextPrompt()

	plan, fallback := s.plan(ctx, query, history, specialty)
	span.SetTag("intent", string(plan.Intent))

	result := &TurnResult{
		SessionID:    sess.ID,
		Plan:         plan,
		PlanFallback: fallback,
		References:   []Reference{},
	}

	if plan.Intent == domain.IntentOffTopic {
		result.Kind = domain.AnswerOffTopic
		result.Text = OffTopicReply
		s.record(ctx, sess, query, result)
		return result, nil
	}

	candidates := s.retrieve(ctx, sess.Store(), &plan, specialty)
	mentioned := mentions.Extract(sess.memory.Turns(), sess.memory.Summary())
	result.Mentions = mentioned.Strings()

	genCtx, genSpan := telemetry.StartSpan(ctx, "chat.generate", telemetry.SpanAttributes{SessionID: sess.ID, Operation: "generate"})
	gen, err := s.generator.Generate(genCtx, openai.GenerateRequest{
		Query:            query,
		References:       candidates,
		Context:          history,
		Specialty:        specialty,
		AlreadyMentioned: result.Mentions,
	})
	if err != nil {
		genSpan.SetError(err)
		genSpan.End()
		s.logger.Error("answer generation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return nil, err
	}
	genSpan.SetTag("model", gen.Model)
	genSpan.End()
	result.Model = gen.Model

	result.Kind, result.Text = ClassifyAnswer(gen.Text)
	if result.Kind == domain.AnswerNormal {
		norm := citation.Normalize(result.Text, candidates)
		result.Text = norm.Text
		result.Unmapped = norm.Unmapped
		result.References = toReferences(norm.References)
		if err := norm.Err(); err != nil {
			s.logger.Warn("answer cites unknown references",
				zap.String("session_id", sess.ID),
				zap.Ints("indices", norm.Unmapped),
			)
			telemetry.CaptureError(ctx, err)
		}
	}

	s.record(ctx, sess, query, result)
	return result, nil
}

func (s *ChatService) plan(ctx context.Context, query, history string, specialty *domain.UserSpecialty) (domain.QueryPlan, bool) {
	if s.planner != nil {
		ctx, span := telemetry.StartSpan(ctx, "chat.plan", telemetry.SpanAttributes{Operation: "plan"})
		res, err := s.planner.Plan(ctx, openai.PlanRequest{
			Query:               query,
			ConversationContext: history,
			Specialty:           specialty,
		})
		if err == nil {
			span.SetTag("model", res.Model)
			span.End()
			return res.Plan, false
		}
		span.SetError(err)
		span.End()
		s.logger.Warn("planner unavailable, using default plan", zap.Error(err))
	}

	telemetry.AddBreadcrumb(ctx, "planner", "default plan used")
	expansion := s.selector.Normalizer().Expand(query)
	return domain.DefaultPlan(query, expansion.Strings()), true
}

func (s *ChatService) retrieve(ctx context.Context, store retrieval.Source, plan *domain.QueryPlan, specialty *domain.UserSpecialty) []domain.ScoredItem {
	_, span := telemetry.StartSpan(ctx, "chat.retrieve", telemetry.SpanAttributes{Operation: "retrieve"})
	defer span.End()

	candidates := s.selector.Select(store, plan, specialty)
	span.SetData("candidates", len(candidates))
	return candidates
}

// record appends the turn to memory. A failed compaction is a soft fault: the
// turn is kept and compaction is retried on the next turn.
func (s *ChatService) record(ctx context.Context, sess *Session, query string, result *TurnResult) {
	ctx, span := telemetry.StartSpan(ctx, "chat.compact", telemetry.SpanAttributes{SessionID: sess.ID, Operation: "compact"})
	defer span.End()

	err := sess.memory.Append(ctx, domain.ConversationTurn{UserText: query, AssistantText: result.Text})
	if err != nil {
		s.logger.Warn("conversation summarization failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		telemetry.CaptureError(ctx, err)
	}
	result.MemoryState = sess.memory.State()
}

// ClassifyAnswer detects the off-topic and no-data sentinels and strips the
// first occurrence from the text.
func ClassifyAnswer(text string) (domain.AnswerKind, string) {
	switch {
	case strings.Contains(text, domain.SentinelOffTopic):
		return domain.AnswerOffTopic, strings.TrimSpace(strings.Replace(text, domain.SentinelOffTopic, "", 1))
	case strings.Contains(text, domain.SentinelNoData):
		return domain.AnswerNoData, strings.TrimSpace(strings.Replace(text, domain.SentinelNoData, "", 1))
	}
	return domain.AnswerNormal, strings.TrimSpace(text)
}

func toReferences(items []domain.ScoredItem) []Reference {
	refs := make([]Reference, 0, len(items))
	for i, it := range items {
		if it.Item == nil {
			continue
		}
		refs = append(refs, Reference{
			Number:       i + 1,
			ID:           it.Item.ID,
			Provenance:   it.Item.Provenance,
			Prompt:       it.Item.Prompt,
			Preview:      preview(it.Item.Body, previewRunes),
			CategoryPath: it.Item.Tags.CategoryPath,
			Link:         it.Item.Tags.ExternalLink,
			Score:        it.Score,
		})
	}
	return refs
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
