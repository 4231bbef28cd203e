package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
)

// SearchMode selects the retrieval path of a search
type SearchMode string

const (
	// SearchModePlan scores the corpus against a query plan.
	SearchModePlan SearchMode = "plan"
	// SearchModeKeyword runs the plain keyword fallback.
	SearchModeKeyword SearchMode = "keyword"
)

// DefaultKeywordLimit bounds keyword search results.
const DefaultKeywordLimit = 10

// SearchInput describes a retrieval-only request. Plan, when given, is used
// as is; otherwise the query is planned like a chat turn without history.
type SearchInput struct {
	Query         string            `json:"query"`
	Plan          *domain.QueryPlan `json:"plan,omitempty"`
	SpecialtyCode string            `json:"specialty,omitempty"`
	Mode          SearchMode        `json:"mode,omitempty"`
	Limit         int               `json:"limit,omitempty"`
}

// SearchResult holds ranked candidates
type SearchResult struct {
	Mode         SearchMode        `json:"mode"`
	Plan         *domain.QueryPlan `json:"plan,omitempty"`
	PlanFallback bool              `json:"planFallback"`
	Items        []Reference       `json:"items"`
}

// SearchService runs retrieval without generation
type SearchService struct {
	chat     *ChatService
	registry *corpus.Registry
}

// NewSearchService creates a SearchService over the chat service's planner and
// selector, reading the registry's current corpus.
func NewSearchService(chat *ChatService, registry *corpus.Registry) *SearchService {
	return &SearchService{chat: chat, registry: registry}
}

// Search ranks the current corpus for in.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" && in.Plan == nil {
		return nil, domain.ErrEmptyQuery
	}
	if in.Mode == "" {
		in.Mode = SearchModePlan
	}

	var specialty *domain.UserSpecialty
	if strings.TrimSpace(in.SpecialtyCode) != "" {
		sp, err := s.chat.catalog.Lookup(in.SpecialtyCode)
		if err != nil {
			return nil, err
		}
		specialty = sp
	}

	store := s.registry.Current()
	result := &SearchResult{Mode: in.Mode}

	switch in.Mode {
	case SearchModeKeyword:
		if query == "" {
			return nil, domain.ErrEmptyQuery
		}
		limit := in.Limit
		if limit <= 0 {
			limit = DefaultKeywordLimit
		}
		result.Items = toReferences(s.chat.selector.KeywordSearch(store, query, limit))

	case SearchModePlan:
		var plan domain.QueryPlan
		if in.Plan != nil {
			plan = *in.Plan
			plan.Normalize()
		} else {
			plan, result.PlanFallback = s.chat.plan(ctx, query, "", specialty)
		}
		result.Plan = &plan

		items := s.chat.retrieve(ctx, store, &plan, specialty)
		if in.Limit > 0 && len(items) > in.Limit {
			items = items[:in.Limit]
		}
		result.Items = toReferences(items)

	default:
		return nil, domain.ErrInvalidSearchMode
	}

	return result, nil
}
