package retrieval

import (
	"testing"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/stretchr/testify/require"
)

// signageItems is the four-item balancing fixture: a signage tips article,
// a signage partner, an interior partner and a plain Q&A about signage.
func signageItems() []domain.KnowledgeItem {
	return []domain.KnowledgeItem{
		{
			ID:         "item1_tips",
			Provenance: domain.ProvenanceKnowledgeBase,
			Prompt:     "Signage visibility tips",
			Body:       "To stay visible from far away at night, LED backlit signage works best.",
			Tags:       domain.Tags{Topic: "signage", DomainArea: "knowledge", CategoryPath: "advanced/signage"},
		},
		{
			ID:         "item2_partner",
			Provenance: domain.ProvenanceKnowledgeBase,
			Prompt:     "DesignCap",
			Body:       "Signage and outdoor advertising vendor. 10 years in business.",
			Tags:       domain.Tags{Topic: "signage", DomainArea: "partners", CategoryPath: "partners/signage"},
		},
		{
			ID:         "item3_interior",
			Provenance: domain.ProvenanceKnowledgeBase,
			Prompt:     "MooA Design",
			Body:       "Interior vendor with many pain clinic projects.",
			Tags:       domain.Tags{Topic: "interior", DomainArea: "partners", CategoryPath: "partners/interior"},
		},
		{
			ID:         "item4_qa",
			Provenance: domain.ProvenanceQA,
			Prompt:     "I want my signage to be visible at night",
			Body:       "Install a brightness sensor so the sign lights up automatically after dark.",
			Tags:       domain.Tags{DomainArea: "signage"},
		},
	}
}

func signagePlan() *domain.QueryPlan {
	plan := &domain.QueryPlan{
		Intent:       domain.IntentInformation,
		Topic:        "signage",
		CoreKeywords: []string{"signage", "night", "visible"},
	}
	plan.Normalize()
	return plan
}

// koreanSignageItems is the same fixture in the corpus's own language.
func koreanSignageItems() []domain.KnowledgeItem {
	return []domain.KnowledgeItem{
		{
			ID:         "item1_tips",
			Provenance: domain.ProvenanceKnowledgeBase,
			Prompt:     "간판 시인성 높이는 팁",
			Body:       "밤에 멀리서도 잘 보이게 하려면 LED 백릿 방식이 유리하며, 채널형 글자보다는 일체형이 깔끔합니다.",
			Tags:       domain.Tags{Topic: "간판", DomainArea: "지식", CategoryPath: "advanced/signage"},
		},
		{
			ID:         "item2_partner",
			Provenance: domain.ProvenanceKnowledgeBase,
			Prompt:     "디자인캐프",
			Body:       "간판 및 옥외광고물 전문 업체. 10년 경력의 연출 전문가 보유.",
			Tags:       domain.Tags{Topic: "간판", DomainArea: "업체", CategoryPath: "partners/signage"},
		},
		{
			ID:         "item3_interior",
			Provenance: domain.ProvenanceKnowledgeBase,
			Prompt:     "무아디자인",
			Body:       "인테리어 전문 업체. 통증의학과 시공 사례 다수.",
			Tags:       domain.Tags{Topic: "인테리어", DomainArea: "업체", CategoryPath: "partners/interior"},
		},
		{
			ID:         "item4_qa",
			Provenance: domain.ProvenanceQA,
			Prompt:     "밤에도 간판이 잘 보였으면 좋겠어요",
			Body:       "광도(Brightness) 조절이 가능한 센서를 부착하여 어두워지면 자동으로 밝아지게 설정할 수 있습니다.",
			Tags:       domain.Tags{DomainArea: "간판"},
		},
	}
}

func koreanSignagePlan() *domain.QueryPlan {
	plan := &domain.QueryPlan{
		Intent:            domain.ParseIntent("정보요청"),
		Topic:             "간판",
		TargetCategory:    "all",
		TargetSubCategory: "signage",
		CoreKeywords:      []string{"간판", "밤", "잘 보이게"},
		ExpandedKeywords:  []string{"야간", "시인성"},
		SearchStrategy:    domain.StrategySemantic,
	}
	plan.Normalize()
	return plan
}

func newTestStore(t *testing.T, items []domain.KnowledgeItem) *corpus.Store {
	t.Helper()
	store, report := corpus.NewStore(items)
	require.Equal(t, len(items), report.Accepted)
	return store
}

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	scorer, err := NewScorer(nil)
	require.NoError(t, err)
	return scorer
}

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	return NewSelector(newTestScorer(t), nil)
}

func itemIDs(items []domain.ScoredItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.Item.ID
	}
	return ids
}
