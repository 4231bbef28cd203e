package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		input    string
		expected Intent
	}{
		{"information-request", IntentInformation},
		{"정보요청", IntentInformation},
		{"파트너사목록", IntentPartnerListing},
		{"절차안내", IntentProcedure},
		{"비용", IntentCost},
		{"체크리스트", IntentChecklist},
		{"심화", IntentAdvanced},
		{"off_topic", IntentOffTopic},
		{"OFF-TOPIC", IntentOffTopic},
		{"something else", IntentInformation},
		{"", IntentInformation},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseIntent(tt.input))
		})
	}
}

func TestParseSearchStrategy(t *testing.T) {
	assert.Equal(t, StrategyExact, ParseSearchStrategy("EXACT"))
	assert.Equal(t, StrategySemantic, ParseSearchStrategy("semantic"))
	assert.Equal(t, StrategyBroad, ParseSearchStrategy("broad"))
	assert.Equal(t, StrategyBroad, ParseSearchStrategy("fuzzy"))
}

func TestQueryPlan_Sentinels(t *testing.T) {
	p := QueryPlan{Topic: "기타", TargetCategory: "all", TargetSubCategory: ""}
	assert.False(t, p.HasTopic())
	assert.False(t, p.HasTargetCategory())
	assert.False(t, p.HasTargetSubCategory())

	p = QueryPlan{Topic: "signage", TargetCategory: "partners", TargetSubCategory: "signage"}
	assert.True(t, p.HasTopic())
	assert.True(t, p.HasTargetCategory())
	assert.True(t, p.HasTargetSubCategory())
}

func TestQueryPlan_Normalize(t *testing.T) {
	var p QueryPlan
	p.Normalize()

	assert.Equal(t, IntentInformation, p.Intent)
	assert.Equal(t, TopicOther, p.Topic)
	assert.Equal(t, CategoryAll, p.TargetCategory)
	assert.Equal(t, CategoryAll, p.TargetSubCategory)
	assert.Equal(t, StrategyBroad, p.SearchStrategy)
}

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan("밤에 간판 잘 보이게", []string{"밤에", "간판", "야간", "심야"})

	require.Equal(t, []string{"밤에", "간판", "보이게"}, plan.CoreKeywords)
	assert.Equal(t, []string{"야간", "심야"}, plan.ExpandedKeywords)
	assert.Equal(t, IntentInformation, plan.Intent)
	assert.Equal(t, TopicOther, plan.Topic)
	assert.Equal(t, StrategyBroad, plan.SearchStrategy)
	assert.False(t, plan.HasTopic())
	assert.NotNil(t, plan.ExcludeKeywords)
}

func TestUserSpecialty_Matches(t *testing.T) {
	s := &UserSpecialty{Code: "dermatology", Label: "피부과"}

	assert.True(t, s.Matches("Dermatology"))
	assert.True(t, s.Matches("피부과"))
	assert.False(t, s.Matches("치과"))
	assert.False(t, s.Matches(""))
	assert.True(t, s.MatchesAny([]string{"치과", "피부과"}))

	var none *UserSpecialty
	assert.False(t, none.Matches("dermatology"))
}

func TestSpecialtyCatalog_Lookup(t *testing.T) {
	s, err := DefaultSpecialties.Lookup("pain")
	require.NoError(t, err)
	assert.Equal(t, "통증의학과", s.Label)

	s, err = DefaultSpecialties.Lookup("치과")
	require.NoError(t, err)
	assert.Equal(t, "dental", s.Code)

	_, err = DefaultSpecialties.Lookup("astrology")
	assert.ErrorIs(t, err, ErrUnknownSpecialty)
}
