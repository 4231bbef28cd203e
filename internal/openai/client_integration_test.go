//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Plan_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClientWithConfig(Config{APIKey: apiKey, BaseURL: os.Getenv("OPENAI_BASE_URL")}, nil)
	planner, err := NewPlanner(client)
	require.NoError(t, err)

	res, err := planner.Plan(context.Background(), PlanRequest{Query: "인테리어 파트너사 추천해줘"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Plan.CoreKeywords)
	assert.NotEmpty(t, res.Model)
}
