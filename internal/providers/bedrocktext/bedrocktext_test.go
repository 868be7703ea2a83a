package bedrocktext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestNew_DefaultsModelIDAndProvider(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, defaultModelID, s.modelID)
	assert.Equal(t, contracts.ProviderID("bedrock"), s.ProviderID())
}

func TestNew_HonorsExplicitModelName(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{ModelName: "anthropic.claude-3-haiku-20240307-v1:0"})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", s.modelID)
}

func TestEstimateCost_FallsBackToDefaultMaxTokens(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{})
	s := svc.(*Service)
	cost := s.EstimateCost(contracts.TextRequest{Prompt: "hi"})
	assert.Greater(t, cost, 0.0)
}
