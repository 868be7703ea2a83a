package anthropictext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestNew_MissingAPIKeyReturnsConfigMissing(t *testing.T) {
	_, err := New(contracts.ServiceConfig{})
	require.Error(t, err)
}

func TestNew_DefaultsModelAndProvider(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "sk-ant-test"}})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, defaultModel, s.model)
	assert.Equal(t, contracts.ProviderID("anthropic"), s.ProviderID())
}

func TestEstimateCost_FallsBackToDefaultMaxTokens(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "sk-ant-test"}})
	s := svc.(*Service)
	cost := s.EstimateCost(contracts.TextRequest{Prompt: "hi"})
	assert.Greater(t, cost, 0.0)
}
