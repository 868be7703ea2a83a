package openaitext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestNew_MissingAPIKeyReturnsConfigMissing(t *testing.T) {
	_, err := New(contracts.ServiceConfig{})
	require.Error(t, err)
}

func TestNew_DefaultsModelWhenUnset(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "sk-test"}})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, defaultModel, s.model)
}

func TestNew_DefaultsProviderIDToOpenAI(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "sk-test"}})
	require.NoError(t, err)
	s := svc.(contracts.TextService)
	assert.Equal(t, contracts.ProviderID("openai"), s.ProviderID())
}

func TestEstimateCost_UsesMaxTokensWhenProvided(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "sk-test"}})
	s := svc.(*Service)
	cost := s.EstimateCost(contracts.TextRequest{Prompt: "hi", MaxTokens: 1000})
	assert.InDelta(t, costPerThousandTokens, cost, 0.0001)
}

func TestTranscribeAudio_MissingFileIsAssetCorrupt(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "sk-test"}})
	s := svc.(*Service)
	_, err := s.TranscribeAudio(context.Background(), "/no/such/audio.mp3", "en")
	require.Error(t, err)
}
