package veovideo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestBuildVeoPrompt_IncludesStyleAndNegativePrompt(t *testing.T) {
	p := buildVeoPrompt(contracts.VideoRequest{
		Prompt:         "a ship sailing",
		Style:          "watercolor",
		NegativePrompt: "no text",
	})
	assert.Contains(t, p, "a ship sailing")
	assert.Contains(t, p, "watercolor")
	assert.Contains(t, p, "no text")
}

func TestBuildVeoPrompt_DefaultsStyleLineWhenUnset(t *testing.T) {
	p := buildVeoPrompt(contracts.VideoRequest{Prompt: "a ship sailing"})
	assert.Contains(t, p, "hyperrealistic painting style")
}

func TestCapabilities_ReportsMaxDurationAndResolutions(t *testing.T) {
	s := &Service{providerID: "veo"}
	caps := s.Capabilities()
	assert.Equal(t, maxDuration, caps.MaxDuration)
	assert.Contains(t, caps.SupportedResolutions, "4k")
	assert.False(t, caps.SupportsAudio)
}

func TestEstimateCost_DefaultsToMaxDurationWhenUnset(t *testing.T) {
	s := &Service{providerID: "veo"}
	cost := s.EstimateCost(contracts.VideoRequest{})
	assert.Equal(t, maxDuration*0.50, cost)
}

func TestCheckStatus_UnknownJobIDIsInvalidRequest(t *testing.T) {
	s := &Service{providerID: "veo", pending: make(map[string]*pendingOperation)}
	_, err := s.CheckStatus(context.Background(), "does-not-exist")
	require.Error(t, err)
}
