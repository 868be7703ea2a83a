package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const sampleProvidersYAML = `
text:
  default: openai
  fallback_chain: [openai, anthropic, bedrock, ollama]
  providers:
    openai:
      model: gpt-4o-mini
      timeout: 30s
      max_retries: 2
    anthropic:
      model: claude-3-5-haiku-latest

image:
  default: geminiimage

speech:
  default: elevenlabstts
  fallback_chain: [elevenlabstts, cartesiatts]
`

func writeTempProvidersYAML(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProvidersYAML), 0o644))
	return path
}

func TestLoadProviders_ParsesFallbackChainsAndSettings(t *testing.T) {
	pc, err := LoadProviders(writeTempProvidersYAML(t))
	require.NoError(t, err)

	assert.Equal(t,
		[]contracts.ProviderID{"openai", "anthropic", "bedrock", "ollama"},
		pc.FallbackChain(contracts.KindText),
	)

	settings := pc.ProviderSettings(contracts.KindText, "openai")
	assert.Equal(t, "gpt-4o-mini", settings.Model)
	assert.Equal(t, 2, settings.MaxRetries)
}

func TestFallbackChain_FallsBackToSingleDefaultWhenChainUnset(t *testing.T) {
	pc, err := LoadProviders(writeTempProvidersYAML(t))
	require.NoError(t, err)

	assert.Equal(t, []contracts.ProviderID{"geminiimage"}, pc.FallbackChain(contracts.KindImage))
}

func TestFallbackChain_UnconfiguredKindReturnsNil(t *testing.T) {
	pc := &ProvidersConfig{}
	assert.Nil(t, pc.FallbackChain(contracts.KindVideo))
}

func TestLoadProviders_MissingFileReturnsError(t *testing.T) {
	_, err := LoadProviders("/no/such/providers.yaml")
	require.Error(t, err)
}
