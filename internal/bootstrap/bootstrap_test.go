package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/config"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
	"github.com/faceless-engine/synthesizer/internal/registry"
)

func sampleConfig() *config.Config {
	return &config.Config{
		OpenAIKey:         "sk-openai",
		AnthropicKey:      "sk-anthropic",
		GeminiKey:         "sk-gemini",
		ElevenLabsKey:     "sk-eleven",
		ElevenLabsVoiceID: "voice-1",
		XAIEnabled:        true,
		XAIAPIKey:         "sk-xai",
	}
}

func sampleProviders() *config.ProvidersConfig {
	return &config.ProvidersConfig{
		Text: config.KindTopology{
			Default:       "openai",
			FallbackChain: []string{"openai", "anthropic", "bedrock", "ollama"},
			Providers: map[string]config.ProviderEntry{
				"openai": {Model: "gpt-4o-mini", Timeout: "30s", MaxRetries: 2},
			},
		},
		Image: config.KindTopology{
			Default: "geminiimage",
			Providers: map[string]config.ProviderEntry{
				"geminiimage": {Model: "gemini-2.5-flash-image", Timeout: "60s"},
			},
		},
		Speech: config.KindTopology{
			Default:       "elevenlabstts",
			FallbackChain: []string{"elevenlabstts", "cartesiatts"},
		},
		Video: config.KindTopology{
			Default:       "xaivideo",
			FallbackChain: []string{"xaivideo", "veovideo"},
		},
	}
}

func TestServiceConfig_SetsProviderModelAndCredentials(t *testing.T) {
	entry := config.ProviderEntry{Model: "gpt-4o-mini", Timeout: "30s", MaxRetries: 2, Custom: map[string]string{"base_url": "https://x"}}
	cfg := serviceConfig("openai", entry, "sk-test")

	assert.Equal(t, contracts.ProviderID("openai"), cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "https://x", cfg.Custom["base_url"])
	require.Equal(t, "sk-test", cfg.Credentials.Token)
	assert.Equal(t, contracts.AuthAPIKey, cfg.Credentials.Type)
}

func TestServiceConfig_NoTokenLeavesCredentialsZero(t *testing.T) {
	cfg := serviceConfig("bedrock", config.ProviderEntry{}, "")
	assert.Empty(t, cfg.Credentials.Token)
}

func TestServiceConfig_UnparseableTimeoutLeavesZero(t *testing.T) {
	cfg := serviceConfig("ollama", config.ProviderEntry{Timeout: "not-a-duration"}, "")
	assert.Zero(t, cfg.Timeout)
}

func TestRegisterText_RegistersAllFourProvidersWhenKeysSet(t *testing.T) {
	manager := registry.NewServiceManager()
	cfg := sampleConfig()
	providers := sampleProviders()

	require.NoError(t, registerText(manager, cfg, providers))

	ids := manager.AvailableProviders(contracts.KindText)
	assert.Contains(t, ids, contracts.ProviderID("openai"))
	assert.Contains(t, ids, contracts.ProviderID("anthropic"))
	assert.Contains(t, ids, contracts.ProviderID("bedrock"))
	assert.Contains(t, ids, contracts.ProviderID("ollama"))
}

func TestRegisterText_SkipsAnthropicWithoutKey(t *testing.T) {
	manager := registry.NewServiceManager()
	cfg := sampleConfig()
	cfg.AnthropicKey = ""
	providers := sampleProviders()

	require.NoError(t, registerText(manager, cfg, providers))

	ids := manager.AvailableProviders(contracts.KindText)
	assert.NotContains(t, ids, contracts.ProviderID("anthropic"))
}

func TestRegisterImage_FailsWithoutGeminiKey(t *testing.T) {
	manager := registry.NewServiceManager()
	cfg := sampleConfig()
	cfg.GeminiKey = ""
	providers := sampleProviders()

	err := registerImage(manager, cfg, providers)
	assert.Error(t, err)
}

func TestRegisterSpeech_FailsWithoutAnyTTSKey(t *testing.T) {
	manager := registry.NewServiceManager()
	cfg := sampleConfig()
	cfg.ElevenLabsKey = ""
	cfg.CartesiaKey = ""
	providers := sampleProviders()

	err := registerSpeech(manager, cfg, providers)
	assert.Error(t, err)
}

func TestRegisterSpeech_PrefersElevenLabsAsDefault(t *testing.T) {
	manager := registry.NewServiceManager()
	cfg := sampleConfig()
	cfg.CartesiaKey = "sk-cartesia"
	providers := sampleProviders()

	require.NoError(t, registerSpeech(manager, cfg, providers))
	ids := manager.AvailableProviders(contracts.KindSpeech)
	assert.Contains(t, ids, contracts.ProviderID("elevenlabstts"))
	assert.Contains(t, ids, contracts.ProviderID("cartesiatts"))

	svc, err := manager.GetSpeech("")
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("elevenlabstts"), svc.ProviderID())
}

func TestRegisterVideo_NoProvidersRegisteredWhenBothDisabled(t *testing.T) {
	manager := registry.NewServiceManager()
	cfg := sampleConfig()
	cfg.XAIEnabled = false
	cfg.VeoEnabled = false
	providers := sampleProviders()

	require.NoError(t, registerVideo(manager, cfg, providers))
	assert.Empty(t, manager.AvailableProviders(contracts.KindVideo))
}

func TestFirstNonEmpty_ReturnsFirstSetValue(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
