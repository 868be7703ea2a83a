// Package bootstrap is the composition root: it turns a loaded Config and
// ProvidersConfig into a wired Stack of registry, orchestrator, and
// pipeline.Driver, the way cmd/api/main.go used to construct
// services.NewOpenAIService/NewGeminiService/... directly. Grounded on
// that same main.go wiring block, generalized from nine hand-picked
// concrete services to a registry populated from providers.yaml.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/faceless-engine/synthesizer/internal/audiogate"
	"github.com/faceless-engine/synthesizer/internal/compositor"
	"github.com/faceless-engine/synthesizer/internal/config"
	"github.com/faceless-engine/synthesizer/internal/logger"
	"github.com/faceless-engine/synthesizer/internal/orchestrator"
	"github.com/faceless-engine/synthesizer/internal/pipeline"
	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/anthropictext"
	"github.com/faceless-engine/synthesizer/internal/providers/bedrocktext"
	"github.com/faceless-engine/synthesizer/internal/providers/cartesiatts"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
	"github.com/faceless-engine/synthesizer/internal/providers/elevenlabstts"
	"github.com/faceless-engine/synthesizer/internal/providers/geminiimage"
	"github.com/faceless-engine/synthesizer/internal/providers/ollamatext"
	"github.com/faceless-engine/synthesizer/internal/providers/openaitext"
	"github.com/faceless-engine/synthesizer/internal/providers/veovideo"
	"github.com/faceless-engine/synthesizer/internal/providers/xaivideo"
	"github.com/faceless-engine/synthesizer/internal/registry"
	"github.com/faceless-engine/synthesizer/internal/syncplanner"
)

// Stack is everything cmd/api needs to drive a pipeline.Driver — built once
// at startup and handed to the worker/API layer.
type Stack struct {
	Manager *registry.ServiceManager
	Driver  *pipeline.Driver
	Log     logger.Logger
}

// Build wires a ServiceManager from cfg/providers, registers every provider
// adapter this module ships, sets fallback chains from providers, and
// constructs the pipeline.Driver those adapters feed.
func Build(cfg *config.Config, providers *config.ProvidersConfig, log logger.Logger) (*Stack, error) {
	manager := registry.NewServiceManager()

	if err := registerText(manager, cfg, providers); err != nil {
		return nil, fmt.Errorf("register text providers: %w", err)
	}
	if err := registerImage(manager, cfg, providers); err != nil {
		return nil, fmt.Errorf("register image providers: %w", err)
	}
	if err := registerSpeech(manager, cfg, providers); err != nil {
		return nil, fmt.Errorf("register speech providers: %w", err)
	}
	if err := registerVideo(manager, cfg, providers); err != nil {
		return nil, fmt.Errorf("register video providers: %w", err)
	}

	orch := newOrchestrator(manager, providers, log)

	gate := audiogate.New()
	strategy := syncplanner.HybridSyncStrategy{
		Strategies: []syncplanner.SyncStrategy{
			syncplanner.VoiceSyncStrategy{},
			syncplanner.BeatSyncStrategy{Detector: syncplanner.BeatDetector{}},
		},
	}

	comp, err := compositor.New("/tmp/synthesizer", "artifacts/sessions")
	if err != nil {
		return nil, fmt.Errorf("build compositor: %w", err)
	}

	transcriber, err := buildTranscriber(cfg, providers)
	if err != nil {
		return nil, fmt.Errorf("build transcriber: %w", err)
	}

	driver := pipeline.New(orch, gate, strategy, comp, transcriber, log)

	return &Stack{Manager: manager, Driver: driver, Log: log}, nil
}

// serviceConfig turns a providers.yaml entry plus a secret token into the
// contracts.ServiceConfig every adapter's New expects. providerKey becomes
// both the registry key and the value the adapter reports from
// ProviderID(), so fallback-chain entries and registered keys always agree.
func serviceConfig(providerKey string, entry config.ProviderEntry, token string) contracts.ServiceConfig {
	cfg := contracts.ServiceConfig{
		Provider:   contracts.ProviderID(providerKey),
		ModelName:  entry.Model,
		MaxRetries: entry.MaxRetries,
		Custom:     entry.Custom,
	}
	if entry.Timeout != "" {
		if d, err := time.ParseDuration(entry.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if token != "" {
		cfg.Credentials = contracts.Credentials{Token: token, Type: contracts.AuthAPIKey}
	}
	return cfg
}

func registerText(manager *registry.ServiceManager, cfg *config.Config, providers *config.ProvidersConfig) error {
	topo := providers.Text

	if cfg.OpenAIKey != "" {
		entry := providers.ProviderSettings(contracts.KindText, "openai")
		manager.Register(contracts.KindText, "openai", serviceConfig("openai", entry, cfg.OpenAIKey), openaitext.New)
	}
	if cfg.AnthropicKey != "" {
		entry := providers.ProviderSettings(contracts.KindText, "anthropic")
		manager.Register(contracts.KindText, "anthropic", serviceConfig("anthropic", entry, cfg.AnthropicKey), anthropictext.New)
	}
	// Bedrock authenticates via the AWS default credential chain, not a
	// bearer token, so it's always registered; a missing AWS config only
	// surfaces when the orchestrator actually dispatches to it.
	entry := providers.ProviderSettings(contracts.KindText, "bedrock")
	manager.Register(contracts.KindText, "bedrock", serviceConfig("bedrock", entry, ""), bedrocktext.New)

	// Ollama talks to a local model server; no credential required.
	entry = providers.ProviderSettings(contracts.KindText, "ollama")
	manager.Register(contracts.KindText, "ollama", serviceConfig("ollama", entry, ""), ollamatext.New)

	if topo.Default != "" {
		manager.SetDefault(contracts.KindText, contracts.ProviderID(topo.Default))
	} else if cfg.OpenAIKey != "" {
		manager.SetDefault(contracts.KindText, "openai")
	}
	return nil
}

func registerImage(manager *registry.ServiceManager, cfg *config.Config, providers *config.ProvidersConfig) error {
	if cfg.GeminiKey == "" {
		return pipelineerr.New(pipelineerr.ConfigMissing, "bootstrap", fmt.Errorf("GEMINI_API_KEY is required for image generation"))
	}
	entry := providers.ProviderSettings(contracts.KindImage, "geminiimage")
	if entry.Custom == nil {
		entry.Custom = map[string]string{}
	}
	if cfg.GeminiStyleReferenceImage != "" {
		entry.Custom["style_reference_path"] = cfg.GeminiStyleReferenceImage
	}
	manager.Register(contracts.KindImage, "geminiimage", serviceConfig("geminiimage", entry, cfg.GeminiKey), geminiimage.New)
	manager.SetDefault(contracts.KindImage, "geminiimage")
	return nil
}

func registerSpeech(manager *registry.ServiceManager, cfg *config.Config, providers *config.ProvidersConfig) error {
	registered := false

	if cfg.ElevenLabsKey != "" {
		entry := providers.ProviderSettings(contracts.KindSpeech, "elevenlabstts")
		if entry.Custom == nil {
			entry.Custom = map[string]string{}
		}
		if cfg.ElevenLabsVoiceID != "" {
			entry.Custom["voice_id"] = cfg.ElevenLabsVoiceID
		}
		manager.Register(contracts.KindSpeech, "elevenlabstts", serviceConfig("elevenlabstts", entry, cfg.ElevenLabsKey), elevenlabstts.New)
		manager.SetDefault(contracts.KindSpeech, "elevenlabstts")
		registered = true
	}
	if cfg.CartesiaKey != "" {
		entry := providers.ProviderSettings(contracts.KindSpeech, "cartesiatts")
		if entry.Custom == nil {
			entry.Custom = map[string]string{}
		}
		if cfg.CartesiaURL != "" {
			entry.Custom["base_url"] = cfg.CartesiaURL
		}
		if cfg.CartesiaVoiceID != "" {
			entry.Custom["voice_id"] = cfg.CartesiaVoiceID
		}
		manager.Register(contracts.KindSpeech, "cartesiatts", serviceConfig("cartesiatts", entry, cfg.CartesiaKey), cartesiatts.New)
		if !registered {
			manager.SetDefault(contracts.KindSpeech, "cartesiatts")
		}
		registered = true
	}
	if !registered {
		return pipelineerr.New(pipelineerr.ConfigMissing, "bootstrap", fmt.Errorf("either ELEVENLABS_API_KEY or CARTESIA_API_KEY is required for speech"))
	}
	return nil
}

func registerVideo(manager *registry.ServiceManager, cfg *config.Config, providers *config.ProvidersConfig) error {
	if cfg.XAIEnabled && cfg.XAIAPIKey != "" {
		entry := providers.ProviderSettings(contracts.KindVideo, "xaivideo")
		manager.Register(contracts.KindVideo, "xaivideo", serviceConfig("xaivideo", entry, cfg.XAIAPIKey), xaivideo.New)
		manager.SetDefault(contracts.KindVideo, "xaivideo")
	}
	if cfg.VeoEnabled {
		entry := providers.ProviderSettings(contracts.KindVideo, "veovideo")
		entry.Model = firstNonEmpty(cfg.VeoModel, entry.Model)
		manager.Register(contracts.KindVideo, "veovideo", serviceConfig("veovideo", entry, cfg.GeminiKey), veovideo.New)
		if !cfg.XAIEnabled {
			manager.SetDefault(contracts.KindVideo, "veovideo")
		}
	}
	// No video provider registered is a valid topology: the pipeline
	// treats video generation failure as non-fatal and falls back to
	// Ken Burns motion over the still image.
	return nil
}

func newOrchestrator(manager *registry.ServiceManager, providers *config.ProvidersConfig, log logger.Logger) *orchestrator.Orchestrator {
	orch := orchestrator.New(manager, log)
	orch.SetFallbackChain(contracts.KindText, providers.FallbackChain(contracts.KindText))
	orch.SetFallbackChain(contracts.KindImage, providers.FallbackChain(contracts.KindImage))
	orch.SetFallbackChain(contracts.KindSpeech, providers.FallbackChain(contracts.KindSpeech))
	orch.SetFallbackChain(contracts.KindVideo, providers.FallbackChain(contracts.KindVideo))
	return orch
}

func buildTranscriber(cfg *config.Config, providers *config.ProvidersConfig) (pipeline.TranscriberFunc, error) {
	if cfg.OpenAIKey == "" {
		return nil, nil
	}
	entry := providers.ProviderSettings(contracts.KindText, "openai")
	svc, err := openaitext.New(serviceConfig("openai", entry, cfg.OpenAIKey))
	if err != nil {
		return nil, fmt.Errorf("build transcription service: %w", err)
	}
	transcriber := svc.(*openaitext.Service)
	return transcriber.TranscribeAudio, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
