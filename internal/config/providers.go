package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

// ProviderEntry is one provider's topology-level settings — everything
// about a provider that isn't a secret. Secrets stay in env vars/Config,
// per the teacher's own split between checked-in settings and
// environment-supplied credentials.
type ProviderEntry struct {
	Model      string            `mapstructure:"model"`
	Timeout    string            `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	Custom     map[string]string `mapstructure:"custom"`
}

// KindTopology is one ServiceKind's default provider, fallback order, and
// per-provider settings.
type KindTopology struct {
	Default      string                   `mapstructure:"default"`
	FallbackChain []string                `mapstructure:"fallback_chain"`
	Providers    map[string]ProviderEntry `mapstructure:"providers"`
}

// ProvidersConfig is the full providers.yaml document: one KindTopology per
// ServiceKind. Kept separate from Config, which carries only secrets and
// server-level settings the teacher's own config.go already modeled.
type ProvidersConfig struct {
	Text   KindTopology `mapstructure:"text"`
	Image  KindTopology `mapstructure:"image"`
	Speech KindTopology `mapstructure:"speech"`
	Video  KindTopology `mapstructure:"video"`
}

func (pc *ProvidersConfig) topologyFor(kind contracts.ServiceKind) KindTopology {
	switch kind {
	case contracts.KindText:
		return pc.Text
	case contracts.KindImage:
		return pc.Image
	case contracts.KindSpeech:
		return pc.Speech
	case contracts.KindVideo:
		return pc.Video
	default:
		return KindTopology{}
	}
}

// FallbackChain returns the configured fallback order for kind as
// []contracts.ProviderID, falling back to a single-element chain built
// from Default when no explicit chain is set.
func (pc *ProvidersConfig) FallbackChain(kind contracts.ServiceKind) []contracts.ProviderID {
	topo := pc.topologyFor(kind)
	if len(topo.FallbackChain) > 0 {
		chain := make([]contracts.ProviderID, len(topo.FallbackChain))
		for i, id := range topo.FallbackChain {
			chain[i] = contracts.ProviderID(id)
		}
		return chain
	}
	if topo.Default != "" {
		return []contracts.ProviderID{contracts.ProviderID(topo.Default)}
	}
	return nil
}

// ProviderSettings returns the named provider's topology entry for kind,
// or the zero value when unconfigured (every field then takes the
// provider adapter's own default).
func (pc *ProvidersConfig) ProviderSettings(kind contracts.ServiceKind, provider contracts.ProviderID) ProviderEntry {
	return pc.topologyFor(kind).Providers[string(provider)]
}

// LoadProviders reads a providers.yaml-shaped document from path via
// viper, the layered-config library lookatitude-beluga-ai depends on for
// the same "checked-in document describing pluggable backends" shape this
// module needs for its provider fallback topology.
func LoadProviders(path string) (*ProvidersConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read providers config %s: %w", path, err)
	}

	var pc ProvidersConfig
	if err := v.Unmarshal(&pc); err != nil {
		return nil, fmt.Errorf("unmarshal providers config: %w", err)
	}
	return &pc, nil
}
