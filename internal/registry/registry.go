// Package registry implements C1: a registry of (ServiceKind, ProviderID)
// factories that produces and caches live service handles. Grounded on
// original_source's AIServiceFactory (the registration table) and
// AIServiceManager (the cache-by-key + default-provider resolution),
// translated from a module-level singleton into an explicit ServiceManager
// constructed once at process entry and threaded through the session
// context (§9: "global genai-style modules/singletons → ServiceManager
// parameterized by a configuration document").
package registry

import (
	"fmt"
	"sync"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

// Factory constructs a live handle from a ServiceConfig. The returned value
// is expected to be one of contracts.{Text,Image,Speech,Video}Service; it
// is typed as any here because the four kinds share no common interface
// beyond ProviderID().
type Factory func(cfg contracts.ServiceConfig) (any, error)

type key struct {
	kind     contracts.ServiceKind
	provider contracts.ProviderID
}

// ServiceManager is C1. It owns the handle cache exclusively, per §3's
// ownership rule; callers never construct handles directly.
type ServiceManager struct {
	mu        sync.RWMutex
	factories map[key]Factory
	handles   map[key]any
	configs   map[key]contracts.ServiceConfig
	defaults  map[contracts.ServiceKind]contracts.ProviderID
}

func NewServiceManager() *ServiceManager {
	return &ServiceManager{
		factories: make(map[key]Factory),
		handles:   make(map[key]any),
		configs:   make(map[key]contracts.ServiceConfig),
		defaults:  make(map[contracts.ServiceKind]contracts.ProviderID),
	}
}

// Register adds a factory for (kind, provider); a duplicate registration
// replaces the previous one and evicts any cached handle for that key.
func (m *ServiceManager) Register(kind contracts.ServiceKind, provider contracts.ProviderID, cfg contracts.ServiceConfig, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{kind, provider}
	m.factories[k] = f
	m.configs[k] = cfg
	delete(m.handles, k)
}

// SetDefault declares the per-kind default provider used when Get is
// called without an explicit providerID (configuration precedence: explicit
// argument > per-kind default > env-var fallback, the latter being resolved
// before Register/SetDefault are called at composition root).
func (m *ServiceManager) SetDefault(kind contracts.ServiceKind, provider contracts.ProviderID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[kind] = provider
}

// AvailableProviders lists every ProviderID registered for kind.
func (m *ServiceManager) AvailableProviders(kind contracts.ServiceKind) []contracts.ProviderID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []contracts.ProviderID
	for k := range m.factories {
		if k.kind == kind {
			out = append(out, k.provider)
		}
	}
	return out
}

// Get returns the cached handle for (kind, providerID), constructing and
// caching it on first use. An empty providerID resolves to the kind's
// default. NoProvider is returned if nothing is registered; ConfigMissing
// if the factory itself reports missing credentials.
func (m *ServiceManager) Get(kind contracts.ServiceKind, providerID contracts.ProviderID) (any, error) {
	m.mu.RLock()
	if providerID == "" {
		providerID = m.defaults[kind]
	}
	k := key{kind, providerID}
	if h, ok := m.handles[k]; ok {
		m.mu.RUnlock()
		return h, nil
	}
	factory, ok := m.factories[k]
	cfg := m.configs[k]
	m.mu.RUnlock()

	if !ok {
		return nil, pipelineerr.New(pipelineerr.NoProvider, "registry",
			fmt.Errorf("no provider %q registered for kind %q", providerID, kind))
	}

	handle, err := factory(cfg)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "registry", err)
	}

	m.mu.Lock()
	// Single-writer on first insert: re-check under the write lock in case a
	// concurrent caller raced us to construct the same handle.
	if existing, ok := m.handles[k]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.handles[k] = handle
	m.mu.Unlock()
	return handle, nil
}

// GetText/GetImage/GetSpeech/GetVideo are typed convenience wrappers over
// Get, sparing callers a type assertion at every call site.
func (m *ServiceManager) GetText(providerID contracts.ProviderID) (contracts.TextService, error) {
	h, err := m.Get(contracts.KindText, providerID)
	if err != nil {
		return nil, err
	}
	svc, ok := h.(contracts.TextService)
	if !ok {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "registry", fmt.Errorf("handle for %q is not a TextService", providerID))
	}
	return svc, nil
}

func (m *ServiceManager) GetImage(providerID contracts.ProviderID) (contracts.ImageService, error) {
	h, err := m.Get(contracts.KindImage, providerID)
	if err != nil {
		return nil, err
	}
	svc, ok := h.(contracts.ImageService)
	if !ok {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "registry", fmt.Errorf("handle for %q is not an ImageService", providerID))
	}
	return svc, nil
}

func (m *ServiceManager) GetSpeech(providerID contracts.ProviderID) (contracts.SpeechService, error) {
	h, err := m.Get(contracts.KindSpeech, providerID)
	if err != nil {
		return nil, err
	}
	svc, ok := h.(contracts.SpeechService)
	if !ok {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "registry", fmt.Errorf("handle for %q is not a SpeechService", providerID))
	}
	return svc, nil
}

func (m *ServiceManager) GetVideo(providerID contracts.ProviderID) (contracts.VideoService, error) {
	h, err := m.Get(contracts.KindVideo, providerID)
	if err != nil {
		return nil, err
	}
	svc, ok := h.(contracts.VideoService)
	if !ok {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "registry", fmt.Errorf("handle for %q is not a VideoService", providerID))
	}
	return svc, nil
}
