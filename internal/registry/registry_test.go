package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

type fakeText struct {
	id      contracts.ProviderID
	built   int
}

func (f *fakeText) Execute(ctx context.Context, req contracts.TextRequest) (contracts.TextResponse, error) {
	return contracts.TextResponse{Text: "ok", Provider: f.id}, nil
}
func (f *fakeText) ExecuteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error {
	return nil
}
func (f *fakeText) Chat(ctx context.Context, messages []contracts.ChatMessage, opts contracts.ChatOptions) (contracts.TextResponse, error) {
	return contracts.TextResponse{Provider: f.id}, nil
}
func (f *fakeText) EstimateCost(req contracts.TextRequest) float64 { return 0 }
func (f *fakeText) ProviderID() contracts.ProviderID               { return f.id }

func TestGetCachesHandle(t *testing.T) {
	m := NewServiceManager()
	builds := 0
	m.Register(contracts.KindText, "fake", contracts.ServiceConfig{}, func(cfg contracts.ServiceConfig) (any, error) {
		builds++
		return &fakeText{id: "fake"}, nil
	})

	svc1, err := m.GetText("fake")
	require.NoError(t, err)
	svc2, err := m.GetText("fake")
	require.NoError(t, err)

	assert.Same(t, svc1, svc2)
	assert.Equal(t, 1, builds)
}

func TestGetUsesDefaultWhenProviderEmpty(t *testing.T) {
	m := NewServiceManager()
	m.Register(contracts.KindText, "primary", contracts.ServiceConfig{}, func(cfg contracts.ServiceConfig) (any, error) {
		return &fakeText{id: "primary"}, nil
	})
	m.SetDefault(contracts.KindText, "primary")

	svc, err := m.GetText("")
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("primary"), svc.ProviderID())
}

func TestGetNoProvider(t *testing.T) {
	m := NewServiceManager()
	_, err := m.GetText("missing")
	require.Error(t, err)

	var pe *pipelineerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipelineerr.NoProvider, pe.Kind)
}

func TestRegisterReplacesAndEvictsCache(t *testing.T) {
	m := NewServiceManager()
	m.Register(contracts.KindText, "p", contracts.ServiceConfig{}, func(cfg contracts.ServiceConfig) (any, error) {
		return &fakeText{id: "p-v1"}, nil
	})
	first, err := m.GetText("p")
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("p-v1"), first.ProviderID())

	m.Register(contracts.KindText, "p", contracts.ServiceConfig{}, func(cfg contracts.ServiceConfig) (any, error) {
		return &fakeText{id: "p-v2"}, nil
	})
	second, err := m.GetText("p")
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("p-v2"), second.ProviderID())
}

func TestAvailableProviders(t *testing.T) {
	m := NewServiceManager()
	m.Register(contracts.KindText, "a", contracts.ServiceConfig{}, func(contracts.ServiceConfig) (any, error) { return &fakeText{id: "a"}, nil })
	m.Register(contracts.KindText, "b", contracts.ServiceConfig{}, func(contracts.ServiceConfig) (any, error) { return &fakeText{id: "b"}, nil })
	m.Register(contracts.KindImage, "c", contracts.ServiceConfig{}, func(contracts.ServiceConfig) (any, error) { return nil, nil })

	ids := m.AvailableProviders(contracts.KindText)
	assert.ElementsMatch(t, []contracts.ProviderID{"a", "b"}, ids)
}
