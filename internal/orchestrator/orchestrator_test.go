package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/logger"
	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
	"github.com/faceless-engine/synthesizer/internal/registry"
)

type scriptedText struct {
	id    contracts.ProviderID
	calls *[]contracts.ProviderID
	err   error
}

func (s *scriptedText) Execute(ctx context.Context, req contracts.TextRequest) (contracts.TextResponse, error) {
	*s.calls = append(*s.calls, s.id)
	if s.err != nil {
		return contracts.TextResponse{}, s.err
	}
	return contracts.TextResponse{Text: "done", Provider: s.id}, nil
}
func (s *scriptedText) ExecuteStructured(context.Context, string, map[string]any, any) error { return nil }
func (s *scriptedText) Chat(context.Context, []contracts.ChatMessage, contracts.ChatOptions) (contracts.TextResponse, error) {
	return contracts.TextResponse{}, nil
}
func (s *scriptedText) EstimateCost(contracts.TextRequest) float64 { return 0 }
func (s *scriptedText) ProviderID() contracts.ProviderID           { return s.id }

func newOrch(t *testing.T, providers map[contracts.ProviderID]error) (*Orchestrator, *[]contracts.ProviderID) {
	calls := &[]contracts.ProviderID{}
	m := registry.NewServiceManager()
	for id, err := range providers {
		id, err := id, err
		m.Register(contracts.KindText, id, contracts.ServiceConfig{}, func(contracts.ServiceConfig) (any, error) {
			return &scriptedText{id: id, calls: calls, err: err}, nil
		})
	}
	return New(m, logger.NewNop()), calls
}

func TestFallback_FirstSucceeds_NoFurtherCalls(t *testing.T) {
	orch, calls := newOrch(t, map[contracts.ProviderID]error{
		"A": nil,
		"B": nil,
	})
	orch.SetFallbackChain(contracts.KindText, []contracts.ProviderID{"A", "B"})

	res, err := orch.ExecuteText(context.Background(), func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(context.Background(), contracts.TextRequest{Prompt: "x"})
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("A"), res.ProviderUsed)
	assert.Equal(t, []contracts.ProviderID{"A"}, *calls)
}

func TestFallback_TransientFallsThrough(t *testing.T) {
	orch, calls := newOrch(t, map[contracts.ProviderID]error{
		"A": pipelineerr.New(pipelineerr.Transient, "speech", errors.New("timeout")),
		"B": nil,
	})
	orch.SetFallbackChain(contracts.KindText, []contracts.ProviderID{"A", "B"})

	res, err := orch.ExecuteText(context.Background(), func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(context.Background(), contracts.TextRequest{Prompt: "x"})
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("B"), res.ProviderUsed)
	assert.Equal(t, []contracts.ProviderID{"A", "B"}, *calls)
}

func TestFallback_NonTransientShortCircuits(t *testing.T) {
	orch, calls := newOrch(t, map[contracts.ProviderID]error{
		"A": pipelineerr.New(pipelineerr.InvalidRequest, "speech", errors.New("bad arg")),
		"B": nil,
	})
	orch.SetFallbackChain(contracts.KindText, []contracts.ProviderID{"A", "B"})

	_, err := orch.ExecuteText(context.Background(), func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(context.Background(), contracts.TextRequest{Prompt: "x"})
	})
	require.Error(t, err)
	var pe *pipelineerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipelineerr.InvalidRequest, pe.Kind)
	// B must never be invoked: only A's Execute call is recorded.
	assert.Equal(t, []contracts.ProviderID{"A"}, *calls)
}

func TestFallback_ChainExhausted_AllFailed(t *testing.T) {
	orch, _ := newOrch(t, map[contracts.ProviderID]error{
		"A": pipelineerr.New(pipelineerr.Transient, "speech", errors.New("down")),
		"B": pipelineerr.New(pipelineerr.Transient, "speech", errors.New("also down")),
	})
	orch.SetFallbackChain(contracts.KindText, []contracts.ProviderID{"A", "B"})

	_, err := orch.ExecuteText(context.Background(), func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(context.Background(), contracts.TextRequest{Prompt: "x"})
	})
	require.Error(t, err)
	var pe *pipelineerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipelineerr.AllFailed, pe.Kind)
	assert.Contains(t, pe.Error(), "also down")
}

func TestFallback_AllPolicyBlocked_AllRefused(t *testing.T) {
	orch, _ := newOrch(t, map[contracts.ProviderID]error{
		"A": pipelineerr.New(pipelineerr.PolicyBlocked, "image", errors.New("refused")),
		"B": pipelineerr.New(pipelineerr.PolicyBlocked, "image", errors.New("refused too")),
	})
	orch.SetFallbackChain(contracts.KindText, []contracts.ProviderID{"A", "B"})

	_, err := orch.ExecuteText(context.Background(), func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(context.Background(), contracts.TextRequest{Prompt: "x"})
	})
	require.Error(t, err)
	var pe *pipelineerr.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pipelineerr.AllRefused, pe.Kind)
}

func TestFallback_NoChainConfigured_UsesDefault(t *testing.T) {
	orch, calls := newOrch(t, map[contracts.ProviderID]error{
		"default-provider": nil,
	})
	// No SetFallbackChain call: falls back to "" which resolves through the
	// registry's configured default provider for the kind.
	m := registry.NewServiceManager()
	m.Register(contracts.KindText, "default-provider", contracts.ServiceConfig{}, func(contracts.ServiceConfig) (any, error) {
		return &scriptedText{id: "default-provider", calls: calls}, nil
	})
	m.SetDefault(contracts.KindText, "default-provider")
	orch = New(m, logger.NewNop())

	res, err := orch.ExecuteText(context.Background(), func(s contracts.TextService) (contracts.TextResponse, error) {
		return s.Execute(context.Background(), contracts.TextRequest{Prompt: "x"})
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.ProviderID("default-provider"), res.ProviderUsed)
}
