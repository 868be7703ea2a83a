package ollamatext

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestNew_DefaultsEndpointAndModel(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, defaultEndpoint, s.endpoint)
	assert.Equal(t, defaultModel, s.model)
}

func TestNew_HonorsCustomEndpoint(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{Custom: map[string]string{"endpoint": "http://10.0.0.5:11434"}})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, "http://10.0.0.5:11434", s.endpoint)
}

func TestEstimateCost_AlwaysZero(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{})
	s := svc.(*Service)
	assert.Equal(t, 0.0, s.EstimateCost(contracts.TextRequest{Prompt: "hi"}))
}

func TestExecute_ParsesGenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		json.NewEncoder(w).Encode(generateResponse{Response: "hello there", Context: []int{1, 2, 3}, Done: true})
	}))
	defer server.Close()

	svc, err := New(contracts.ServiceConfig{Custom: map[string]string{"endpoint": server.URL}})
	require.NoError(t, err)
	s := svc.(*Service)

	resp, err := s.Execute(context.Background(), contracts.TextRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, 3, resp.UsageTokens)
}

func TestExecute_NonOKStatusIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	svc, err := New(contracts.ServiceConfig{Custom: map[string]string{"endpoint": server.URL}})
	require.NoError(t, err)
	s := svc.(*Service)

	_, err = s.Execute(context.Background(), contracts.TextRequest{Prompt: "hi"})
	require.Error(t, err)
}
