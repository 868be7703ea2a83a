package geminiimage

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestNew_MissingAPIKeyReturnsConfigMissing(t *testing.T) {
	_, err := New(contracts.ServiceConfig{})
	require.Error(t, err)
}

func TestNew_DefaultsModelAndProvider(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "key"}})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, defaultModel, s.model)
	assert.Equal(t, contracts.ProviderID("gemini"), s.ProviderID())
}

func TestComposeImagePrompt_IncludesStyleAndNegativePrompt(t *testing.T) {
	p := composeImagePrompt(contracts.ImageRequest{
		Prompt:         "a cat on a rooftop",
		Style:          "anime",
		AspectRatio:    "16:9",
		NegativePrompt: "no text overlays",
	})
	assert.Contains(t, p, "anime")
	assert.Contains(t, p, "a cat on a rooftop")
	assert.Contains(t, p, "no text overlays")
	assert.Contains(t, p, "Landscape")
}

func TestEstimateCost_ScalesWithCount(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "key"}})
	s := svc.(*Service)
	one := s.EstimateCost(contracts.ImageRequest{Count: 1})
	three := s.EstimateCost(contracts.ImageRequest{Count: 3})
	assert.Greater(t, three, one)
}

func TestExecute_WritesImageFilesForEachCount(t *testing.T) {
	pngBytes := []byte("fake-png-bytes")
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"` + encoded + `"}}]}}]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	svc, err := New(contracts.ServiceConfig{
		Credentials: contracts.Credentials{Token: "key"},
		Custom:      map[string]string{"output_dir": dir},
	})
	require.NoError(t, err)
	s := svc.(*Service)
	s.client = server.Client()
	s.styleImageCache = []byte("style-bytes")
	s.styleMimeType = "image/jpeg"

	origURL := geminiAPIBase
	geminiAPIBase = server.URL
	defer func() { geminiAPIBase = origURL }()

	resp, err := s.Execute(context.Background(), contracts.ImageRequest{Prompt: "a mountain", AspectRatio: "9:16", Count: 2})
	require.NoError(t, err)
	require.Len(t, resp.ArtifactPaths, 2)
	for _, p := range resp.ArtifactPaths {
		require.FileExists(t, p)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "fake-png-bytes", string(data))
		assert.Equal(t, dir, filepath.Dir(p))
	}
}
