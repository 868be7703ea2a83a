package elevenlabstts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

func TestNew_MissingAPIKeyReturnsConfigMissing(t *testing.T) {
	_, err := New(contracts.ServiceConfig{})
	require.Error(t, err)
}

func TestNew_DefaultsVoiceAndModel(t *testing.T) {
	svc, err := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "key"}})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, defaultVoice, s.voiceID)
	assert.Equal(t, defaultModel, s.modelID)
	assert.Equal(t, contracts.ProviderID("elevenlabs"), s.ProviderID())
}

func TestNew_HonorsCustomVoiceAndOutputDir(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(contracts.ServiceConfig{
		Credentials: contracts.Credentials{Token: "key"},
		Custom:      map[string]string{"voice_id": "custom-voice", "output_dir": dir},
	})
	require.NoError(t, err)
	s := svc.(*Service)
	assert.Equal(t, "custom-voice", s.voiceID)
	assert.Equal(t, dir, s.outputDir)
}

func TestEstimateDuration_ScalesWithSpeed(t *testing.T) {
	fast := estimateDuration("one two three four five six seven", 1.0)
	slow := estimateDuration("one two three four five six seven", 0.5)
	assert.Greater(t, slow, fast)
}

func TestExecute_WritesAudioFileAndReturnsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello world", body.Text)
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	svc, err := New(contracts.ServiceConfig{
		Credentials: contracts.Credentials{Token: "key"},
		Custom:      map[string]string{"output_dir": dir, "base_url": server.URL},
	})
	require.NoError(t, err)
	s := svc.(*Service)
	s.client = server.Client()

	resp, err := s.Execute(context.Background(), contracts.SpeechRequest{Text: "hello world", Language: "en", OutputFormat: "mp3"})
	require.NoError(t, err)
	require.FileExists(t, resp.AudioPath)

	data, err := os.ReadFile(resp.AudioPath)
	require.NoError(t, err)
	assert.Equal(t, "fake-mp3-bytes", string(data))
	assert.Equal(t, 44100, resp.SampleRate)
}

func TestExecute_NonOKStatusIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer server.Close()

	dir := t.TempDir()
	svc, err := New(contracts.ServiceConfig{
		Credentials: contracts.Credentials{Token: "key"},
		Custom:      map[string]string{"output_dir": dir, "base_url": server.URL},
	})
	require.NoError(t, err)
	s := svc.(*Service)
	s.client = server.Client()

	_, err = s.Execute(context.Background(), contracts.SpeechRequest{Text: "hi", Language: "en", OutputFormat: "mp3"})
	require.Error(t, err)
}

func TestExecute_EmptyBodyIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	svc, err := New(contracts.ServiceConfig{
		Credentials: contracts.Credentials{Token: "key"},
		Custom:      map[string]string{"output_dir": dir, "base_url": server.URL},
	})
	require.NoError(t, err)
	s := svc.(*Service)
	s.client = server.Client()

	_, err = s.Execute(context.Background(), contracts.SpeechRequest{Text: "hi", Language: "en", OutputFormat: "mp3"})
	require.Error(t, err)
}

func TestEstimateCost_ScalesWithTextLength(t *testing.T) {
	svc, _ := New(contracts.ServiceConfig{Credentials: contracts.Credentials{Token: "key"}})
	s := svc.(*Service)
	short := s.EstimateCost(contracts.SpeechRequest{Text: "hi"})
	long := s.EstimateCost(contracts.SpeechRequest{Text: string(make([]byte, 2000))})
	assert.Greater(t, long, short)
}
