// Package elevenlabstts adapts the ElevenLabs text-to-speech REST API to
// the C2 SpeechService contract. Adapted near-verbatim from
// internal/services/elevenlabs.go's GenerateSpeech: same request shape,
// same eleven_flash_v2_5 default model, same raw-bytes response body —
// narrowed to write the returned MP3 to disk since SpeechResponse carries
// a path rather than raw bytes.
package elevenlabstts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const (
	baseURL                = "https://api.elevenlabs.io"
	defaultModel           = "eleven_flash_v2_5"
	defaultVoice           = "pNInz6obpgDQGcFmaJgB"
	outputFormat           = "mp3_44100_128"
	wordsPerMinuteBaseline = 140.0
)

type requestBody struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	Speed         *float64       `json:"speed,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type Service struct {
	apiKey     string
	voiceID    string
	modelID    string
	outputDir  string
	baseURL    string
	providerID contracts.ProviderID
	client     *http.Client
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "elevenlabstts", fmt.Errorf("missing API key"))
	}
	voiceID := defaultVoice
	if cfg.Custom != nil && cfg.Custom["voice_id"] != "" {
		voiceID = cfg.Custom["voice_id"]
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}
	outputDir := "artifacts/speech"
	if cfg.Custom != nil && cfg.Custom["output_dir"] != "" {
		outputDir = cfg.Custom["output_dir"]
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "elevenlabs"
	}
	base := baseURL
	if cfg.Custom != nil && cfg.Custom["base_url"] != "" {
		base = cfg.Custom["base_url"]
	}
	return &Service{
		apiKey:     apiKey,
		voiceID:    voiceID,
		modelID:    model,
		outputDir:  outputDir,
		baseURL:    base,
		providerID: provider,
		client:     &http.Client{Timeout: 90 * time.Second},
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.SpeechRequest) float64 {
	return float64(len(req.Text)) / 1000 * 0.03
}

func (s *Service) Execute(ctx context.Context, req contracts.SpeechRequest) (contracts.SpeechResponse, error) {
	effectiveVoice := s.voiceID
	if req.VoiceID != "" {
		effectiveVoice = req.VoiceID
	}
	speed := req.Rate
	if speed <= 0 {
		speed = 0.85
	}

	body := requestBody{
		Text:    req.Text,
		ModelID: s.modelID,
		Speed:   &speed,
		VoiceSettings: &voiceSettings{
			Stability:       0.60,
			SimilarityBoost: 0.80,
			Style:           0.35,
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "elevenlabstts", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", s.baseURL, effectiveVoice, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "elevenlabstts", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "elevenlabstts", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "elevenlabstts", fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "elevenlabstts", err)
	}
	if len(audioData) == 0 {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "elevenlabstts", fmt.Errorf("elevenlabs returned empty audio"))
	}

	path, err := s.writeAudio(audioData)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.AssetCorrupt, "elevenlabstts", err)
	}

	durationS := estimateDuration(req.Text, speed)
	return contracts.SpeechResponse{
		AudioPath:  path,
		DurationS:  durationS,
		SampleRate: 44100,
		Channels:   1,
		Provider:   s.providerID,
	}, nil
}

func (s *Service) writeAudio(data []byte) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.outputDir, uuid.New().String()+".mp3")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// estimateDuration mirrors the teacher's word-count/WPM estimate since
// ElevenLabs does not return duration in this endpoint's headers.
func estimateDuration(text string, speed float64) float64 {
	words := len(bytes.Fields([]byte(text)))
	actualWPM := wordsPerMinuteBaseline * speed
	if actualWPM <= 0 {
		return 0
	}
	return float64(words) / actualWPM * 60
}
