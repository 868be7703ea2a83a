// Package cartesiatts adapts the Cartesia TTS REST API to the C2
// SpeechService contract. Adapted near-verbatim from
// internal/services/cartesia.go's GenerateSpeechWithOptions — same
// sonic-english model, same emotion-from-style heuristic, same
// word-count/WPM duration estimate — narrowed to write the returned
// audio to disk since SpeechResponse carries a path rather than bytes.
package cartesiatts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const (
	apiVersion             = "2024-06-10"
	defaultVoiceID         = "a0e99841-438c-4a64-b679-ae501e7d6091"
	defaultModelID         = "sonic-english"
	wordsPerMinuteBaseline = 140.0
)

var emotionMap = map[string]string{
	"energetic":     "excited",
	"engaging":      "enthusiastic",
	"mysterious":    "mysterious",
	"serious":       "calm",
	"authoritative": "confident",
	"dramatic":      "intense",
	"calm":          "calm",
	"peaceful":      "peaceful",
	"excited":       "excited",
	"happy":         "happy",
	"sad":           "sad",
	"angry":         "angry",
	"scared":        "scared",
	"confident":     "confident",
}

type requestBody struct {
	ModelID      string            `json:"model_id"`
	Transcript   string            `json:"transcript"`
	Voice        voiceSpecifier    `json:"voice"`
	Language     *string           `json:"language,omitempty"`
	OutputFormat outputFormat      `json:"output_format"`
	Config       *generationConfig `json:"generation_config,omitempty"`
}

type voiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type generationConfig struct {
	Volume  *float64 `json:"volume,omitempty"`
	Speed   *float64 `json:"speed,omitempty"`
	Emotion *string  `json:"emotion,omitempty"`
}

type Service struct {
	apiKey     string
	baseURL    string
	voiceID    string
	modelID    string
	outputDir  string
	providerID contracts.ProviderID
	client     *http.Client
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "cartesiatts", fmt.Errorf("missing API key"))
	}
	baseURL := "https://api.cartesia.ai"
	if cfg.Custom != nil && cfg.Custom["base_url"] != "" {
		baseURL = cfg.Custom["base_url"]
	}
	voiceID := defaultVoiceID
	if cfg.Custom != nil && cfg.Custom["voice_id"] != "" {
		voiceID = cfg.Custom["voice_id"]
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModelID
	}
	outputDir := "artifacts/speech"
	if cfg.Custom != nil && cfg.Custom["output_dir"] != "" {
		outputDir = cfg.Custom["output_dir"]
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "cartesia"
	}
	return &Service{
		apiKey:     apiKey,
		baseURL:    baseURL,
		voiceID:    voiceID,
		modelID:    model,
		outputDir:  outputDir,
		providerID: provider,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.SpeechRequest) float64 {
	return float64(len(req.Text)) / 1000 * 0.025
}

func (s *Service) Execute(ctx context.Context, req contracts.SpeechRequest) (contracts.SpeechResponse, error) {
	voiceID := s.voiceID
	if req.VoiceID != "" {
		voiceID = req.VoiceID
	}
	speed := req.Rate
	if speed <= 0 {
		speed = 0.85
	}
	volume := req.Volume
	if volume <= 0 {
		volume = 1.4
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	body := requestBody{
		ModelID:    s.modelID,
		Transcript: req.Text,
		Voice:      voiceSpecifier{Mode: "id", ID: voiceID},
		Language:   &language,
		OutputFormat: outputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    192000,
		},
	}

	emotion := parseEmotionFromStyle(req.VoiceID)
	if emotion != "" || speed != 1.0 || volume != 1.0 {
		cfg := &generationConfig{}
		if emotion != "" {
			cfg.Emotion = &emotion
		}
		if speed != 1.0 {
			cfg.Speed = &speed
		}
		if volume != 1.0 {
			cfg.Volume = &volume
		}
		body.Config = cfg
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "cartesiatts", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/tts/bytes", bytes.NewReader(jsonData))
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "cartesiatts", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cartesia-Version", apiVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "cartesiatts", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "cartesiatts", fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "cartesiatts", err)
	}
	if len(audioData) == 0 {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.Transient, "cartesiatts", fmt.Errorf("cartesia returned empty audio"))
	}

	path, err := s.writeAudio(audioData)
	if err != nil {
		return contracts.SpeechResponse{}, pipelineerr.New(pipelineerr.AssetCorrupt, "cartesiatts", err)
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

func parseEmotionFromStyle(style string) string {
	styleLower := strings.ToLower(style)
	for keyword, emotion := range emotionMap {
		if strings.Contains(styleLower, keyword) {
			return emotion
		}
	}
	return ""
}

func estimateDuration(text string, speed float64) float64 {
	words := len(bytes.Fields([]byte(text)))
	actualWPM := wordsPerMinuteBaseline * speed
	if actualWPM <= 0 {
		return 0
	}
	return float64(words) / actualWPM * 60
}
