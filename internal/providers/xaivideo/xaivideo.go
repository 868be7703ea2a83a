// Package xaivideo adapts xAI's Grok Imagine Video REST API to the C2
// VideoService contract. Grounded on internal/services/xai_video.go:
// same submit-then-poll-by-request_id request/response shapes, same
// pending/failed/completed detection logic (completed responses carry a
// "video" object and no "status" field) — split across
// Execute/CheckStatus instead of xai_video.go's single blocking call,
// since request_id already models the async job xAI hands back.
package xaivideo

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
	defaultBaseURL     = "https://api.x.ai/v1"
	defaultModel       = "grok-imagine-video"
	minDuration        = 1
	maxDuration        = 15
	defaultDurationS   = 12
	defaultAspectRatio = "9:16"
	defaultResolution  = "720p"
)

type generationRequest struct {
	Prompt      string      `json:"prompt"`
	Model       string      `json:"model"`
	Image       *imageInput `json:"image,omitempty"`
	Duration    int         `json:"duration,omitempty"`
	AspectRatio string      `json:"aspect_ratio,omitempty"`
	Resolution  string      `json:"resolution,omitempty"`
}

type imageInput struct {
	URL string `json:"url"`
}

type generationResponse struct {
	RequestID string `json:"request_id"`
}

type videoResult struct {
	Status string       `json:"status"`
	Video  *videoOutput `json:"video,omitempty"`
	Model  string       `json:"model,omitempty"`
	Error  string       `json:"error"`
}

type videoOutput struct {
	URL               string `json:"url"`
	Duration          int    `json:"duration"`
	RespectModeration bool   `json:"respect_moderation"`
}

type Service struct {
	apiKey     string
	baseURL    string
	model      string
	outputDir  string
	providerID contracts.ProviderID
	client     *http.Client
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "xaivideo", fmt.Errorf("missing API key"))
	}
	baseURL := defaultBaseURL
	if cfg.Custom != nil && cfg.Custom["base_url"] != "" {
		baseURL = cfg.Custom["base_url"]
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}
	outputDir := "artifacts/video"
	if cfg.Custom != nil && cfg.Custom["output_dir"] != "" {
		outputDir = cfg.Custom["output_dir"]
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "xai"
	}
	return &Service{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		outputDir:  outputDir,
		providerID: provider,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.VideoRequest) float64 {
	duration := clampDuration(int(req.DurationS))
	return float64(duration) * 0.15
}

func (s *Service) Capabilities() contracts.VideoCapabilities {
	return contracts.VideoCapabilities{
		SupportsAudio:        false,
		MaxDuration:          float64(maxDuration),
		SupportedResolutions: []string{"480p", "720p"},
	}
}

func (s *Service) Execute(ctx context.Context, req contracts.VideoRequest) (contracts.VideoResponse, error) {
	duration := clampDuration(int(req.DurationS))
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = defaultAspectRatio
	}
	resolution := req.Resolution
	if resolution == "" {
		resolution = defaultResolution
	}

	body := generationRequest{
		Prompt:      buildPrompt(req),
		Model:       s.model,
		Duration:    duration,
		AspectRatio: aspectRatio,
		Resolution:  resolution,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "xaivideo", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/videos/generations", bytes.NewReader(jsonData))
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "xaivideo", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", fmt.Errorf("xai returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var genResp generationResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.SchemaMismatch, "xaivideo", err)
	}
	if genResp.RequestID == "" {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.SchemaMismatch, "xaivideo", fmt.Errorf("no request_id in generation response"))
	}

	return contracts.VideoResponse{
		JobID:    genResp.RequestID,
		Status:   contracts.VideoProcessing,
		Provider: s.providerID,
	}, nil
}

// CheckStatus detects completion the way xAI's API signals it: a
// completed response carries a "video" object and omits "status"
// entirely, while a still-running job reports status=="pending".
func (s *Service) CheckStatus(ctx context.Context, jobID string) (contracts.VideoResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/videos/%s", s.baseURL, jobID), nil)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "xaivideo", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", fmt.Errorf("xai returned status %d: %s", resp.StatusCode, string(body)))
	}

	var result videoResult
	if err := json.Unmarshal(body, &result); err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.SchemaMismatch, "xaivideo", err)
	}

	if result.Video != nil && result.Video.URL != "" {
		videoBytes, err := s.downloadVideo(ctx, result.Video.URL)
		if err != nil {
			return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "xaivideo", err)
		}
		if len(videoBytes) == 0 {
			return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: "downloaded video is empty"}, nil
		}
		path, err := s.writeVideo(jobID, videoBytes)
		if err != nil {
			return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.AssetCorrupt, "xaivideo", err)
		}
		return contracts.VideoResponse{
			VideoPath: path,
			JobID:     jobID,
			Status:    contracts.VideoCompleted,
			Provider:  s.providerID,
		}, nil
	}

	if result.Status == "failed" {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: errMsg}, nil
	}

	return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoProcessing, Provider: s.providerID}, nil
}

func (s *Service) downloadVideo(ctx context.Context, videoURL string) ([]byte, error) {
	downloadClient := &http.Client{Timeout: 120 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "GET", videoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *Service) writeVideo(jobID string, data []byte) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	name := jobID
	if name == "" {
		name = uuid.New().String()
	}
	path := filepath.Join(s.outputDir, name+".mp4")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func clampDuration(d int) int {
	if d <= 0 {
		return defaultDurationS
	}
	if d < minDuration {
		return minDuration
	}
	if d > maxDuration {
		return maxDuration
	}
	return d
}

// buildPrompt enhances the raw prompt with xAI-specific consistency
// instructions, mirroring the teacher's buildXAIVideoPrompt.
func buildPrompt(req contracts.VideoRequest) string {
	styleSection := "Match the style and mood of the input image."
	if req.Style != "" {
		styleSection = fmt.Sprintf("Visual style: %q.", req.Style)
	}

	negative := ""
	if req.NegativePrompt != "" {
		negative = fmt.Sprintf("\n\nAvoid: %s", req.NegativePrompt)
	}

	return fmt.Sprintf(`%s

%s
Maintain visual consistency with the input image throughout the video. Preserve the color palette, lighting, and artistic quality from the source frame.

Generate natural, cinematic movement that brings the scene to life. Silent video only — no generated audio or dialogue.%s`, req.Prompt, styleSection, negative)
}
