// Package veovideo adapts Google's Veo video-generation model (via the
// google.golang.org/genai SDK) to the C2 VideoService contract. Grounded
// on internal/services/veo.go's GenerateVideo: same client construction,
// prompt-enhancement wrapper, and RAI-safety-filter/empty-response error
// handling — but split across Execute/CheckStatus instead of veo.go's
// single blocking call, since VideoService models Veo's async operation
// natively rather than polling inside one goroutine.
package veovideo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/google/uuid"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const (
	defaultModel = "veo-3.1-generate-preview"
	maxDuration  = 8.0
)

type pendingOperation struct {
	op *genai.GenerateVideosOperation
}

type Service struct {
	client     *genai.Client
	model      string
	outputDir  string
	providerID contracts.ProviderID

	mu      sync.Mutex
	pending map[string]*pendingOperation
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "veovideo", fmt.Errorf("missing API key"))
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
		provider = "veo"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "veovideo", fmt.Errorf("create genai client: %w", err))
	}

	return &Service{
		client:     client,
		model:      model,
		outputDir:  outputDir,
		providerID: provider,
		pending:    make(map[string]*pendingOperation),
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.VideoRequest) float64 {
	duration := req.DurationS
	if duration <= 0 {
		duration = maxDuration
	}
	return duration * 0.50
}

func (s *Service) Capabilities() contracts.VideoCapabilities {
	return contracts.VideoCapabilities{
		SupportsAudio:        false,
		MaxDuration:          maxDuration,
		SupportedResolutions: []string{"720p", "1080p", "4k"},
	}
}

func (s *Service) Execute(ctx context.Context, req contracts.VideoRequest) (contracts.VideoResponse, error) {
	enhancedPrompt := buildVeoPrompt(req)

	resolution := req.Resolution
	if resolution == "" {
		resolution = "4k"
	}
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "9:16"
	}

	config := &genai.GenerateVideosConfig{
		AspectRatio:      aspectRatio,
		Resolution:       resolution,
		PersonGeneration: "allow_adult",
		NumberOfVideos:   1,
	}

	operation, err := s.client.Models.GenerateVideos(ctx, s.model, enhancedPrompt, nil, config)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "veovideo", fmt.Errorf("start video generation: %w", err))
	}

	jobID := uuid.New().String()
	s.mu.Lock()
	s.pending[jobID] = &pendingOperation{op: operation}
	s.mu.Unlock()

	return contracts.VideoResponse{
		JobID:    jobID,
		Status:   contracts.VideoProcessing,
		Provider: s.providerID,
	}, nil
}

func (s *Service) CheckStatus(ctx context.Context, jobID string) (contracts.VideoResponse, error) {
	s.mu.Lock()
	pending, ok := s.pending[jobID]
	s.mu.Unlock()
	if !ok {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "veovideo", fmt.Errorf("unknown job id %s", jobID))
	}

	operation, err := s.client.Operations.GetVideosOperation(ctx, pending.op, nil)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "veovideo", fmt.Errorf("poll operation: %w", err))
	}
	pending.op = operation

	if !operation.Done {
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoProcessing, Provider: s.providerID}, nil
	}

	if operation.Error != nil && len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: string(errJSON)}, nil
	}

	if operation.Response == nil {
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: "no response in completed operation"}, nil
	}

	if operation.Response.RAIMediaFilteredCount > 0 {
		reasons := "unknown"
		if len(operation.Response.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(operation.Response.RAIMediaFilteredReasons, ", ")
		}
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: fmt.Sprintf("blocked by safety filters: %s", reasons)}, nil
	}

	if len(operation.Response.GeneratedVideos) == 0 {
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: "no videos in response"}, nil
	}

	video := operation.Response.GeneratedVideos[0]
	if video.Video == nil {
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: "generated video object is nil"}, nil
	}

	downloadURI := genai.NewDownloadURIFromVideo(video.Video)
	videoBytes, err := s.client.Files.Download(ctx, downloadURI, nil)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.Transient, "veovideo", fmt.Errorf("download video: %w", err))
	}
	if len(videoBytes) == 0 {
		return contracts.VideoResponse{JobID: jobID, Status: contracts.VideoFailed, Provider: s.providerID, Error: "downloaded video is empty"}, nil
	}

	path, err := s.writeVideo(jobID, videoBytes)
	if err != nil {
		return contracts.VideoResponse{}, pipelineerr.New(pipelineerr.AssetCorrupt, "veovideo", err)
	}

	s.mu.Lock()
	delete(s.pending, jobID)
	s.mu.Unlock()

	return contracts.VideoResponse{
		VideoPath: path,
		JobID:     jobID,
		Status:    contracts.VideoCompleted,
		Provider:  s.providerID,
	}, nil
}

func (s *Service) writeVideo(jobID string, data []byte) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.outputDir, jobID+".mp4")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// buildVeoPrompt enhances the request prompt with Veo-specific style and
// motion guidance, mirroring the teacher's buildVeoPrompt.
func buildVeoPrompt(req contracts.VideoRequest) string {
	styleLine := "Match the hyperrealistic painting style of the input image exactly. Maintain the warm golden radiance, luminous cinematic atmosphere, and photorealistic subject detail from the source frame."
	if req.Style != "" {
		styleLine = fmt.Sprintf("Render in a %q visual style, consistent throughout the clip.", req.Style)
	}

	negative := ""
	if req.NegativePrompt != "" {
		negative = fmt.Sprintf("\n\nAvoid: %s", req.NegativePrompt)
	}

	return fmt.Sprintf(`%s

Visual style direction: %s Do NOT alter the art style, color grading, or rendering quality — the video should look like the source has come to life.

Motion direction: Generate subtle, natural, realistic movement. Less is more — favor gentle, grounded motion over dramatic or exaggerated movement.

Avoid: sudden jerky movements, unrealistic morphing, style changes between frames, cartoonish motion, or overly dramatic camera swoops.%s

Important: This is a fictional artistic scene. All subjects are unnamed, generic figures. Do not identify or associate any subject with a real person, celebrity, or public figure.

No generated audio or dialogue. Silent video only.`, req.Prompt, styleLine, negative)
}
