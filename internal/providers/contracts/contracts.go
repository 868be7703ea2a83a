// Package contracts defines the typed request/response shapes and
// capability interfaces shared by every ServiceKind (text, image, speech,
// video). These translate the original source's dataclass + ABC pairs
// (AIServiceConfig/AIService, TextGenerationRequest/Service, ...) into
// explicit Go structs and interfaces — unknown fields are rejected by
// construction rather than by a dynamic dict, so one provider's response
// shape can never leak into another's.
package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
)

// ServiceKind enumerates the four provider kinds this module orchestrates.
type ServiceKind string

const (
	KindText   ServiceKind = "text"
	KindImage  ServiceKind = "image"
	KindSpeech ServiceKind = "speech"
	KindVideo  ServiceKind = "video"
)

// ProviderID is an opaque identifier of a concrete backend, unique within a kind.
type ProviderID string

// ServiceConfig is immutable after construction; it parameterizes a factory
// call in the registry (C1).
type ServiceConfig struct {
	Provider    ProviderID
	Credentials Credentials
	ModelName   string
	MaxRetries  int
	Timeout     time.Duration
	Custom      map[string]string
}

// ResponseFormat selects plain text or a structured JSON response.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// --- Text ---------------------------------------------------------------

type TextRequest struct {
	Prompt         string   `validate:"required"`
	MaxTokens      int      `validate:"omitempty,min=1"`
	Temperature    float64  `validate:"min=0,max=2"`
	TopP           float64  `validate:"min=0,max=1"`
	StopSequences  []string `validate:"omitempty,dive,required"`
	SystemPrompt   string
	ResponseFormat ResponseFormat `validate:"omitempty,oneof=text json"`
}

type TextResponse struct {
	Text         string
	UsageTokens  int
	Model        string
	Provider     ProviderID
	CostEstimate float64
}

type ChatMessage struct {
	Role    string `validate:"required,oneof=system user assistant"`
	Content string `validate:"required"`
}

type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

// TextService is the Text-kind capability interface (C2). ExecuteStructured
// wraps Execute with a JSON response-format hint and parses the result;
// parse failure surfaces pipelineerr.SchemaMismatch. Chat flattens a
// message list into a single prompt via role prefixes, last system message
// wins.
type TextService interface {
	Execute(ctx context.Context, req TextRequest) (TextResponse, error)
	ExecuteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (TextResponse, error)
	EstimateCost(req TextRequest) float64
	ProviderID() ProviderID
}

// --- Image ----------------------------------------------------------------

type ImageRequest struct {
	Prompt         string `validate:"required"`
	Style          string
	AspectRatio    string `validate:"required"`
	NegativePrompt string
	Count          int `validate:"min=1"`
}

type ImageResponse struct {
	ArtifactPaths []string
	Provider      ProviderID
	GenerationMS  int64
}

type ImageService interface {
	Execute(ctx context.Context, req ImageRequest) (ImageResponse, error)
	EstimateCost(req ImageRequest) float64
	ProviderID() ProviderID
}

// --- Speech -----------------------------------------------------------

type SpeechRequest struct {
	Text         string `validate:"required"`
	VoiceID      string
	Language     string `validate:"required"`
	Rate         float64
	Pitch        float64
	Volume       float64
	OutputFormat string `validate:"required"`
}

type SpeechResponse struct {
	AudioPath  string
	DurationS  float64
	SampleRate int
	Channels   int
	Provider   ProviderID
}

type SpeechService interface {
	Execute(ctx context.Context, req SpeechRequest) (SpeechResponse, error)
	EstimateCost(req SpeechRequest) float64
	ProviderID() ProviderID
}

// --- Video ------------------------------------------------------------

type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

type VideoRequest struct {
	Prompt         string `validate:"required"`
	DurationS      float64 `validate:"min=0"`
	Style          string
	AspectRatio    string `validate:"required"`
	Resolution     string
	FPS            int
	NegativePrompt string
}

type VideoResponse struct {
	VideoPath    string
	JobID        string
	Status       VideoStatus
	Provider     ProviderID
	GenerationMS int64
	Error        string
}

// VideoCapabilities lets the orchestrator skip (not fail) a provider that
// cannot satisfy a request, per the fallback orchestrator's capability
// consultation for video generation specifically.
type VideoCapabilities struct {
	SupportsAudio        bool
	MaxDuration          float64
	SupportedResolutions []string
}

func (c VideoCapabilities) SupportsStyle(style string) bool {
	// All registered video providers in this module accept arbitrary free-text
	// style hints; style-based rejection is a capability a future provider
	// could implement, kept here as a method so the contract matches the
	// interface the orchestrator consults.
	return true
}

// VideoService defines the async idiom explicitly: Execute may return a
// completed response or a job-id with status "processing". CheckStatus is
// the polling primitive, and WaitForCompletion has a default-equivalent
// free function (see WaitForCompletion) that every concrete provider can
// reuse rather than reimplement.
type VideoService interface {
	Execute(ctx context.Context, req VideoRequest) (VideoResponse, error)
	CheckStatus(ctx context.Context, jobID string) (VideoResponse, error)
	EstimateCost(req VideoRequest) float64
	Capabilities() VideoCapabilities
	ProviderID() ProviderID
}

// pollInterval is the fixed poll cadence WaitForCompletion uses, per the
// spec's "polls at fixed intervals (5s) until terminal state or deadline".
const pollInterval = 5 * time.Second

// WaitForCompletion polls svc.CheckStatus every 5 seconds until a terminal
// state (Completed/Failed) or timeout elapses, at which point it
// synthesizes a Failed response with Error == "timeout". This is the one
// default behavior every registered VideoService shares, mirroring the
// original source's default-method VideoGenerationService.wait_for_completion.
func WaitForCompletion(ctx context.Context, svc VideoService, jobID string, timeout time.Duration) (VideoResponse, error) {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := svc.CheckStatus(ctx, jobID)
		if err != nil {
			return resp, err
		}
		if resp.Status == VideoCompleted || resp.Status == VideoFailed {
			return resp, nil
		}
		if time.Now().After(deadline) {
			return VideoResponse{
				JobID:    jobID,
				Status:   VideoFailed,
				Provider: resp.Provider,
				Error:    "timeout",
			}, nil
		}
		select {
		case <-ctx.Done():
			return VideoResponse{JobID: jobID, Status: VideoFailed, Error: "cancelled"}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// WordTimestamp is a single word with its precise timing from a Whisper-style
// transcription, feeding the compositor's word-by-word subtitle chunking.
type WordTimestamp struct {
	Word  string
	Start float64
	End   float64
}

// --- Shared TextService defaults -------------------------------------------
//
// ExecuteStructuredJSON and FlattenChat are the one shared default behavior
// every concrete TextService reuses rather than reimplements, mirroring the
// pattern WaitForCompletion establishes for VideoService above.

// ExecuteStructuredJSON wraps svc.Execute with a JSON response-format hint,
// appends a schema reminder to the prompt, and unmarshals the result into
// out. A parse failure surfaces as pipelineerr.SchemaMismatch so the
// orchestrator's classify() routes it the same way every other structured
// failure is routed.
func ExecuteStructuredJSON(ctx context.Context, svc TextService, prompt string, schema map[string]any, out any) error {
	fullPrompt := prompt
	if len(schema) > 0 {
		schemaJSON, err := json.Marshal(schema)
		if err == nil {
			fullPrompt = fmt.Sprintf("%s\n\nRespond with JSON matching this schema:\n%s", prompt, string(schemaJSON))
		}
	}

	resp, err := svc.Execute(ctx, TextRequest{Prompt: fullPrompt, ResponseFormat: ResponseFormatJSON})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp.Text), out); err != nil {
		return pipelineerr.New(pipelineerr.SchemaMismatch, "text", fmt.Errorf("structured response did not match schema: %w", err))
	}
	return nil
}

// ExecuteFunc matches TextService.Execute's signature, letting FlattenChat
// (and any future shared default) take just the one method a concrete
// adapter has already implemented.
type ExecuteFunc func(ctx context.Context, req TextRequest) (TextResponse, error)

// FlattenChat reduces a chat message list to a single prompt via role
// prefixes ("System:", "User:", "Assistant:"); the last system message
// found becomes the request's SystemPrompt, matching the doc comment on
// TextService.Chat.
func FlattenChat(ctx context.Context, execute ExecuteFunc, messages []ChatMessage, opts ChatOptions) (TextResponse, error) {
	var systemPrompt string
	var turns []string
	for _, m := range messages {
		switch m.Role {
		case "system":
			systemPrompt = m.Content
		case "assistant":
			turns = append(turns, "Assistant: "+m.Content)
		default:
			turns = append(turns, "User: "+m.Content)
		}
	}
	return execute(ctx, TextRequest{
		Prompt:       strings.Join(turns, "\n"),
		SystemPrompt: systemPrompt,
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
	})
}
