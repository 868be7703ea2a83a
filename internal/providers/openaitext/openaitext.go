// Package openaitext adapts the OpenAI chat-completion API to the C2
// TextService contract. Grounded on internal/services/openai.go's
// GeneratePlan: same client, same JSON-mode request shape, narrowed from
// the teacher's bespoke VideoPlan schema to the generic TextRequest/
// TextResponse pair every provider implements.
package openaitext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const defaultModel = "gpt-5-mini"

// costPerThousandTokens is a rough blended estimate; exact pricing varies
// by model and is not exposed by the SDK, so EstimateCost is advisory only.
const costPerThousandTokens = 0.002

type Service struct {
	client     *openai.Client
	model      string
	providerID contracts.ProviderID
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "openaitext", fmt.Errorf("missing API key"))
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return &Service{
		client:     openai.NewClient(apiKey),
		model:      model,
		providerID: provider,
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.TextRequest) float64 {
	tokens := req.MaxTokens
	if tokens == 0 {
		tokens = len(strings.Fields(req.Prompt)) * 2
	}
	return float64(tokens) / 1000 * costPerThousandTokens
}

func (s *Service) Execute(ctx context.Context, req contracts.TextRequest) (contracts.TextResponse, error) {
	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	ccr := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stop:        req.StopSequences,
	}
	if req.MaxTokens > 0 {
		ccr.MaxTokens = req.MaxTokens
	}
	if req.ResponseFormat == contracts.ResponseFormatJSON {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := s.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "openaitext", err)
	}
	if len(resp.Choices) == 0 {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "openaitext", fmt.Errorf("no choices returned"))
	}

	return contracts.TextResponse{
		Text:         resp.Choices[0].Message.Content,
		UsageTokens:  resp.Usage.TotalTokens,
		Model:        s.model,
		Provider:     s.providerID,
		CostEstimate: float64(resp.Usage.TotalTokens) / 1000 * costPerThousandTokens,
	}, nil
}

func (s *Service) ExecuteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error {
	return contracts.ExecuteStructuredJSON(ctx, s, prompt, schema, out)
}

func (s *Service) Chat(ctx context.Context, messages []contracts.ChatMessage, opts contracts.ChatOptions) (contracts.TextResponse, error) {
	return contracts.FlattenChat(ctx, s.Execute, messages, opts)
}

// TranscribeAudio sends the audio at audioPath to Whisper and returns
// word-level timestamps, feeding the compositor's subtitle overlay stage.
// Grounded on internal/services/openai.go's TranscribeAudio, reading from a
// disk path instead of a byte slice since C2's SpeechResponse carries paths.
func (s *Service) TranscribeAudio(ctx context.Context, audioPath, language string) ([]contracts.WordTimestamp, error) {
	if language == "" {
		language = "en"
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.AssetCorrupt, "openaitext", fmt.Errorf("read audio for transcription: %w", err))
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(data),
		FilePath: "audio.mp3",
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: language,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.Transient, "openaitext", fmt.Errorf("whisper transcription: %w", err))
	}
	if len(resp.Words) == 0 {
		return nil, pipelineerr.New(pipelineerr.SchemaMismatch, "openaitext", fmt.Errorf("whisper returned no word timestamps"))
	}

	words := make([]contracts.WordTimestamp, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = contracts.WordTimestamp{
			Word:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		}
	}
	return words, nil
}
