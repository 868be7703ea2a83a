// Package anthropictext adapts the Anthropic Messages API to the C2
// TextService contract. The teacher has no Anthropic client of its own;
// this follows lookatitude-beluga-ai's pkg/llms/anthropic client
// construction (anthropic.NewClient + option.WithAPIKey) and its Beta
// Messages.New call/response-block-iteration shape, narrowed to this
// module's single-turn TextRequest/TextResponse pair.
package anthropictext

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const defaultModel = "claude-3-5-sonnet-20241022"
const defaultMaxTokens = 1024

type Service struct {
	client     anthropic.Client
	model      string
	providerID contracts.ProviderID
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "anthropictext", fmt.Errorf("missing API key"))
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "anthropic"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Service{client: client, model: model, providerID: provider}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.TextRequest) float64 {
	tokens := req.MaxTokens
	if tokens == 0 {
		tokens = defaultMaxTokens
	}
	return float64(tokens) / 1000 * 0.003
}

func (s *Service) Execute(ctx context.Context, req contracts.TextRequest) (contracts.TextResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.BetaMessageParam{
			anthropic.NewBetaUserMessage(anthropic.NewBetaTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = anthropic.Float(req.TopP)
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}

	resp, err := s.client.Beta.Messages.New(ctx, params)
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "anthropictext", err)
	}

	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.BetaTextBlock); ok {
			text += tb.Text
		}
	}
	if text == "" {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "anthropictext", fmt.Errorf("no text content in response"))
	}

	usage := resp.Usage.InputTokens + resp.Usage.OutputTokens
	return contracts.TextResponse{
		Text:         text,
		UsageTokens:  int(usage),
		Model:        s.model,
		Provider:     s.providerID,
		CostEstimate: float64(usage) / 1000 * 0.003,
	}, nil
}

func (s *Service) ExecuteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error {
	return contracts.ExecuteStructuredJSON(ctx, s, prompt, schema, out)
}

func (s *Service) Chat(ctx context.Context, messages []contracts.ChatMessage, opts contracts.ChatOptions) (contracts.TextResponse, error) {
	return contracts.FlattenChat(ctx, s.Execute, messages, opts)
}
