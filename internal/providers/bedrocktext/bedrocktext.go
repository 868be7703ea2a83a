// Package bedrocktext adapts AWS Bedrock's Anthropic-on-Bedrock
// InvokeModel API to the C2 TextService contract. Grounded on
// lookatitude-beluga-ai's llms/bedrock client construction
// (awsconfig.LoadDefaultConfig + bedrockruntime.NewFromConfig) and its
// anthropic_messages request/response body shape for the InvokeModel
// payload, since Bedrock's Anthropic models speak that same wire format
// regardless of whether they're reached via Bedrock or the Anthropic API
// directly.
package bedrocktext

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const defaultModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
const anthropicVersion = "bedrock-2023-05-31"
const defaultMaxTokens = 1024

type requestBody struct {
	AnthropicVersion string        `json:"anthropic_version"`
	Messages         []messagePart `json:"messages"`
	System           string        `json:"system,omitempty"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature,omitempty"`
	TopP             float64       `json:"top_p,omitempty"`
	StopSequences    []string      `json:"stop_sequences,omitempty"`
}

type messagePart struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type responseBody struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type Service struct {
	client     *bedrockruntime.Client
	modelID    string
	providerID contracts.ProviderID
}

func New(cfg contracts.ServiceConfig) (any, error) {
	modelID := cfg.ModelName
	if modelID == "" {
		modelID = defaultModelID
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "bedrock"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "bedrocktext", fmt.Errorf("load aws config: %w", err))
	}

	client := bedrockruntime.NewFromConfig(awsCfg)
	return &Service{client: client, modelID: modelID, providerID: provider}, nil
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
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	body := requestBody{
		AnthropicVersion: anthropicVersion,
		Messages: []messagePart{
			{Role: "user", Content: []contentBlock{{Type: "text", Text: req.Prompt}}},
		},
		System:        req.SystemPrompt,
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.StopSequences,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "bedrocktext", err)
	}

	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		Body:        payload,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "bedrocktext", err)
	}

	var resp responseBody
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.SchemaMismatch, "bedrocktext", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "bedrocktext", fmt.Errorf("no text content in bedrock response"))
	}

	usage := resp.Usage.InputTokens + resp.Usage.OutputTokens
	return contracts.TextResponse{
		Text:         text,
		UsageTokens:  usage,
		Model:        s.modelID,
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
