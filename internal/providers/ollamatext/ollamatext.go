// Package ollamatext adapts a local Ollama model server's /api/generate
// endpoint to the C2 TextService contract. Grounded on
// dmzoneill-ollama-proxy's pkg/backends/ollama.Generate: a plain
// net/http POST with stream=false — Ollama itself has no dedicated Go
// client in the corpus, and the proxy repo's own backend talks to it over
// raw HTTP, so this matches its idiom rather than introducing a client
// library.
package ollamatext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultModel    = "llama3"
	defaultTimeout  = 120 * time.Second
)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Context  []int  `json:"context"`
	Done     bool   `json:"done"`
}

type Service struct {
	endpoint   string
	model      string
	providerID contracts.ProviderID
	client     *http.Client
}

func New(cfg contracts.ServiceConfig) (any, error) {
	endpoint := defaultEndpoint
	if cfg.Custom != nil && cfg.Custom["endpoint"] != "" {
		endpoint = cfg.Custom["endpoint"]
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "ollama"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Service{
		endpoint:   endpoint,
		model:      model,
		providerID: provider,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

// EstimateCost is always zero — a locally-hosted model has no per-token
// billing to estimate.
func (s *Service) EstimateCost(req contracts.TextRequest) float64 { return 0 }

func (s *Service) Execute(ctx context.Context, req contracts.TextRequest) (contracts.TextResponse, error) {
	options := map[string]any{
		"temperature": req.Temperature,
	}
	if req.TopP > 0 {
		options["top_p"] = req.TopP
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(req.StopSequences) > 0 {
		options["stop"] = req.StopSequences
	}

	body, err := json.Marshal(generateRequest{
		Model:   s.model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "ollamatext", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.InvalidRequest, "ollamatext", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "ollamatext", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.Transient, "ollamatext", fmt.Errorf("ollama error: %d - %s", resp.StatusCode, string(bodyBytes)))
	}

	var ollamaResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return contracts.TextResponse{}, pipelineerr.New(pipelineerr.SchemaMismatch, "ollamatext", err)
	}

	return contracts.TextResponse{
		Text:         ollamaResp.Response,
		UsageTokens:  len(ollamaResp.Context),
		Model:        s.model,
		Provider:     s.providerID,
		CostEstimate: 0,
	}, nil
}

func (s *Service) ExecuteStructured(ctx context.Context, prompt string, schema map[string]any, out any) error {
	return contracts.ExecuteStructuredJSON(ctx, s, prompt, schema, out)
}

func (s *Service) Chat(ctx context.Context, messages []contracts.ChatMessage, opts contracts.ChatOptions) (contracts.TextResponse, error) {
	return contracts.FlattenChat(ctx, s.Execute, messages, opts)
}
