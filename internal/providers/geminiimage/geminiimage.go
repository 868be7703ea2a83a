// Package geminiimage adapts Gemini's image-generation REST endpoint to
// the C2 ImageService contract. Adapted near-verbatim from
// internal/services/gemini.go's GenerateImage: same style-reference
// image compositing via inline base64 data, same composeImagePrompt
// structure, same generateContent request/response shapes — narrowed to
// the Style/AspectRatio/Count fields ImageRequest exposes and widened to
// write each returned image to disk since ImageResponse carries paths.
package geminiimage

import (
	"bytes"
	"context"
	"encoding/base64"
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

const defaultModel = "gemini-3-pro-image-preview"

// geminiAPIBase is a var (not const) so tests can redirect it at a fake
// server instead of reaching the real Gemini endpoint.
var geminiAPIBase = "https://generativelanguage.googleapis.com"

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content responseContent `json:"content"`
}

type responseContent struct {
	Parts []responsePart `json:"parts"`
}

type responsePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type Service struct {
	apiKey             string
	model              string
	styleReferencePath string
	styleImageCache    []byte
	styleMimeType      string
	outputDir          string
	providerID         contracts.ProviderID
	client             *http.Client
}

func New(cfg contracts.ServiceConfig) (any, error) {
	apiKey := cfg.Credentials.Token
	if apiKey == "" {
		return nil, pipelineerr.New(pipelineerr.ConfigMissing, "geminiimage", fmt.Errorf("missing API key"))
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}
	stylePath := "assets/style-reference/sample.jpeg"
	if cfg.Custom != nil && cfg.Custom["style_reference_path"] != "" {
		stylePath = cfg.Custom["style_reference_path"]
	}
	outputDir := "artifacts/images"
	if cfg.Custom != nil && cfg.Custom["output_dir"] != "" {
		outputDir = cfg.Custom["output_dir"]
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "gemini"
	}
	return &Service{
		apiKey:             apiKey,
		model:              model,
		styleReferencePath: stylePath,
		outputDir:          outputDir,
		providerID:         provider,
		client:             &http.Client{Timeout: 300 * time.Second},
	}, nil
}

func (s *Service) ProviderID() contracts.ProviderID { return s.providerID }

func (s *Service) EstimateCost(req contracts.ImageRequest) float64 {
	count := req.Count
	if count < 1 {
		count = 1
	}
	return float64(count) * 0.04
}

func (s *Service) Execute(ctx context.Context, req contracts.ImageRequest) (contracts.ImageResponse, error) {
	start := time.Now()
	count := req.Count
	if count < 1 {
		count = 1
	}

	styleData, mimeType, err := s.loadStyleReferenceImage()
	if err != nil {
		styleData = nil
	}

	promptText := composeImagePrompt(req)

	var paths []string
	for i := 0; i < count; i++ {
		reqBody := generateContentRequest{
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"TEXT", "IMAGE"},
				ImageConfig: &imageConfig{
					AspectRatio: req.AspectRatio,
					ImageSize:   "4K",
				},
			},
		}

		parts := []part{{Text: promptText}}
		if styleData != nil {
			parts = append(parts, part{
				InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(styleData),
				},
			})
		}
		reqBody.Contents = []content{{Role: "user", Parts: parts}}

		imageData, err := s.doGenerateContent(ctx, reqBody)
		if err != nil {
			return contracts.ImageResponse{}, err
		}

		path, err := s.writeImage(imageData)
		if err != nil {
			return contracts.ImageResponse{}, pipelineerr.New(pipelineerr.AssetCorrupt, "geminiimage", err)
		}
		paths = append(paths, path)
	}

	return contracts.ImageResponse{
		ArtifactPaths: paths,
		Provider:      s.providerID,
		GenerationMS:  time.Since(start).Milliseconds(),
	}, nil
}

func (s *Service) loadStyleReferenceImage() ([]byte, string, error) {
	if s.styleImageCache != nil {
		return s.styleImageCache, s.styleMimeType, nil
	}

	paths := []string{
		s.styleReferencePath,
		filepath.Join(".", s.styleReferencePath),
		filepath.Join("/app", s.styleReferencePath),
	}

	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("could not load style reference from %v: %w", paths, err)
	}

	mimeType := "image/jpeg"
	if filepath.Ext(s.styleReferencePath) == ".png" {
		mimeType = "image/png"
	}

	s.styleImageCache = data
	s.styleMimeType = mimeType
	return data, mimeType, nil
}

func (s *Service) doGenerateContent(ctx context.Context, reqBody generateContentRequest) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.InvalidRequest, "geminiimage", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", geminiAPIBase, s.model, s.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.InvalidRequest, "geminiimage", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.Transient, "geminiimage", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pipelineerr.New(pipelineerr.Transient, "geminiimage", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pipelineerr.New(pipelineerr.Transient, "geminiimage", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var geminiResp generateContentResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return nil, pipelineerr.New(pipelineerr.SchemaMismatch, "geminiimage", err)
	}
	if len(geminiResp.Candidates) == 0 {
		return nil, pipelineerr.New(pipelineerr.Transient, "geminiimage", fmt.Errorf("no candidates in response"))
	}

	var textParts []string
	for _, p := range geminiResp.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			imageData, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, pipelineerr.New(pipelineerr.SchemaMismatch, "geminiimage", err)
			}
			return imageData, nil
		}
		if p.Text != "" {
			textParts = append(textParts, p.Text)
		}
	}

	if len(textParts) > 0 {
		n := len(textParts[0])
		if n > 200 {
			n = 200
		}
		return nil, pipelineerr.New(pipelineerr.PolicyBlocked, "geminiimage", fmt.Errorf("gemini returned text instead of image: %s", textParts[0][:n]))
	}
	return nil, pipelineerr.New(pipelineerr.Transient, "geminiimage", fmt.Errorf("no image data in response"))
}

func (s *Service) writeImage(data []byte) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.outputDir, uuid.New().String()+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// composeImagePrompt mirrors the teacher's style-reference-plus-scene
// prompt structure, narrowed to the fields ImageRequest exposes.
func composeImagePrompt(req contracts.ImageRequest) string {
	var prompt bytes.Buffer

	prompt.WriteString("STYLE REFERENCE: Use the attached reference image as the style guide. Copy ONLY the artistic style, brushwork, lighting, color palette, and realism from the reference image. Do NOT copy the subject, people, or scene from the reference.\n\n")

	if req.Style != "" {
		prompt.WriteString(fmt.Sprintf("VISUAL STYLE: Render this scene in a %q aesthetic. This overrides any conflicting style cues.\n\n", req.Style))
	}

	prompt.WriteString("SCENE TO DEPICT:\n")
	prompt.WriteString(req.Prompt)

	if req.NegativePrompt != "" {
		prompt.WriteString(fmt.Sprintf("\n\nAVOID: %s", req.NegativePrompt))
	}

	orientLabel := "Portrait"
	switch req.AspectRatio {
	case "16:9":
		orientLabel = "Landscape"
	case "1:1":
		orientLabel = "Square"
	case "4:5":
		orientLabel = "Tall"
	}
	prompt.WriteString(fmt.Sprintf("\n\nOutput: %s %s, highest quality 4K.", orientLabel, req.AspectRatio))

	return prompt.String()
}
