package assist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider implements Provider using Google Gemini.
type GeminiProvider struct {
	name   string
	model  string
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. Extra client options such as
// option.WithEndpoint are passed through to genai.
func NewGeminiProvider(ctx context.Context, name, model, apiKey string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if name == "" {
		name = "gemini"
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiProvider{name: name, model: model, client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return p.name
}

// Generate calls GenerateContent on the configured model.
func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := p.client.GenerativeModel(p.model)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens)) //nolint:gosec // bounded by caller
	}
	if req.SystemMsg != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemMsg))
	}
	if req.Format == FormatJSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", geminiError(err)
	}
	return responseText(resp)
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func geminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: gemini: %w", ErrQuotaExceeded, err)
	}
	if isQuotaMessage(err.Error()) {
		return fmt.Errorf("%w: gemini: %w", ErrQuotaExceeded, err)
	}
	return fmt.Errorf("gemini generate: %w", err)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in gemini response")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text parts in gemini response")
	}
	return sb.String(), nil
}

func isQuotaMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "quota") || strings.Contains(s, "resource_exhausted") ||
		strings.Contains(s, "rate limit")
}
