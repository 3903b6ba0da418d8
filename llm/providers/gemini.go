package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/c360studio/semcoach/llm"
)

// GeminiProvider implements the Gemini generateContent API.
// Gemini has no system role here: system turns are merged into the start of
// the first non-system turn, and assistant turns are sent as "model".
type GeminiProvider struct{}

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() llm.ProviderID {
	return llm.ProviderGemini
}

// BuildURL constructs the generateContent endpoint for model.
func (g *GeminiProvider) BuildURL(baseURL, model string) string {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent", baseURL, url.PathEscape(model))
}

// SetHeaders adds the API key header.
func (g *GeminiProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("x-goog-api-key", apiKey)
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

// BuildRequestBody creates the Gemini request body.
func (g *GeminiProvider) BuildRequestBody(_ string, req llm.Request) ([]byte, error) {
	system, rest := splitSystem(req.Messages)

	contents := make([]geminiContent, 0, len(rest)+1)
	for _, msg := range rest {
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	switch {
	case system == "":
	case len(contents) == 0:
		contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: system}}})
	default:
		first := &contents[0].Parts[0]
		first.Text = system + systemSeparator + first.Text
	}

	body := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.TemperatureOrDefault(),
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.WantsJSON() {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	return json.Marshal(body)
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// ParseResponse returns the text of the first candidate, or "" when there is none.
func (g *GeminiProvider) ParseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
