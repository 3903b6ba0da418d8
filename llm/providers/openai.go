package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/semcoach/llm"
)

// OpenAIProvider implements the OpenAI chat completions API.
// It supports system turns natively and JSON mode via response_format.
type OpenAIProvider struct{}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() llm.ProviderID {
	return llm.ProviderOpenAI
}

// BuildURL constructs the OpenAI API endpoint.
func (o *OpenAIProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds bearer authentication.
func (o *OpenAIProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

// BuildRequestBody creates the OpenAI request body.
func (o *OpenAIProvider) BuildRequestBody(model string, req llm.Request) ([]byte, error) {
	messages := make([]openAIMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openAIMessage{Role: string(msg.Role), Content: msg.Content}
	}

	body := openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.TemperatureOrDefault(),
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = &req.MaxTokens
	}
	if req.WantsJSON() {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	return json.Marshal(body)
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ParseResponse returns the first choice's content, or "" when there is none.
func (o *OpenAIProvider) ParseResponse(body []byte) (string, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
