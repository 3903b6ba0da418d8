package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/semcoach/llm"
)

// ClaudeProvider implements the Anthropic messages API.
// System turns are sent as the top-level system field. JSON mode is not
// available, so structured requests are sent as plain text.
type ClaudeProvider struct{}

const (
	// anthropicVersion is the API version to use.
	anthropicVersion = "2023-06-01"

	// claudeMaxTokens is sent when the request does not set MaxTokens.
	claudeMaxTokens = 4096
)

func init() {
	llm.RegisterProvider(&ClaudeProvider{})
}

// Name returns the provider identifier.
func (c *ClaudeProvider) Name() llm.ProviderID {
	return llm.ProviderClaude
}

// BuildURL constructs the messages endpoint.
func (c *ClaudeProvider) BuildURL(baseURL, _ string) string {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return baseURL + "/v1/messages"
}

// SetHeaders adds Anthropic authentication and version headers.
func (c *ClaudeProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	req.Header.Set("anthropic-version", anthropicVersion)
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildRequestBody creates the Anthropic request body.
func (c *ClaudeProvider) BuildRequestBody(model string, req llm.Request) ([]byte, error) {
	system, rest := splitSystem(req.Messages)

	messages := make([]claudeMessage, 0, len(rest))
	for _, msg := range rest {
		messages = append(messages, claudeMessage{Role: string(msg.Role), Content: msg.Content})
	}
	// The API requires at least one user message.
	if len(messages) == 0 && system != "" {
		messages = append(messages, claudeMessage{Role: string(llm.RoleUser), Content: system})
		system = ""
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeMaxTokens
	}

	return json.Marshal(claudeRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    messages,
		System:      system,
		Temperature: req.TemperatureOrDefault(),
	})
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// ParseResponse concatenates the text blocks of the response. A response
// whose content holds only non-text blocks is rejected.
func (c *ClaudeProvider) ParseResponse(body []byte) (string, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse claude response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", nil
	}

	var sb strings.Builder
	textBlocks := 0
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
			textBlocks++
		}
	}
	if textBlocks == 0 {
		return "", fmt.Errorf("unexpected claude content type: %s", resp.Content[0].Type)
	}
	return sb.String(), nil
}
