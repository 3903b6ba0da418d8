// Package llm obtains one chat completion from a pool of interchangeable
// providers. Each provider is tried once, in priority order, until one succeeds.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semcoach/model"
)

// maxResponseSize limits the provider response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// DefaultTemperature is applied when a request leaves Temperature nil.
const DefaultTemperature = model.ConversationTemperature

// Role is the author of a chat turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects plain text or structured JSON output.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// Request defines a completion request. It is not modified by the router.
type Request struct {
	// Messages is the ordered chat history.
	Messages []Message

	// Temperature controls randomness. nil uses DefaultTemperature.
	Temperature *float64

	// ResponseFormat requests JSON output on providers that support it.
	ResponseFormat ResponseFormat

	// Model overrides the configured model. Each provider validates it
	// against its allow-list and ignores it when not allowed.
	Model string

	// MaxTokens limits response length. 0 uses the provider default.
	MaxTokens int
}

// TemperatureOrDefault returns the effective sampling temperature.
func (r Request) TemperatureOrDefault() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// WantsJSON reports whether structured output was requested.
func (r Request) WantsJSON() bool {
	return r.ResponseFormat == FormatJSON
}

// NewRequest builds a request tuned for a capability.
func NewRequest(capability model.Capability, messages ...Message) Request {
	p := model.ProfileFor(capability)
	temp := p.Temperature
	req := Request{
		Messages:       messages,
		Temperature:    &temp,
		ResponseFormat: FormatText,
	}
	if p.JSON {
		req.ResponseFormat = FormatJSON
	}
	return req
}

// Result contains a successful completion.
type Result struct {
	// Text is the first text payload. It may be empty.
	Text string

	// Provider is the provider that produced Text.
	Provider ProviderID

	// RequestID correlates the call across log lines.
	RequestID string

	// Duration covers every attempt, failed ones included.
	Duration time.Duration
}

// Backend completes a request against a single provider.
type Backend interface {
	ID() ProviderID
	CredentialKey() string
	Available() bool
	Complete(ctx context.Context, req Request) (string, error)
}

// Endpoint is the resolved configuration for one provider.
type Endpoint struct {
	Provider ProviderID
	APIKey   string
	BaseURL  string
	Model    string
}

// HTTPBackend binds a provider codec to an endpoint and HTTP transport.
type HTTPBackend struct {
	endpoint   Endpoint
	provider   Provider
	catalog    *model.Catalog
	httpClient *http.Client
	logger     *slog.Logger
}

// BackendOption configures an HTTPBackend.
type BackendOption func(*HTTPBackend)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *HTTPBackend) {
		b.httpClient = c
	}
}

// WithCatalog sets the model allow-list used to validate overrides.
func WithCatalog(c *model.Catalog) BackendOption {
	return func(b *HTTPBackend) {
		b.catalog = c
	}
}

// WithBackendLogger sets the logger.
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(b *HTTPBackend) {
		b.logger = logger
	}
}

// NewHTTPBackend creates a backend for ep. It fails only if no codec is
// registered for the endpoint's provider.
func NewHTTPBackend(ep Endpoint, opts ...BackendOption) (*HTTPBackend, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, fmt.Errorf("unknown provider: %s", ep.Provider)
	}

	b := &HTTPBackend{
		endpoint: ep,
		provider: provider,
		catalog:  model.NewDefaultCatalog(),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.endpoint.APIKey = strings.TrimSpace(b.endpoint.APIKey)
	b.endpoint.Model = b.catalog.Resolve(string(ep.Provider), ep.Model)

	return b, nil
}

// ID returns the provider id.
func (b *HTTPBackend) ID() ProviderID {
	return b.endpoint.Provider
}

// CredentialKey returns the configuration key holding this provider's API key.
func (b *HTTPBackend) CredentialKey() string {
	return CredentialKey(b.endpoint.Provider)
}

// Available reports whether a non-blank credential is configured.
func (b *HTTPBackend) Available() bool {
	return b.endpoint.APIKey != ""
}

// Model returns the model used when a request carries no valid override.
func (b *HTTPBackend) Model() string {
	return b.endpoint.Model
}

func (b *HTTPBackend) modelFor(req Request) string {
	if req.Model != "" && b.catalog.Allowed(string(b.endpoint.Provider), req.Model) {
		return req.Model
	}
	return b.endpoint.Model
}

// Complete executes a single HTTP request to the provider.
func (b *HTTPBackend) Complete(ctx context.Context, req Request) (string, error) {
	id := b.endpoint.Provider
	if !b.Available() {
		return "", NewProviderError(id, ClassCredentialsMissing,
			fmt.Errorf("%s is not set", b.CredentialKey()))
	}

	modelName := b.modelFor(req)
	url := b.provider.BuildURL(b.endpoint.BaseURL, modelName)

	body, err := b.provider.BuildRequestBody(modelName, req)
	if err != nil {
		return "", NewProviderError(id, ClassFatal, fmt.Errorf("build request body: %w", err))
	}

	b.logger.Debug("Sending completion request",
		"provider", id,
		"model", modelName,
		"messages", len(req.Messages),
		"json", req.WantsJSON())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", NewProviderError(id, ClassFatal, fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	b.provider.SetHeaders(httpReq, b.endpoint.APIKey)

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(id, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", NewProviderError(id, ClassTransient, fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(id, httpResp.StatusCode, respBody)
	}

	text, err := b.provider.ParseResponse(respBody)
	if err != nil {
		return "", NewProviderError(id, ClassFatal, err)
	}
	return text, nil
}

// classifyTransportError tags network failures. A rate-limit message from a
// proxy still counts as rate limiting.
func classifyTransportError(id ProviderID, err error) error {
	wrapped := fmt.Errorf("HTTP request failed: %w", err)
	if IsRateLimitMessage(err.Error()) {
		return NewProviderError(id, ClassRateLimited, wrapped)
	}
	return NewProviderError(id, ClassTransient, wrapped)
}

// maxErrorBodyRunes bounds how much of an error body is kept in the message.
const maxErrorBodyRunes = 200

// classifyHTTPError determines the failure class of a non-200 response.
func classifyHTTPError(id ProviderID, statusCode int, body []byte) error {
	bodyStr := string(body)
	if r := []rune(bodyStr); len(r) > maxErrorBodyRunes {
		bodyStr = string(r[:maxErrorBodyRunes]) + "..."
	}

	err := fmt.Errorf("API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewProviderError(id, ClassRateLimited, err)
	case IsRateLimitMessage(bodyStr):
		// Gemini reports exhausted quota as 403/400 with RESOURCE_EXHAUSTED.
		return NewProviderError(id, ClassRateLimited, err)
	case statusCode >= 500:
		return NewProviderError(id, ClassTransient, err)
	case statusCode == http.StatusRequestTimeout:
		return NewProviderError(id, ClassTransient, err)
	default:
		return NewProviderError(id, ClassFatal, err)
	}
}
