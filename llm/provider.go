package llm

import (
	"net/http"
	"sync"
)

// ProviderID identifies one chat-completion backend.
type ProviderID string

const (
	ProviderOpenAI ProviderID = "openai"
	ProviderGemini ProviderID = "gemini"
	ProviderClaude ProviderID = "claude"
)

// DefaultPriority is the provider order used when none is configured.
var DefaultPriority = []ProviderID{ProviderOpenAI, ProviderGemini, ProviderClaude}

// credentialKeys maps each provider to the configuration key holding its API key.
var credentialKeys = map[ProviderID]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
	ProviderClaude: "ANTHROPIC_API_KEY",
}

// CredentialKey returns the configuration key for a provider's API key.
func CredentialKey(id ProviderID) string {
	if k, ok := credentialKeys[id]; ok {
		return k
	}
	return ""
}

// Provider translates the uniform request into one vendor's wire format.
// Implementations are stateless codecs; credentials and transport live in HTTPBackend.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderID

	// BuildURL constructs the full completion endpoint for a model.
	BuildURL(baseURL, model string) string

	// SetHeaders adds authentication and version headers.
	SetHeaders(req *http.Request, apiKey string)

	// BuildRequestBody creates the JSON request body.
	BuildRequestBody(model string, req Request) ([]byte, error)

	// ParseResponse extracts the first text payload. A well-formed response
	// with no content yields an empty string and no error.
	ParseResponse(body []byte) (string, error)
}

var (
	providerRegistry = make(map[ProviderID]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider codec to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider codec by id.
func GetProvider(id ProviderID) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[id]
}

// ListProviders returns all registered provider ids.
func ListProviders() []ProviderID {
	providerMu.RLock()
	defer providerMu.RUnlock()

	ids := make([]ProviderID, 0, len(providerRegistry))
	for id := range providerRegistry {
		ids = append(ids, id)
	}
	return ids
}
