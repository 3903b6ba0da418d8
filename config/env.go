package config

import (
	"strings"
)

// Environment variable names read by ApplyEnv.
const (
	EnvProviderPriority = "AI_PROVIDER_PRIORITY"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvGeminiKey        = "GEMINI_API_KEY"
	EnvAnthropicKey     = "ANTHROPIC_API_KEY"
	EnvOpenAIModel      = "OPENAI_MODEL"
	EnvGeminiModel      = "GEMINI_MODEL"
	EnvClaudeModel      = "CLAUDE_MODEL"
	EnvYouTubeKey       = "YOUTUBE_API_KEY"
	EnvGoogleKey        = "GOOGLE_API_KEY"
	EnvGoogleCSEID      = "GOOGLE_CSE_ID"
	EnvNATSURL          = "NATS_URL"
	EnvAddr             = "SEMCOACH_ADDR"
)

// ApplyEnv overlays environment values onto c. Blank values are ignored.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	if v := get(EnvProviderPriority); v != "" {
		c.Providers.Priority = ParsePriority(v)
	}

	setIfNonEmpty(&c.Providers.OpenAI.APIKey, get(EnvOpenAIKey))
	setIfNonEmpty(&c.Providers.Gemini.APIKey, get(EnvGeminiKey))
	setIfNonEmpty(&c.Providers.Claude.APIKey, get(EnvAnthropicKey))
	setIfNonEmpty(&c.Providers.OpenAI.Model, get(EnvOpenAIModel))
	setIfNonEmpty(&c.Providers.Gemini.Model, get(EnvGeminiModel))
	setIfNonEmpty(&c.Providers.Claude.Model, get(EnvClaudeModel))

	setIfNonEmpty(&c.Search.YouTube.APIKey, get(EnvYouTubeKey))
	// One Google key serves both Custom Search and Books.
	setIfNonEmpty(&c.Search.Web.APIKey, get(EnvGoogleKey))
	setIfNonEmpty(&c.Search.Books.APIKey, get(EnvGoogleKey))
	setIfNonEmpty(&c.Search.Web.EngineID, get(EnvGoogleCSEID))

	setIfNonEmpty(&c.Storage.NATSURL, get(EnvNATSURL))
	setIfNonEmpty(&c.Server.Addr, get(EnvAddr))
}

// ParsePriority splits a comma-separated provider list, trimming and
// lowercasing entries and dropping blanks.
func ParsePriority(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
