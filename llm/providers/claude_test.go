package providers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/c360studio/semcoach/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeProvider_BuildURL(t *testing.T) {
	p := &ClaudeProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "https://api.anthropic.com/v1/messages",
		},
		{
			name:    "custom base URL",
			baseURL: "https://custom.api.com",
			want:    "https://custom.api.com/v1/messages",
		},
		{
			name:    "trailing slash handled",
			baseURL: "https://api.anthropic.com/",
			want:    "https://api.anthropic.com/v1/messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL, "claude-3-5-sonnet-20241022"))
		})
	}
}

func TestClaudeProvider_SetHeaders(t *testing.T) {
	p := &ClaudeProvider{}
	req, _ := http.NewRequest("POST", "https://api.anthropic.com/v1/messages", nil)
	p.SetHeaders(req, "sk-ant")
	assert.Equal(t, "sk-ant", req.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", req.Header.Get("anthropic-version"))
}

func TestClaudeProvider_BuildRequestBody(t *testing.T) {
	p := &ClaudeProvider{}

	t.Run("system extracted to top-level field", func(t *testing.T) {
		body, err := p.BuildRequestBody("claude-3-opus", llm.Request{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: "You are helpful."},
				{Role: llm.RoleSystem, Content: "Be brief."},
				{Role: llm.RoleUser, Content: "Hello"},
				{Role: llm.RoleAssistant, Content: "Hi there!"},
				{Role: llm.RoleUser, Content: "How are you?"},
			},
			MaxTokens: 2048,
		})
		require.NoError(t, err)

		var got claudeRequest
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "You are helpful.\n\nBe brief.", got.System)
		assert.Equal(t, "claude-3-opus", got.Model)
		assert.Equal(t, 2048, got.MaxTokens)
		require.Len(t, got.Messages, 3)
		assert.NotContains(t, string(body), `"role":"system"`)
	})

	t.Run("default max tokens and no json mode", func(t *testing.T) {
		body, err := p.BuildRequestBody("claude-3-opus", llm.Request{
			Messages:       []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
			ResponseFormat: llm.FormatJSON,
		})
		require.NoError(t, err)
		assert.Contains(t, string(body), `"max_tokens":4096`)
		assert.Contains(t, string(body), `"temperature":0.7`)
		assert.NotContains(t, string(body), "json_object")
		assert.NotContains(t, string(body), `"system"`)
	})

	t.Run("only system turns becomes user message", func(t *testing.T) {
		body, err := p.BuildRequestBody("claude-3-opus", llm.Request{
			Messages: []llm.Message{{Role: llm.RoleSystem, Content: "begin"}},
		})
		require.NoError(t, err)

		var got claudeRequest
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Empty(t, got.System)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "user", got.Messages[0].Role)
		assert.Equal(t, "begin", got.Messages[0].Content)
	})
}

func TestClaudeProvider_ParseResponse(t *testing.T) {
	p := &ClaudeProvider{}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "text blocks concatenated",
			body: `{"content":[{"type":"text","text":"Hello, "},{"type":"text","text":"world"}],"stop_reason":"end_turn"}`,
			want: "Hello, world",
		},
		{
			name: "empty content is empty success",
			body: `{"content":[]}`,
			want: "",
		},
		{
			name:    "non-text content rejected",
			body:    `{"content":[{"type":"tool_use"}]}`,
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			body:    `{"content":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseResponse([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProvidersRegistered(t *testing.T) {
	for _, id := range []llm.ProviderID{llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderClaude} {
		assert.NotNil(t, llm.GetProvider(id), "provider %s not registered", id)
	}
}
