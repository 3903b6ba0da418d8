package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semcoach/llm"
	_ "github.com/c360studio/semcoach/llm/providers"
	"github.com/c360studio/semcoach/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "chat.1.txt", "first\n")
	writeFixture(t, dir, "chat.2.txt", "second")
	writeFixture(t, dir, "chat.txt", "fallback")
	writeFixture(t, dir, "planning.json", `{"queries":["a"]}`)
	writeFixture(t, dir, "notes.md", "ignored")

	fixtures, err := loadFixtures(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "fallback"}, fixtures["chat"])
	assert.Equal(t, []string{`{"queries":["a"]}`}, fixtures["planning"])
	assert.NotContains(t, fixtures, "notes")
}

func TestLoadFixtures_Errors(t *testing.T) {
	_, err := loadFixtures(t.TempDir())
	assert.ErrorContains(t, err, "no fixture files")

	dir := t.TempDir()
	writeFixture(t, dir, "ranking.json", `{"selections": [`)
	_, err = loadFixtures(dir)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"以下の日報と課題をもとに、検索クエリを作成してください。", kindPlanning},
		{"学習リソースを候補の中から最大15件選んでください。", kindRanking},
		{"次の1on1コーチングセッションから振り返りレポートを作成してください。", kindReport},
		{"次の1on1の会話から、組織として取り組むべき課題を抽出してください。", kindIssues},
		{"おはようございます", kindChat},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.prompt), tt.prompt)
	}
}

func TestSequentialFixtures(t *testing.T) {
	s := newServer(map[string][]string{"chat": {"one", "two"}}, nil, quietLogger())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	router := newRouter(t, srv.URL, llm.ProviderOpenAI)
	var got []string
	for range 3 {
		res, err := router.Complete(context.Background(), llm.NewRequest(model.CapabilityConversation,
			llm.Message{Role: llm.RoleUser, Content: "hello"}))
		require.NoError(t, err)
		got = append(got, res.Text)
	}
	assert.Equal(t, []string{"one", "two", "two"}, got)
}

func TestEveryProviderWireFormat(t *testing.T) {
	for _, id := range []llm.ProviderID{llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderClaude} {
		t.Run(string(id), func(t *testing.T) {
			s := newServer(map[string][]string{"report": {"## 振り返り"}}, nil, quietLogger())
			srv := httptest.NewServer(s.routes())
			defer srv.Close()

			router := newRouter(t, srv.URL, id)
			res, err := router.Complete(context.Background(), llm.NewRequest(model.CapabilityConversation,
				llm.Message{Role: llm.RoleSystem, Content: "あなたはコーチです。"},
				llm.Message{Role: llm.RoleUser, Content: "振り返りレポートを作成してください。"}))
			require.NoError(t, err)
			assert.Equal(t, "## 振り返り", res.Text)
			assert.Equal(t, id, res.Provider)

			reqs := capturedRequests(t, srv.URL, "")
			require.Len(t, reqs, 1)
			assert.Equal(t, string(id), reqs[0].Provider)
			assert.Equal(t, kindReport, reqs[0].Kind)
			assert.Contains(t, reqs[0].Prompt, "あなたはコーチです。")
		})
	}
}

func TestFailingProviderTriggersFailover(t *testing.T) {
	s := newServer(map[string][]string{"chat": {"from fallback"}}, []string{"OpenAI"}, quietLogger())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	router := newRouter(t, srv.URL, llm.ProviderOpenAI, llm.ProviderClaude)
	res, err := router.Complete(context.Background(), llm.NewRequest(model.CapabilityConversation,
		llm.Message{Role: llm.RoleUser, Content: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderClaude, res.Provider)
	assert.Equal(t, "from fallback", res.Text)

	var stats struct {
		TotalCalls      int            `json:"total_calls"`
		CallsByProvider map[string]int `json:"calls_by_provider"`
	}
	getJSON(t, srv.URL+"/stats", &stats)
	assert.Equal(t, 1, stats.TotalCalls)
	assert.Equal(t, 1, stats.CallsByProvider["openai"])
	assert.Equal(t, 1, stats.CallsByProvider["claude"])
}

func TestMissingFixture(t *testing.T) {
	s := newServer(map[string][]string{"chat": {"x"}}, nil, quietLogger())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"課題を抽出してください"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(map[string][]string{"chat": {"x"}}, nil, quietLogger())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestsFilter(t *testing.T) {
	s := newServer(map[string][]string{"chat": {"x"}, "planning": {`{"queries":[]}`}}, nil, quietLogger())
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	router := newRouter(t, srv.URL, llm.ProviderGemini)
	for _, prompt := range []string{"hi", "検索クエリを作成してください", "again"} {
		_, err := router.Complete(context.Background(), llm.NewRequest(model.CapabilityConversation,
			llm.Message{Role: llm.RoleUser, Content: prompt}))
		require.NoError(t, err)
	}

	chat := capturedRequests(t, srv.URL, "?kind=chat")
	require.Len(t, chat, 2)
	assert.Equal(t, 2, chat[1].CallIndex)
	assert.Len(t, capturedRequests(t, srv.URL, "?provider=openai"), 0)
}

func newRouter(t *testing.T, baseURL string, priority ...llm.ProviderID) *llm.Router {
	t.Helper()
	paths := map[llm.ProviderID]string{
		llm.ProviderOpenAI: "/v1",
		llm.ProviderGemini: "/v1beta",
		llm.ProviderClaude: "",
	}
	endpoints := make(map[llm.ProviderID]llm.Endpoint, len(priority))
	for _, id := range priority {
		endpoints[id] = llm.Endpoint{Provider: id, APIKey: "test-key", BaseURL: baseURL + paths[id]}
	}
	backends := llm.BuildBackends(priority, endpoints, quietLogger(), llm.WithCatalog(model.NewDefaultCatalog()))
	require.Len(t, backends, len(priority))
	return llm.NewRouter(backends, llm.WithLogger(quietLogger()))
}

func capturedRequests(t *testing.T, baseURL, query string) []capturedRequest {
	t.Helper()
	var body struct {
		Requests []capturedRequest `json:"requests"`
	}
	getJSON(t, baseURL+"/requests"+query, &body)
	return body.Requests
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
