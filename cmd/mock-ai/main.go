// Package main implements an offline stand-in for the OpenAI, Gemini and
// Claude completion APIs, for exercising semcoach without real credentials.
//
// Usage:
//
//	mock-ai --fixtures ./fixtures --addr :11434 --fail openai
//
// Requests are classified by the prompt they carry (planning, ranking,
// report, issues, or chat) and answered from the fixture file of that name,
// for example "planning.json" or "chat.txt". Numbered files such as
// "chat.1.txt" and "chat.2.txt" are served in order for successive calls;
// once exhausted, the base file repeats.
//
// Providers named by --fail answer 503 so router failover can be observed.
//
// Point semcoach at it with per-provider base URLs:
//
//	providers.openai.base_url: http://localhost:11434/v1
//	providers.gemini.base_url: http://localhost:11434/v1beta
//	providers.claude.base_url: http://localhost:11434
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

// Prompt kinds, used as fixture names.
const (
	kindPlanning = "planning"
	kindRanking  = "ranking"
	kindReport   = "report"
	kindIssues   = "issues"
	kindChat     = "chat"
)

// kindMarkers identify a prompt kind by a phrase its instructions contain.
var kindMarkers = []struct {
	kind   string
	marker string
}{
	{kindPlanning, "検索クエリを作成"},
	{kindRanking, "候補の中から"},
	{kindReport, "振り返りレポートを作成"},
	{kindIssues, "課題を抽出"},
}

// classify returns the kind of the prompt. Anything unrecognized is chat.
func classify(prompt string) string {
	for _, m := range kindMarkers {
		if strings.Contains(prompt, m.marker) {
			return m.kind
		}
	}
	return kindChat
}

// capturedRequest records one served call for /requests.
type capturedRequest struct {
	Provider  string `json:"provider"`
	Kind      string `json:"kind"`
	Model     string `json:"model,omitempty"`
	Prompt    string `json:"prompt"`
	CallIndex int    `json:"call_index"` // 1-indexed per kind
	Timestamp int64  `json:"timestamp"`
}

type server struct {
	fixtures map[string][]string // kind → ordered fixture contents
	failing  map[string]bool
	logger   *slog.Logger

	mu           sync.Mutex
	kindCalls    map[string]int
	providerHits map[string]int
	requests     []capturedRequest
}

func newServer(fixtures map[string][]string, failing []string, logger *slog.Logger) *server {
	s := &server{
		fixtures:     fixtures,
		failing:      make(map[string]bool, len(failing)),
		logger:       logger,
		kindCalls:    make(map[string]int),
		providerHits: make(map[string]int),
	}
	for _, p := range failing {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			s.failing[p] = true
		}
	}
	return s
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)
	mux.HandleFunc("/v1/chat/completions", s.handleOpenAI)
	mux.HandleFunc("/v1/messages", s.handleClaude)
	mux.HandleFunc("/v1beta/models/{action}", s.handleGemini)
	return mux
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixtureDir string
		addr       string
		failing    []string
	)

	cmd := &cobra.Command{
		Use:          "mock-ai",
		Short:        "Serve canned AI completions for local testing",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			if envDir := os.Getenv("MOCK_AI_FIXTURES"); envDir != "" && fixtureDir == "" {
				fixtureDir = envDir
			}
			if fixtureDir == "" {
				fixtureDir = "/fixtures"
			}

			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}
			for kind, seq := range fixtures {
				logger.Info("Loaded fixtures", "kind", kind, "count", len(seq))
			}

			s := newServer(fixtures, failing, logger)
			srv := &http.Server{
				Addr:              addr,
				Handler:           s.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("Mock AI server listening", "addr", addr, "failing", failing)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "Directory containing fixture response files")
	cmd.Flags().StringVar(&addr, "addr", ":11434", "Listen address")
	cmd.Flags().StringSliceVar(&failing, "fail", nil, "Providers that answer 503 (openai, gemini, claude)")
	return cmd
}

// serve picks the fixture for a prompt, or writes an error and returns false.
func (s *server) serve(w http.ResponseWriter, provider, model, prompt string) (string, bool) {
	kind := classify(prompt)

	s.mu.Lock()
	s.providerHits[provider]++
	if s.failing[provider] {
		s.mu.Unlock()
		s.logger.Info("Failing request", "provider", provider, "kind", kind)
		http.Error(w, fmt.Sprintf("%s is unavailable", provider), http.StatusServiceUnavailable)
		return "", false
	}
	seq, ok := s.fixtures[kind]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("No fixture for prompt kind", "provider", provider, "kind", kind)
		http.Error(w, fmt.Sprintf("no fixture for %q", kind), http.StatusNotFound)
		return "", false
	}
	idx := s.kindCalls[kind]
	s.kindCalls[kind]++
	s.requests = append(s.requests, capturedRequest{
		Provider:  provider,
		Kind:      kind,
		Model:     model,
		Prompt:    prompt,
		CallIndex: idx + 1,
		Timestamp: time.Now().UnixMilli(),
	})
	s.mu.Unlock()

	content := seq[min(idx, len(seq)-1)]
	s.logger.Info("Served completion", "provider", provider, "kind", kind, "call", idx+1, "bytes", len(content))
	return content, true
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

type textMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func promptOf(system string, messages []textMessage) string {
	parts := make([]string, 0, len(messages)+1)
	if system != "" {
		parts = append(parts, system)
	}
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func (s *server) handleOpenAI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string        `json:"model"`
		Messages []textMessage `json:"messages"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	content, ok := s.serve(w, "openai", req.Model, promptOf("", req.Messages))
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"id":      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       textMessage{Role: "assistant", Content: content},
			"finish_reason": "stop",
		}},
	})
}

func (s *server) handleClaude(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string        `json:"model"`
		System   string        `json:"system"`
		Messages []textMessage `json:"messages"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	content, ok := s.serve(w, "claude", req.Model, promptOf(req.System, req.Messages))
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"id":          fmt.Sprintf("msg_mock_%d", time.Now().UnixNano()),
		"type":        "message",
		"role":        "assistant",
		"model":       req.Model,
		"content":     []map[string]string{{"type": "text", "text": content}},
		"stop_reason": "end_turn",
	})
}

func (s *server) handleGemini(w http.ResponseWriter, r *http.Request) {
	model, ok := strings.CutSuffix(r.PathValue("action"), ":generateContent")
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	var texts []textMessage
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			texts = append(texts, textMessage{Role: c.Role, Content: p.Text})
		}
	}
	content, ok := s.serve(w, "gemini", model, promptOf("", texts))
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]string{{"text": content}},
			},
			"finishReason": "STOP",
		}},
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStats returns call counts per prompt kind and per provider.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	byKind := make(map[string]int, len(s.kindCalls))
	for k, v := range s.kindCalls {
		byKind[k] = v
	}
	byProvider := make(map[string]int, len(s.providerHits))
	for k, v := range s.providerHits {
		byProvider[k] = v
	}
	total := len(s.requests)
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"total_calls":       total,
		"calls_by_kind":     byKind,
		"calls_by_provider": byProvider,
	})
}

// handleRequests returns captured requests, optionally filtered by
// ?kind= and ?provider=.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	provider := r.URL.Query().Get("provider")

	s.mu.Lock()
	out := make([]capturedRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if kind != "" && req.Kind != kind {
			continue
		}
		if provider != "" && req.Provider != provider {
			continue
		}
		out = append(out, req)
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"requests": out})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// numberedFileRe matches files like "chat.1.txt" or "planning.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.(json|txt)$`)

// loadFixtures reads .json and .txt files from dir into kind → sequence.
// Numbered files come first in numeric order, then the base file.
// JSON fixtures must be valid JSON.
func loadFixtures(dir string) (map[string][]string, error) {
	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(info.Name())
		if info.IsDir() || (ext != ".json" && ext != ".txt") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if ext == ".json" && !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}
		content := strings.TrimRight(string(data), "\n")

		if m := numberedFileRe.FindStringSubmatch(info.Name()); m != nil {
			idx, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][idx] = content
			return nil
		}
		base[strings.TrimSuffix(info.Name(), ext)] = content
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for kind, files := range numbered {
		indices := make([]int, 0, len(files))
		for idx := range files {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[kind] = append(fixtures[kind], files[idx])
		}
	}
	for kind, content := range base {
		fixtures[kind] = append(fixtures[kind], content)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
