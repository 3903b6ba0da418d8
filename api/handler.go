// Package api serves the coaching workflow and the recommendation pipeline
// over HTTP/JSON.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/c360studio/semcoach/coaching"
	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/recommend"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// Caller identity headers. Authentication happens in front of this service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// StatusReporter reports provider configuration. *llm.Router satisfies it.
type StatusReporter interface {
	Status() []llm.ProviderStatus
}

// Services is one generation of the wired application. A config reload
// builds a new one and swaps it in.
type Services struct {
	Coaching    *coaching.Service
	Recommender coaching.Recommender
	Providers   StatusReporter
}

// Handler serves the API.
type Handler struct {
	current atomic.Pointer[Services]
	logger  *slog.Logger
}

// NewHandler creates a handler serving s.
func NewHandler(s *Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger}
	h.current.Store(s)
	return h
}

// Swap replaces the services used by subsequent requests. Requests already
// in flight finish on the previous generation.
func (h *Handler) Swap(s *Services) {
	h.current.Store(s)
}

// RegisterHTTPHandlers registers all API handlers under the given prefix.
// The prefix should be the path segment without a trailing slash (e.g. "api").
// Handlers are registered as:
//
//	POST <prefix>/chat/start
//	POST <prefix>/chat/message
//	POST <prefix>/chat/end
//	GET  <prefix>/chat?id=
//	POST <prefix>/reports
//	GET  <prefix>/reports[?id=|?user_id=]
//	GET  <prefix>/issues[?user_id=]
//	POST <prefix>/recommendations
//	GET  <prefix>/providers
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	// Normalise: ensure leading slash and trailing slash.
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"chat/start", h.handleChatStart)
	mux.HandleFunc(prefix+"chat/message", h.handleChatMessage)
	mux.HandleFunc(prefix+"chat/end", h.handleChatEnd)
	mux.HandleFunc(prefix+"chat", h.handleChatGet)
	mux.HandleFunc(prefix+"reports", h.handleReports)
	mux.HandleFunc(prefix+"issues", h.handleIssues)
	mux.HandleFunc(prefix+"recommendations", h.handleRecommendations)
	mux.HandleFunc(prefix+"providers", h.handleProviders)
}

// services returns the current generation, writing a 503 when none is wired.
func (h *Handler) services(w http.ResponseWriter) *Services {
	s := h.current.Load()
	if s == nil || s.Coaching == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Service is not configured")
		return nil
	}
	return s
}

func callerFrom(r *http.Request) coaching.User {
	return coaching.User{
		ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Name: strings.TrimSpace(r.Header.Get(HeaderUserName)),
	}
}

// decodeBody decodes a size-limited JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// ----------------------------------------------------------------------------
// Chat
// ----------------------------------------------------------------------------

// ChatResponse is the JSON response for chat operations.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message,omitempty"`
	Status         string `json:"status"`
}

// ChatMessageRequest is the JSON body for POST chat/message and chat/end.
type ChatMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message,omitempty"`
}

func (h *Handler) handleChatStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.services(w)
	if s == nil {
		return
	}

	user := callerFrom(r)
	if user.ID == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", HeaderUserID+" header is required")
		return
	}

	conv, err := s.Coaching.Start(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ChatResponse{
		ConversationID: conv.ID,
		Message:        lastMessage(conv.Messages),
		Status:         string(conv.Status),
	})
}

func (h *Handler) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.services(w)
	if s == nil {
		return
	}

	var req ChatMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "conversation_id is required")
		return
	}

	conv, err := s.Coaching.Send(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		ConversationID: conv.ID,
		Message:        lastMessage(conv.Messages),
		Status:         string(conv.Status),
	})
}

func (h *Handler) handleChatEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.services(w)
	if s == nil {
		return
	}

	var req ChatMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "conversation_id is required")
		return
	}

	conv, err := s.Coaching.End(r.Context(), req.ConversationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{ConversationID: conv.ID, Status: string(conv.Status)})
}

func (h *Handler) handleChatGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.services(w)
	if s == nil {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "id is required")
		return
	}
	conv, err := s.Coaching.Conversation(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func lastMessage(messages []llm.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

// ----------------------------------------------------------------------------
// Reports and issues
// ----------------------------------------------------------------------------

// GenerateReportRequest is the JSON body for POST reports.
type GenerateReportRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	s := h.services(w)
	if s == nil {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req GenerateReportRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ConversationID == "" {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "conversation_id is required")
			return
		}
		report, err := s.Coaching.GenerateReport(r.Context(), req.ConversationID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, report)

	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			report, err := s.Coaching.Report(r.Context(), id)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, report)
			return
		}
		reports, err := s.Coaching.Reports(r.Context(), r.URL.Query().Get("user_id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleIssues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.services(w)
	if s == nil {
		return
	}

	issues, err := s.Coaching.Issues(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

// ----------------------------------------------------------------------------
// Recommendations and providers
// ----------------------------------------------------------------------------

// RecommendRequest is the JSON body for POST recommendations.
type RecommendRequest struct {
	Report string            `json:"report"`
	Issues []recommend.Issue `json:"issues"`
}

func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.current.Load()
	if s == nil || s.Recommender == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Recommendations are not configured")
		return
	}

	var req RecommendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	for i := range req.Issues {
		req.Issues[i].Category = recommend.ParseCategory(string(req.Issues[i].Category))
		req.Issues[i].Severity = recommend.ParseSeverity(string(req.Issues[i].Severity))
	}

	writeJSON(w, http.StatusOK, s.Recommender.Recommend(r.Context(), req.Report, req.Issues))
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.current.Load()
	providers := []llm.ProviderStatus{}
	if s != nil && s.Providers != nil {
		providers = s.Providers.Status()
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}
