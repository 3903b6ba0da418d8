package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/c360studio/semcoach/coaching"
	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/storage"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// MissingKeys names the configuration keys to set when no AI provider
	// has credentials.
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// writeError maps domain errors to HTTP statuses. "No credentials anywhere"
// and "every provider failing" get distinct statuses since their fixes differ.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *llm.CredentialsMissingError
	var agg *llm.AggregateError

	switch {
	case errors.As(err, &missing):
		writeJSONErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:       "credentials_missing",
			Message:     err.Error(),
			MissingKeys: missing.Keys,
		})
	case errors.As(err, &agg):
		h.logger.ErrorContext(r.Context(), "All AI providers failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadGateway, "providers_failed", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, coaching.ErrEmptyMessage),
		errors.Is(err, coaching.ErrNothingToReport),
		errors.Is(err, coaching.ErrMissingUser):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, coaching.ErrConversationClosed):
		writeJSONError(w, http.StatusConflict, "conversation_closed", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	writeJSONErrorResponse(w, status, ErrorResponse{Error: errorCode, Message: message})
}

func writeJSONErrorResponse(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
