// Package search fans recommendation queries out to the video, article and
// book sources and normalizes their results into candidates.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semcoach/recommend"
)

const (
	// maxResponseSize bounds how much of an upstream response is read.
	maxResponseSize = 2 * 1024 * 1024

	// maxDescriptionRunes bounds candidate descriptions.
	maxDescriptionRunes = 200

	defaultHTTPTimeout = 15 * time.Second
)

// Backend is one search source.
type Backend interface {
	// Source is the candidate category the backend produces.
	Source() recommend.Source
	// Configured reports whether the backend has the credentials it needs.
	// Unconfigured backends are never called.
	Configured() bool
	// Search returns at most limit candidates for query.
	Search(ctx context.Context, query string, limit int) ([]recommend.Candidate, error)
}

// BackendOption configures a backend.
type BackendOption func(*endpoint)

// WithBaseURL overrides the upstream API URL.
func WithBaseURL(u string) BackendOption {
	return func(e *endpoint) {
		if u != "" {
			e.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) BackendOption {
	return func(e *endpoint) {
		if c != nil {
			e.client = c
		}
	}
}

// endpoint holds what every Google-hosted backend shares.
type endpoint struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newEndpoint(apiKey, defaultBase string, opts []BackendOption) endpoint {
	e := endpoint{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBase,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// getJSON issues a GET and decodes the JSON body into v.
func (e endpoint) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), maxDescriptionRunes)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// newCandidate fills the fields every backend sets the same way.
func newCandidate(src recommend.Source, title, defaultTitle, link, description, reason string) recommend.Candidate {
	title = plainText(title)
	if title == "" {
		title = defaultTitle
	}
	return recommend.Candidate{
		ID:          recommend.CandidateID(link),
		Title:       title,
		URL:         link,
		Source:      src,
		Description: truncate(plainText(description), maxDescriptionRunes),
		Reason:      reason,
	}
}
