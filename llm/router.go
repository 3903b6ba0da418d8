package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultAttemptTimeout bounds a single provider attempt. Worst-case latency
// of a routed call is the sum over every provider.
const DefaultAttemptTimeout = 30 * time.Second

// Router tries providers in priority order and returns the first success.
// There is no retry of the same provider within one call.
type Router struct {
	backends       []Backend
	attemptTimeout time.Duration
	metrics        *Metrics
	logger         *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithAttemptTimeout sets the per-provider timeout. Zero disables it.
func WithAttemptTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.attemptTimeout = d
	}
}

// WithMetrics records attempts to m.
func WithMetrics(m *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a router over backends, which must already be in priority order.
func NewRouter(backends []Backend, opts ...RouterOption) *Router {
	r := &Router{
		backends:       backends,
		attemptTimeout: DefaultAttemptTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BuildBackends creates HTTP backends for every id in priority, in order.
// Unknown ids and ids without a registered codec are skipped with a warning.
// Providers missing from endpoints get a backend with no credential.
func BuildBackends(priority []ProviderID, endpoints map[ProviderID]Endpoint, logger *slog.Logger, opts ...BackendOption) []Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if len(priority) == 0 {
		priority = DefaultPriority
	}

	seen := make(map[ProviderID]bool, len(priority))
	backends := make([]Backend, 0, len(priority))
	for _, id := range priority {
		if seen[id] {
			continue
		}
		seen[id] = true

		ep, ok := endpoints[id]
		if !ok {
			ep = Endpoint{Provider: id}
		}
		ep.Provider = id

		b, err := NewHTTPBackend(ep, append([]BackendOption{WithBackendLogger(logger)}, opts...)...)
		if err != nil {
			logger.Warn("Skipping unknown AI provider in priority list", "provider", id, "error", err)
			continue
		}
		backends = append(backends, b)
	}
	return backends
}

// ProviderStatus describes one configured provider without exposing its credential.
type ProviderStatus struct {
	Provider      ProviderID `json:"provider"`
	CredentialKey string     `json:"credential_key"`
	Configured    bool       `json:"configured"`
	Model         string     `json:"model,omitempty"`
}

// Status lists every provider in priority order.
func (r *Router) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.backends))
	for _, b := range r.backends {
		st := ProviderStatus{
			Provider:      b.ID(),
			CredentialKey: b.CredentialKey(),
			Configured:    b.Available(),
		}
		if m, ok := b.(interface{ Model() string }); ok {
			st.Model = m.Model()
		}
		out = append(out, st)
	}
	return out
}

// Available reports whether at least one provider has a credential.
func (r *Router) Available() bool {
	for _, b := range r.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// Complete sends req to each credentialed provider in priority order and
// returns the first success. It fails with *CredentialsMissingError, without
// any network call, when no provider has a credential, and with
// *AggregateError when every credentialed provider failed.
func (r *Router) Complete(ctx context.Context, req Request) (*Result, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	available, missing := r.preflight()
	if len(available) == 0 {
		r.metrics.recordExhausted(string(ClassCredentialsMissing))
		return nil, &CredentialsMissingError{Keys: missing}
	}

	requestID := uuid.New().String()
	startedAt := time.Now()
	var failures []ProviderFailure

	for _, b := range available {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("completion cancelled after %d attempts: %w", len(failures), err)
		}

		text, err := r.attempt(ctx, b, req)
		if err == nil {
			if text == "" {
				r.logger.Warn("AI provider returned empty text",
					"provider", b.ID(),
					"request_id", requestID)
			}
			return &Result{
				Text:      text,
				Provider:  b.ID(),
				RequestID: requestID,
				Duration:  time.Since(startedAt),
			}, nil
		}

		failures = append(failures, ProviderFailure{Provider: b.ID(), Err: err})
		r.logger.Warn("AI provider failed, trying next",
			"provider", b.ID(),
			"class", ClassOf(err),
			"request_id", requestID,
			"error", err)
	}

	r.metrics.recordExhausted("all_failed")
	return nil, &AggregateError{Failures: failures}
}

// preflight splits backends into credentialed ones and the credential keys
// of the rest. With no backends at all, every known key is reported.
func (r *Router) preflight() ([]Backend, []string) {
	var available []Backend
	var missing []string
	for _, b := range r.backends {
		if b.Available() {
			available = append(available, b)
		} else {
			missing = append(missing, b.CredentialKey())
		}
	}
	if len(r.backends) == 0 {
		for _, id := range DefaultPriority {
			missing = append(missing, CredentialKey(id))
		}
	}
	return available, missing
}

func (r *Router) attempt(ctx context.Context, b Backend, req Request) (string, error) {
	attemptCtx := ctx
	if r.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := b.Complete(attemptCtx, req)
	outcome := "success"
	if err != nil {
		outcome = string(ClassOf(err))
	}
	r.metrics.recordAttempt(b.ID(), outcome, time.Since(start).Seconds())
	return text, err
}
