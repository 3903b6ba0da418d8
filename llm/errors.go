package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Classification tags why a provider call failed.
type Classification string

const (
	// ClassCredentialsMissing means the provider has no usable credential.
	ClassCredentialsMissing Classification = "credentials-missing"

	// ClassRateLimited means the provider rejected the call for quota reasons.
	ClassRateLimited Classification = "rate-limited"

	// ClassTransient covers network failures and upstream 5xx responses.
	ClassTransient Classification = "transient"

	// ClassFatal covers malformed requests, auth failures and unparseable responses.
	ClassFatal Classification = "fatal"
)

// ProviderError is a classified failure from a single provider.
type ProviderError struct {
	Provider ProviderID
	Class    Classification
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with a provider and classification.
func NewProviderError(provider ProviderID, class Classification, err error) error {
	return &ProviderError{Provider: provider, Class: class, Err: err}
}

// ClassOf returns the classification of err, or ClassTransient for
// errors that did not come from a provider backend.
func ClassOf(err error) Classification {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	var cm *CredentialsMissingError
	if errors.As(err, &cm) {
		return ClassCredentialsMissing
	}
	return ClassTransient
}

// IsRateLimited returns true if the error is a provider quota rejection.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassRateLimited
}

// IsTransient returns true if the error is a network or upstream server failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassTransient
}

// IsFatal returns true if the error will not succeed against the same provider.
func IsFatal(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassFatal
}

// IsCredentialsMissing reports whether err means no credential was configured,
// either for a single provider or for every provider in the router.
func IsCredentialsMissing(err error) bool {
	var cm *CredentialsMissingError
	if errors.As(err, &cm) {
		return true
	}
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassCredentialsMissing
}

// rateLimitVocabulary lists substrings that upstream APIs use for quota errors.
var rateLimitVocabulary = []string{
	"rate limit",
	"rate_limit",
	"requests per min (rpm)",
	"tokens per min (tpm)",
	"quota",
	"resource_exhausted",
	"429",
}

// IsRateLimitMessage reports whether msg reads like a quota rejection.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, v := range rateLimitVocabulary {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// CredentialsMissingError is returned when no provider in the router has a
// credential. Keys names every configuration key that could fix it.
type CredentialsMissingError struct {
	Keys []string
}

func (e *CredentialsMissingError) Error() string {
	if len(e.Keys) == 0 {
		return "no AI provider configured"
	}
	return "no AI provider credentials configured: set one of " + strings.Join(e.Keys, ", ")
}

// ProviderFailure records one provider's failure within a routed call.
type ProviderFailure struct {
	Provider ProviderID
	Err      error
}

// AggregateError is returned when every credentialed provider failed.
type AggregateError struct {
	Failures []ProviderFailure
}

func (e *AggregateError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return "All AI providers failed. Errors: " + strings.Join(parts, "; ")
}

// Unwrap exposes each provider failure to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
