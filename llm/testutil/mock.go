// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/semcoach/llm"
)

// MockCompleter is a thread-safe stand-in for *llm.Router.
// It records every request and returns configured results in sequence.
//
// Usage:
//
//	mock := &MockCompleter{
//	    Results: []*llm.Result{
//	        {Text: `{"queries": ["a", "b"]}`, Provider: llm.ProviderOpenAI},
//	    },
//	}
//
//	// Every call fails
//	mock := &MockCompleter{Err: &llm.AggregateError{}}
type MockCompleter struct {
	mu            sync.Mutex
	Results       []*llm.Result // Results to return in sequence
	Err           error         // Error to return (takes precedence over Results)
	requests      []llm.Request
	responseIndex int
}

// Complete returns the next configured result, or Err if set.
func (m *MockCompleter) Complete(_ context.Context, req llm.Request) (*llm.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Results) {
		res := m.Results[m.responseIndex]
		m.responseIndex++
		return res, nil
	}

	return &llm.Result{Text: "", Provider: "mock"}, nil
}

// Texts returns a mock whose calls return each text in order.
func Texts(texts ...string) *MockCompleter {
	m := &MockCompleter{}
	for _, t := range texts {
		m.Results = append(m.Results, &llm.Result{Text: t, Provider: "mock"})
	}
	return m
}

// GetCallCount returns the number of times Complete() was called.
func (m *MockCompleter) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// Reset clears recorded requests and rewinds the result sequence.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responseIndex = 0
}
