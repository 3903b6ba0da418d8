package model

import (
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Spec lists the models a provider may run. Allowed entries are glob
// patterns; Default is used when a requested model is absent or not allowed.
type Spec struct {
	Default string   `yaml:"default" json:"default"`
	Allowed []string `yaml:"allowed" json:"allowed"`
}

// Catalog holds the model allow-list for every provider.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewCatalog creates a catalog from per-provider specs.
func NewCatalog(specs map[string]Spec) *Catalog {
	c := &Catalog{specs: make(map[string]Spec, len(specs))}
	for name, s := range specs {
		c.specs[name] = s
	}
	return c
}

// NewDefaultCatalog returns the built-in allow-lists.
func NewDefaultCatalog() *Catalog {
	return NewCatalog(map[string]Spec{
		"openai": {
			Default: "gpt-4o-mini",
			Allowed: []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo", "gpt-4", "gpt-4-turbo"},
		},
		"gemini": {
			Default: "gemini-1.5-flash",
			Allowed: []string{"gemini-*"},
		},
		"claude": {
			Default: "claude-3-5-sonnet-20241022",
			Allowed: []string{"claude-*"},
		},
	})
}

// Allowed reports whether provider may run model.
func (c *Catalog) Allowed(provider, model string) bool {
	if model == "" {
		return false
	}
	c.mu.RLock()
	spec, ok := c.specs[provider]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	for _, pattern := range spec.Allowed {
		if matched, err := doublestar.Match(pattern, model); err == nil && matched {
			return true
		}
	}
	return false
}

// Default returns the hardcoded default model for provider.
func (c *Catalog) Default(provider string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.specs[provider].Default
}

// Resolve returns model if the provider allows it, otherwise the provider default.
func (c *Catalog) Resolve(provider, model string) string {
	if c.Allowed(provider, model) {
		return model
	}
	return c.Default(provider)
}

// Set replaces the spec for a provider. An empty Default keeps the current one
// and an empty Allowed list keeps the current patterns.
func (c *Catalog) Set(provider string, spec Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.specs[provider]
	if spec.Default != "" {
		current.Default = spec.Default
	}
	if len(spec.Allowed) > 0 {
		current.Allowed = append([]string(nil), spec.Allowed...)
	}
	c.specs[provider] = current
}

// Providers returns the provider names with a spec, sorted.
func (c *Catalog) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.specs))
	for name := range c.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
