// Package brain provides the LLM capability layer behind easel's query
// generator and image evaluator. Providers call the vendor REST APIs
// directly; callers treat any failure as "capability unavailable" and fall
// back per their own contracts.
package brain

import (
	"context"
)

// Provider is the interface for AI providers
type Provider interface {
	// Name returns the provider name (e.g., "claude", "openai")
	Name() string

	// Available returns true if the provider is configured and ready
	Available() bool

	// Generate sends a prompt and returns the response
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to an AI provider
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Response is the AI provider's response
type Response struct {
	Content string
	Model   string
}

// Manager holds multiple AI providers with preferred-first fallback.
type Manager struct {
	providers []Provider
	preferred string
}

// NewManager creates an empty provider manager.
func NewManager() *Manager {
	return &Manager{providers: make([]Provider, 0)}
}

// Add registers a provider.
func (m *Manager) Add(p Provider) {
	m.providers = append(m.providers, p)
}

// SetPreferred sets the preferred provider by name.
func (m *Manager) SetPreferred(name string) {
	m.preferred = name
}

// Name implements Provider.
func (m *Manager) Name() string { return "manager" }

// Available reports whether any registered provider is usable.
func (m *Manager) Available() bool {
	return m.pick() != nil
}

// Generate delegates to the first available provider, preferring the
// configured one.
func (m *Manager) Generate(ctx context.Context, req Request) (Response, error) {
	p := m.pick()
	if p == nil {
		return Response{}, ErrNoProvider
	}
	return p.Generate(ctx, req)
}

func (m *Manager) pick() Provider {
	if m.preferred != "" {
		for _, p := range m.providers {
			if p.Name() == m.preferred && p.Available() {
				return p
			}
		}
	}
	for _, p := range m.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}
