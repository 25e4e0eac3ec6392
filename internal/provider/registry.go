package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service types accepted in configuration.
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeLocal     = "local"
)

// ServiceConfig describes one configured LLM service.
type ServiceConfig struct {
	Type           string  `mapstructure:"type" yaml:"type"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Model          string  `mapstructure:"model" yaml:"model"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c ServiceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Sentinel errors for the provider package.
var (
	// ErrNoProvider is returned when no provider matches a request.
	ErrNoProvider = errors.New("no LLM provider configured")
	// ErrUnknownType is returned for unrecognized service types.
	ErrUnknownType = errors.New("unknown LLM service type")
)

// Registry holds the constructed providers keyed by service name.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	defaultName string
}

// NewRegistry builds providers from the service table. Services that fail
// to construct are reported; the registry is still usable when at least
// the default service constructed.
func NewRegistry(defaultName string, services map[string]ServiceConfig) (*Registry, error) {
	r := &Registry{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
	}

	var errs []error
	for name, svc := range services {
		p, err := build(name, svc)
		if err != nil {
			slog.Warn("registry: service not constructed", "service", name, "error", err)
			errs = append(errs, fmt.Errorf("service %s: %w", name, err))
			continue
		}
		r.providers[name] = p
	}

	if len(r.providers) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrNoProvider, errors.Join(errs...))
		}
		return nil, ErrNoProvider
	}
	if _, ok := r.providers[defaultName]; !ok {
		return nil, fmt.Errorf("%w: default service %q not constructed", ErrNoProvider, defaultName)
	}

	return r, nil
}

// build constructs a provider from a service config.
func build(name string, svc ServiceConfig) (Provider, error) {
	switch svc.Type {
	case TypeOpenAI, TypeLocal:
		// Local services speak the OpenAI-compatible API on a custom
		// base URL; credentials are optional there.
		return NewOpenAIProvider(name, OpenAIConfig{
			APIKey:      svc.APIKey,
			BaseURL:     svc.BaseURL,
			Model:       svc.Model,
			MaxTokens:   svc.MaxTokens,
			Temperature: svc.Temperature,
			Timeout:     svc.Timeout(),
		})
	case TypeAnthropic:
		return NewAnthropicProvider(name, AnthropicConfig{
			APIKey:      svc.APIKey,
			BaseURL:     svc.BaseURL,
			Model:       svc.Model,
			MaxTokens:   svc.MaxTokens,
			Temperature: svc.Temperature,
			Timeout:     svc.Timeout(),
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, svc.Type)
	}
}

// Default returns the default provider.
func (r *Registry) Default() (Provider, error) {
	return r.Get(r.defaultName)
}

// Get returns a provider by service name; empty name means the default.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, name)
	}
	return p, nil
}

// Names returns the configured service names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}
