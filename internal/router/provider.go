// Package router aggregates tools from heterogeneous providers, selects a
// provider per call, performs failover, and normalizes result shapes.
package router

import (
	"context"
	"errors"
	"fmt"
)

// Descriptor describes a tool as exposed to the model. ProviderID is
// stamped by the router at aggregation time.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	ProviderID  string         `json:"provider_id,omitempty"`
}

// Provider is a source of tools: local in-process modules or a remote
// tool-server session. Providers own their underlying connections.
type Provider interface {
	// ID returns the configured provider name.
	ID() string

	// Priority returns the configured priority; higher wins ties.
	Priority() int

	// Capabilities returns the provider's capability tags.
	Capabilities() []string

	// Available reports whether the provider can accept calls right now.
	Available() bool

	// ListTools returns the provider's current tool catalog.
	ListTools(ctx context.Context) ([]Descriptor, error)

	// Call invokes a tool and returns a normalized envelope. A returned
	// error means the dispatch itself failed (transport, panic); a
	// tool-reported failure is an envelope with status error.
	Call(ctx context.Context, name string, args map[string]any) (Envelope, error)

	// Disconnect releases the provider's resources. Must be idempotent.
	Disconnect() error
}

// Sentinel errors for the router package.
var (
	// ErrNoProvider is returned when no available provider exposes a tool.
	ErrNoProvider = errors.New("no provider available")
)

// NoProviderError carries the tool name that could not be routed.
type NoProviderError struct {
	Tool string
}

// Error implements the error interface.
func (e *NoProviderError) Error() string {
	if e.Tool == "" {
		return "no provider available"
	}
	return fmt.Sprintf("no provider available for tool: %s", e.Tool)
}

// Is allows errors.Is to match against ErrNoProvider.
func (e *NoProviderError) Is(target error) bool {
	return target == ErrNoProvider
}

// Unwrap returns the underlying sentinel error.
func (e *NoProviderError) Unwrap() error {
	return ErrNoProvider
}
