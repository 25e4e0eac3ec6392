// Package transport provides transport layer implementations for the
// streamable tool-server protocol.
package transport

import (
	"context"
	"errors"
)

// TransportType represents the type of transport.
type TransportType string

const (
	// TransportStreamable represents HTTP POST + SSE based transport.
	TransportStreamable TransportType = "streamable"
	// TransportHTTP represents simple request/response HTTP transport.
	TransportHTTP TransportType = "http"
)

var (
	// ErrTransportClosed is returned when operating on a closed transport.
	ErrTransportClosed = errors.New("transport closed")
	// ErrNotStarted is returned when the transport has not been started.
	ErrNotStarted = errors.New("transport not started")
)

// Transport defines the interface for protocol message transport.
type Transport interface {
	// Send sends a complete JSON-RPC message through the transport.
	Send(ctx context.Context, data []byte) error

	// Receive returns the next complete JSON-RPC message.
	Receive(ctx context.Context) ([]byte, error)

	// Close closes the transport and releases resources.
	Close() error
}

// ClientTransport is a transport used by clients. It may need additional
// lifecycle management such as establishing the stream.
type ClientTransport interface {
	Transport

	// Start starts the transport (e.g., opens the SSE stream).
	Start() error
}
