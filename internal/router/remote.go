package router

import (
	"context"
	"encoding/json"
	"fmt"

	"lxagent/internal/mcp/client"
)

// RemoteProvider serves tools from a remote tool-server session. The
// session owns the connection; availability mirrors the session state.
type RemoteProvider struct {
	id       string
	priority int
	caps     []string
	session  *client.Client
}

// NewRemoteProvider wraps a session client as a provider. Capability tags
// come from configuration since remote servers do not advertise them.
func NewRemoteProvider(id string, priority int, caps []string, session *client.Client) *RemoteProvider {
	return &RemoteProvider{
		id:       id,
		priority: priority,
		caps:     caps,
		session:  session,
	}
}

// Connect opens the session.
func (p *RemoteProvider) Connect(ctx context.Context) error {
	return p.session.Connect(ctx)
}

// ID returns the provider id.
func (p *RemoteProvider) ID() string { return p.id }

// Priority returns the configured priority.
func (p *RemoteProvider) Priority() int { return p.priority }

// Capabilities returns the configured capability tags.
func (p *RemoteProvider) Capabilities() []string { return p.caps }

// Available reports whether the session handle is open.
func (p *RemoteProvider) Available() bool { return p.session.Ready() }

// ListTools returns the remote catalog as descriptors.
func (p *RemoteProvider) ListTools(ctx context.Context) ([]Descriptor, error) {
	remoteTools, err := p.session.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote provider %s: %w", p.id, err)
	}

	out := make([]Descriptor, 0, len(remoteTools))
	for _, rt := range remoteTools {
		var schema map[string]any
		if len(rt.InputSchema) > 0 {
			if err := json.Unmarshal(rt.InputSchema, &schema); err != nil {
				schema = map[string]any{"type": "object"}
			}
		}
		out = append(out, Descriptor{
			Name:        rt.Name,
			Description: rt.Description,
			InputSchema: schema,
		})
	}
	return out, nil
}

// Call forwards the invocation to the remote session and normalizes the
// structured result into an envelope.
func (p *RemoteProvider) Call(ctx context.Context, name string, args map[string]any) (Envelope, error) {
	result, err := p.session.CallTool(ctx, name, args)
	if err != nil {
		return Envelope{}, fmt.Errorf("remote provider %s: %w", p.id, err)
	}
	return FromCallToolResult(result, p.id), nil
}

// Disconnect closes the session. Idempotent.
func (p *RemoteProvider) Disconnect() error {
	return p.session.Disconnect()
}
