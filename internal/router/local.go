package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"lxagent/internal/tools"
)

// LocalProvider serves tools from in-process modules. At construction it
// unions the modules' capability sets, concatenates their descriptor lists
// and builds a name→tool map. Arguments are validated against the tool's
// compiled JSON schema before dispatch.
type LocalProvider struct {
	id        string
	priority  int
	caps      []string
	catalog   []Descriptor
	toolMap   map[string]tools.Tool
	schemas   map[string]*jsonschema.Schema
	connected bool
}

// NewLocalProvider builds a local provider from the given modules.
// Duplicate tool names across modules are rejected.
func NewLocalProvider(id string, priority int, modules []tools.Module) (*LocalProvider, error) {
	p := &LocalProvider{
		id:        id,
		priority:  priority,
		toolMap:   make(map[string]tools.Tool),
		schemas:   make(map[string]*jsonschema.Schema),
		connected: true,
	}

	capSet := make(map[string]struct{})
	for _, module := range modules {
		for _, tag := range module.Capabilities() {
			capSet[tag] = struct{}{}
		}
		for _, tool := range module.Tools() {
			name := tool.Name()
			if name == "" {
				return nil, tools.NewInvalidArgsError(module.Name(), "tool name cannot be empty", nil)
			}
			if _, exists := p.toolMap[name]; exists {
				return nil, tools.NewDuplicateToolError(name, module.Name())
			}
			p.toolMap[name] = tool
			p.catalog = append(p.catalog, Descriptor{
				Name:        name,
				Description: tool.Description(),
				InputSchema: tool.Parameters(),
			})
			p.compileSchema(name, tool.Parameters())
		}
	}

	p.caps = make([]string, 0, len(capSet))
	for tag := range capSet {
		p.caps = append(p.caps, tag)
	}
	sort.Strings(p.caps)

	return p, nil
}

// compileSchema compiles a tool's parameter schema for argument validation.
// A schema that fails to compile disables validation for that tool only.
func (p *LocalProvider) compileSchema(name string, params map[string]any) {
	data, err := json.Marshal(params)
	if err != nil {
		return
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return
	}
	compiler := jsonschema.NewCompiler()
	resource := fmt.Sprintf("tool://%s/schema.json", name)
	if err := compiler.AddResource(resource, doc); err != nil {
		return
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		slog.Warn("local provider: schema compile failed, skipping validation",
			"tool", name, "error", err)
		return
	}
	p.schemas[name] = schema
}

// ID returns the provider id.
func (p *LocalProvider) ID() string { return p.id }

// Priority returns the configured priority.
func (p *LocalProvider) Priority() int { return p.priority }

// Capabilities returns the union of the modules' capability tags.
func (p *LocalProvider) Capabilities() []string { return p.caps }

// Available reports whether the provider accepts calls.
func (p *LocalProvider) Available() bool { return p.connected }

// ListTools returns the pre-assembled catalog.
func (p *LocalProvider) ListTools(ctx context.Context) ([]Descriptor, error) {
	out := make([]Descriptor, len(p.catalog))
	copy(out, p.catalog)
	return out, nil
}

// Call looks up the tool by name and delegates. Errors thrown inside a
// tool are caught and converted to error envelopes.
func (p *LocalProvider) Call(ctx context.Context, name string, args map[string]any) (env Envelope, err error) {
	if !p.connected {
		return Envelope{}, fmt.Errorf("local provider %s: disconnected", p.id)
	}

	tool, ok := p.toolMap[name]
	if !ok {
		return Error(fmt.Sprintf("unknown tool: %s", name), p.id), nil
	}

	if schema, ok := p.schemas[name]; ok {
		if verr := schema.Validate(NormalizeJSON(args)); verr != nil {
			return Error(fmt.Sprintf("invalid arguments for %s: %v", name, verr), p.id), nil
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("local provider: tool panicked", "tool", name, "panic", rec)
			env = Error(fmt.Sprintf("tool %s panicked: %v", name, rec), p.id)
			err = nil
		}
	}()

	result, execErr := tool.Execute(ctx, args)
	if execErr != nil {
		if ctx.Err() != nil {
			return Cancelled(execErr.Error(), p.id), nil
		}
		return Error(execErr.Error(), p.id), nil
	}

	env = Envelope{
		Status:     StatusSuccess,
		Payload:    result.Content,
		ProviderID: p.id,
	}
	if len(result.Metadata) > 0 {
		env.Payload = NormalizeJSON(map[string]any{
			"result":   result.Content,
			"metadata": result.Metadata,
		})
	}
	if result.IsError {
		env.Status = StatusError
		env.ErrorMessage = result.Content
	}
	return env, nil
}

// Disconnect marks the provider unavailable. Idempotent.
func (p *LocalProvider) Disconnect() error {
	p.connected = false
	return nil
}
