package router

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
)

// Strategy selects how a provider is chosen for coarse-grained routing.
type Strategy string

const (
	StrategyCapabilityMatch Strategy = "capability_match"
	StrategyPriorityFirst   Strategy = "priority_first"
	StrategyLoadBalance     Strategy = "load_balance"
)

// ServiceInfo summarizes a provider for the API surface.
type ServiceInfo struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Available    bool     `json:"available"`
	Priority     int      `json:"priority"`
}

// Router aggregates tool catalogs across providers and routes calls.
// Providers are kept in configured order; insertion order is the final
// tie-break everywhere.
type Router struct {
	providers []Provider
	strategy  Strategy
}

// New creates a router over the given providers in configured order.
func New(strategy Strategy, providers ...Provider) *Router {
	switch strategy {
	case StrategyCapabilityMatch, StrategyPriorityFirst, StrategyLoadBalance:
	default:
		strategy = StrategyCapabilityMatch
	}
	return &Router{
		providers: providers,
		strategy:  strategy,
	}
}

// Providers returns the providers in configured order.
func (r *Router) Providers() []Provider {
	return r.providers
}

// Services returns a summary of every configured provider.
func (r *Router) Services() []ServiceInfo {
	out := make([]ServiceInfo, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, ServiceInfo{
			Name:         p.ID(),
			Capabilities: p.Capabilities(),
			Available:    p.Available(),
			Priority:     p.Priority(),
		})
	}
	return out
}

// ListTools aggregates the catalogs of all available providers. Every
// descriptor is stamped with its provider id; duplicate names keep the
// first registrant and the duplicate is dropped with a warning.
func (r *Router) ListTools(ctx context.Context) []Descriptor {
	var catalog []Descriptor
	seen := make(map[string]string)

	for _, p := range r.providers {
		if !p.Available() {
			continue
		}
		descriptors, err := p.ListTools(ctx)
		if err != nil {
			slog.Warn("router: list tools failed", "provider", p.ID(), "error", err)
			continue
		}
		for _, d := range descriptors {
			if owner, dup := seen[d.Name]; dup {
				slog.Warn("router: duplicate tool name dropped",
					"tool", d.Name, "provider", p.ID(), "kept", owner)
				continue
			}
			d.ProviderID = p.ID()
			seen[d.Name] = p.ID()
			catalog = append(catalog, d)
		}
	}

	return catalog
}

// owners returns the available providers exposing the named tool, in
// configured order.
func (r *Router) owners(ctx context.Context, name string) []Provider {
	var out []Provider
	for _, p := range r.providers {
		if !p.Available() {
			continue
		}
		descriptors, err := p.ListTools(ctx)
		if err != nil {
			continue
		}
		for _, d := range descriptors {
			if d.Name == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Call routes a tool invocation to the provider exposing it. A dispatch
// exception triggers failover to other providers exposing the same name,
// marking the result with a fallback annotation; a tool-reported error
// envelope is final. The only error Call itself returns is ErrNoProvider.
func (r *Router) Call(ctx context.Context, name string, args map[string]any) (Envelope, error) {
	owners := r.owners(ctx, name)
	if len(owners) == 0 {
		return Envelope{}, &NoProviderError{Tool: name}
	}

	var lastErr error
	var lastID string
	for i, p := range owners {
		env, err := p.Call(ctx, name, args)
		if err != nil {
			slog.Warn("router: provider call failed",
				"provider", p.ID(), "tool", name, "error", err)
			lastErr = err
			lastID = p.ID()
			continue
		}
		if env.ProviderID == "" {
			env.ProviderID = p.ID()
		}
		if i > 0 {
			env.Fallback = true
		}
		return env, nil
	}

	env := Error(fmt.Sprintf("all providers failed for %s: %v", name, lastErr), lastID)
	return env, nil
}

// available returns the available providers in configured order.
func (r *Router) available() []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// byPriority returns providers sorted by priority descending; the sort is
// stable so insertion order breaks ties.
func byPriority(providers []Provider) []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() > out[j].Priority()
	})
	return out
}

// Select picks one available provider for the given capability set using
// the configured routing strategy.
func (r *Router) Select(required []string) (Provider, error) {
	available := r.available()
	if len(available) == 0 {
		return nil, &NoProviderError{}
	}

	switch r.strategy {
	case StrategyPriorityFirst:
		return byPriority(available)[0], nil
	case StrategyLoadBalance:
		return available[rand.Intn(len(available))], nil
	default:
		return r.selectByCapability(available, required)
	}
}

// selectByCapability picks the highest-priority provider whose capability
// set covers all required tags, falling back to the largest intersection.
func (r *Router) selectByCapability(available []Provider, required []string) (Provider, error) {
	if len(required) == 0 {
		return available[0], nil
	}

	sorted := byPriority(available)

	for _, p := range sorted {
		if covers(p.Capabilities(), required) {
			return p, nil
		}
	}

	var best Provider
	bestCount := -1
	for _, p := range sorted {
		count := intersection(p.Capabilities(), required)
		if count > bestCount {
			best = p
			bestCount = count
		}
	}
	return best, nil
}

func covers(have, required []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

func intersection(have, required []string) int {
	set := make(map[string]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	count := 0
	for _, c := range required {
		if _, ok := set[c]; ok {
			count++
		}
	}
	return count
}

// ExecuteCommand runs a raw command line through the provider selected for
// the required capabilities. This coarse-grained path predates per-tool
// dispatch; the /command/execute route runs the step loop, not this method.
func (r *Router) ExecuteCommand(ctx context.Context, command string, required []string) (Envelope, error) {
	p, err := r.Select(required)
	if err != nil {
		return Envelope{}, err
	}

	env, callErr := p.Call(ctx, "execute_shell", map[string]any{"command": command})
	if callErr != nil {
		return Error(fmt.Sprintf("execute command failed: %v", callErr), p.ID()), nil
	}
	return env, nil
}

// Close disconnects every provider. Disconnects are idempotent, so a
// second close is harmless.
func (r *Router) Close() {
	for _, p := range r.providers {
		if err := p.Disconnect(); err != nil {
			slog.Warn("router: disconnect failed", "provider", p.ID(), "error", err)
		}
	}
}
