package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"lxagent/internal/agent/types"
	"lxagent/internal/router"
)

// Planner turns a raw completion provider into the planning and
// summarization operations the step loop consumes.
type Planner struct {
	provider Provider
}

// NewPlanner creates a planner over the given provider.
func NewPlanner(p Provider) *Planner {
	return &Planner{provider: p}
}

// fencedBlock extracts the body of a markdown code fence.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// PlanNext asks the model for the next tool call. The model is contracted
// to return a JSON list with zero or one calls; anything unparseable is
// treated as an empty plan.
func (p *Planner) PlanNext(ctx context.Context, goal string, catalog []router.Descriptor, osTag string, history []types.HistoryEntry) ([]types.ToolCall, error) {
	prompt, err := buildPlanningPrompt(goal, catalog, osTag, history)
	if err != nil {
		return nil, fmt.Errorf("build planning prompt: %w", err)
	}

	resp, err := p.provider.Generate(ctx, Request{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("plan next step: %w", err)
	}

	calls := parseToolCalls(resp.Content)
	if len(calls) > 1 {
		// One call per step; surplus proposals are dropped.
		calls = calls[:1]
	}
	return calls, nil
}

// buildPlanningPrompt renders the contractual planning prompt: OS tag,
// catalog dump, step-by-step history, goal, and output instructions.
func buildPlanningPrompt(goal string, catalog []router.Descriptor, osTag string, history []types.HistoryEntry) (string, error) {
	toolsJSON, err := json.Marshal(catalog)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if osTag != "" {
		fmt.Fprintf(&b, "The current operating system is %s.\n", osTag)
	}
	b.WriteString("Analyze the user goal against the execution history so far and produce the next tool call to run (exactly one, or an empty list if nothing remains to do). Store any produced data under the ./tmp folder.\n")
	fmt.Fprintf(&b, "Available tools: %s\n", toolsJSON)

	if len(history) > 0 {
		b.WriteString("\nExecution history:\n")
		for i, entry := range history {
			fmt.Fprintf(&b, "\nStep %d:\n", i+1)
			if entry.Command != nil {
				if data, err := json.Marshal(entry.Command); err == nil {
					fmt.Fprintf(&b, "- proposed tool call: %s\n", data)
				}
			}
			if data, err := json.Marshal(entry.Result); err == nil {
				fmt.Fprintf(&b, "- result: %s\n", data)
			}
			if entry.Summary != "" {
				fmt.Fprintf(&b, "- progress summary: %s\n", entry.Summary)
			}
		}
	}

	fmt.Fprintf(&b, "\nUser goal: %s\n\n", goal)
	b.WriteString("Output a JSON list containing zero or one tool call, for example:\n")
	b.WriteString("[\n  {\"name\": \"mouse_click\", \"arguments\": {\"x\": 300, \"y\": 300, \"button\": \"left\"}}\n]\n")
	b.WriteString("Return [] when the goal is complete.\n")
	b.WriteString("Follow the advice in the latest progress summary and avoid repeating mistakes.\n")
	b.WriteString("Important: avoid repeating a call that just succeeded without progress; pick a different tool or different arguments instead.\n")
	b.WriteString("\nTool call:")

	return b.String(), nil
}

// parseToolCalls parses the model output, tolerating a markdown fence and
// a bare object instead of a list. Parse failure yields an empty plan.
func parseToolCalls(response string) []types.ToolCall {
	text := response
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var calls []types.ToolCall
	if err := json.Unmarshal([]byte(text), &calls); err == nil {
		return compactCalls(calls)
	}

	var single types.ToolCall
	if err := json.Unmarshal([]byte(text), &single); err == nil && single.Name != "" {
		return []types.ToolCall{single}
	}

	slog.Warn("planner: unparseable model output treated as empty plan",
		"length", len(response))
	return nil
}

// compactCalls drops nameless entries the model sometimes emits.
func compactCalls(calls []types.ToolCall) []types.ToolCall {
	out := calls[:0]
	for _, c := range calls {
		if c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}

// IntermediateSummary produces a short progress summary, streaming chunks
// into sink. Failures degrade to a placeholder string, never an error.
func (p *Planner) IntermediateSummary(ctx context.Context, goal string, history []types.HistoryEntry, sink func(string)) string {
	historyJSON, _ := json.Marshal(history)
	prompt := fmt.Sprintf(
		"You are a task-execution agent. The user goal is: %s\nExecution history so far: %s\nSummarize the current progress and any problems concisely, and suggest the next step.",
		goal, historyJSON)

	summary, err := p.generateStreaming(ctx, prompt, sink)
	if err != nil {
		slog.Error("planner: intermediate summary failed", "error", err)
		return "[intermediate summary unavailable]"
	}
	return summary
}

// FinalSummary produces the closing summary, streaming chunks into sink.
// Failures degrade to a placeholder string, never an error.
func (p *Planner) FinalSummary(ctx context.Context, goal string, history []types.HistoryEntry, sink func(string)) string {
	historyJSON, _ := json.Marshal(history)
	prompt := fmt.Sprintf(
		"You are a task-execution agent. The user goal is: %s\nComplete execution history: %s\nSummarize the overall process and the final outcome concisely, and note possible improvements.",
		goal, historyJSON)

	summary, err := p.generateStreaming(ctx, prompt, sink)
	if err != nil {
		slog.Error("planner: final summary failed", "error", err)
		return "[final summary unavailable]"
	}
	return summary
}

// generateStreaming streams a completion, forwarding each fragment to
// sink and returning the assembled text. Falls back to a blocking call
// when the provider cannot open a stream.
func (p *Planner) generateStreaming(ctx context.Context, prompt string, sink func(string)) (string, error) {
	events, err := p.provider.GenerateStream(ctx, Request{Prompt: prompt})
	if err != nil {
		resp, genErr := p.provider.Generate(ctx, Request{Prompt: prompt})
		if genErr != nil {
			return "", genErr
		}
		if sink != nil {
			sink(resp.Content)
		}
		return resp.Content, nil
	}

	var b strings.Builder
	for event := range events {
		if event.Err != nil {
			return "", event.Err
		}
		if event.Delta != "" {
			b.WriteString(event.Delta)
			if sink != nil {
				sink(event.Delta)
			}
		}
	}
	return b.String(), nil
}
