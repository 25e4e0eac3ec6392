package agent

import (
	"context"

	"lxagent/internal/agent/types"
)

// Interactor is the user-interaction channel the step loop talks to:
// dangerous-tool confirmations, per-step decisions, and streamed summary
// chunks all flow through it.
type Interactor interface {
	// ConfirmDangerous asks whether a dangerous tool call may run.
	ConfirmDangerous(ctx context.Context, call types.ToolCall) (bool, error)

	// Decide reads the user's command at the per-step decision gate.
	Decide(ctx context.Context) (types.Decision, error)

	// ConfirmClear asks whether to clear the history after the final summary.
	ConfirmClear(ctx context.Context) (bool, error)

	// StreamChunk forwards one summary fragment as the model produces it.
	StreamChunk(chunk string)

	// Printf surfaces a loop status line to the user.
	Printf(format string, args ...any)
}

// AutoInteractor is the non-interactive channel used by API and cron
// callers: it never prompts, rejects dangerous calls unless told
// otherwise, and always continues.
type AutoInteractor struct {
	// AllowDangerous approves dangerous calls without prompting.
	AllowDangerous bool
	// Sink receives streamed summary chunks; nil discards them.
	Sink func(chunk string)
}

// ConfirmDangerous approves only when AllowDangerous is set.
func (a *AutoInteractor) ConfirmDangerous(ctx context.Context, call types.ToolCall) (bool, error) {
	return a.AllowDangerous, nil
}

// Decide always continues.
func (a *AutoInteractor) Decide(ctx context.Context) (types.Decision, error) {
	return types.Decision{Kind: types.DecisionContinue}, nil
}

// ConfirmClear never clears.
func (a *AutoInteractor) ConfirmClear(ctx context.Context) (bool, error) {
	return false, nil
}

// StreamChunk forwards to the sink when one is set.
func (a *AutoInteractor) StreamChunk(chunk string) {
	if a.Sink != nil {
		a.Sink(chunk)
	}
}

// Printf is a no-op for non-interactive callers.
func (a *AutoInteractor) Printf(format string, args ...any) {}
