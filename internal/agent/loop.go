// Package agent implements the adaptive step loop that drives the
// model↔tool dialogue: plan, guard, confirm, execute, record, summarize,
// decide, repeat.
package agent

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"lxagent/internal/agent/types"
	internalContext "lxagent/internal/context"
	"lxagent/internal/router"
)

// Planner is the narrow model contract the loop consumes.
type Planner interface {
	// PlanNext returns zero or one tool calls for the next step.
	PlanNext(ctx context.Context, goal string, catalog []router.Descriptor, osTag string, history []types.HistoryEntry) ([]types.ToolCall, error)

	// IntermediateSummary summarizes progress, streaming into sink.
	IntermediateSummary(ctx context.Context, goal string, history []types.HistoryEntry, sink func(string)) string

	// FinalSummary summarizes the whole run, streaming into sink.
	FinalSummary(ctx context.Context, goal string, history []types.HistoryEntry, sink func(string)) string
}

// Dispatcher is the router contract the loop consumes.
type Dispatcher interface {
	// ListTools returns the aggregated catalog snapshot for this step.
	ListTools(ctx context.Context) []router.Descriptor

	// Call routes one tool invocation.
	Call(ctx context.Context, name string, args map[string]any) (router.Envelope, error)
}

// Default guard thresholds.
const (
	DefaultSoftBlockThreshold = 2
	DefaultHardStopThreshold  = 4
	DefaultMaxSteps           = 10
)

// hardStopRationale is both the SystemNotice text and the summary of a
// repetition abort; no final-summary model call is made in that case.
const hardStopRationale = "aborted due to repetition"

// Config holds the loop's per-invocation policy.
type Config struct {
	// MaxSteps bounds the number of loop iterations.
	MaxSteps int
	// AutoContinue skips the per-step user decision gate.
	AutoContinue bool

	// SoftBlockThreshold is the consecutive-proposal count at which a
	// repeated call is rejected without executing.
	SoftBlockThreshold int
	// HardStopThreshold is the consecutive-proposal count at which the
	// loop aborts.
	HardStopThreshold int

	// DangerousTools lists tool names requiring confirmation.
	DangerousTools []string
	// ShellConfirm enables the dangerous-tool confirmation policy.
	ShellConfirm bool
	// AutoContinueDangerous approves dangerous calls without prompting.
	AutoContinueDangerous bool
	// AutoContinueInteractive skips the decision gate even for
	// interactive callers.
	AutoContinueInteractive bool

	// OSTag names the operating system in the planning prompt.
	// Defaults to the host OS.
	OSTag string
}

func (c *Config) applyDefaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.SoftBlockThreshold <= 0 {
		c.SoftBlockThreshold = DefaultSoftBlockThreshold
	}
	if c.HardStopThreshold <= c.SoftBlockThreshold {
		c.HardStopThreshold = DefaultHardStopThreshold
	}
	if c.OSTag == "" {
		c.OSTag = hostOSTag()
	}
}

// hostOSTag maps the runtime OS to the tag the planning prompt uses.
func hostOSTag() string {
	switch runtime.GOOS {
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return strings.ToUpper(runtime.GOOS[:1]) + runtime.GOOS[1:]
	}
}

// Loop is the planner/executor state machine.
type Loop struct {
	dispatcher Dispatcher
	planner    Planner
	contextMgr *internalContext.Manager
	interactor Interactor
	config     Config

	// onClear is invoked when the user empties the session history.
	onClear func()
}

// New creates a step loop.
func New(dispatcher Dispatcher, planner Planner, contextMgr *internalContext.Manager, interactor Interactor, config Config) *Loop {
	config.applyDefaults()
	if interactor == nil {
		interactor = &AutoInteractor{}
	}
	return &Loop{
		dispatcher: dispatcher,
		planner:    planner,
		contextMgr: contextMgr,
		interactor: interactor,
		config:     config,
	}
}

// OnClear registers a hook invoked whenever the loop empties the history
// in response to a user command.
func (l *Loop) OnClear(fn func()) {
	l.onClear = fn
}

// runState is the per-invocation guard state.
type runState struct {
	step int

	// lastProposed tracks consecutive identical proposals for the
	// repetition counter; guards never clear it.
	lastProposed string
	repeatCount  int

	// lastExecuted is the signature of the previous successfully
	// executed call; cleared by a soft block and by non-success results
	// so failures are not counted as repetitions.
	lastExecuted string
}

// Run executes the step loop for a goal over an inherited history and
// returns the terminal result. The history grows by exactly one entry per
// completed step.
func (l *Loop) Run(ctx context.Context, goal string, history []types.HistoryEntry) types.Result {
	state := &runState{}

	for state.step < l.config.MaxSteps {
		if ctx.Err() != nil {
			return types.Result{Status: types.RunStopped, Results: history}
		}

		// Plan: catalog snapshot plus truncated history.
		catalog := l.dispatcher.ListTools(ctx)
		truncated, cut := l.contextMgr.Truncate(history)
		if cut {
			l.interactor.Printf("note: part of the execution history was truncated to fit the model context\n")
		}

		calls, err := l.planner.PlanNext(ctx, goal, catalog, l.config.OSTag, truncated)
		if err != nil {
			if ctx.Err() != nil {
				return types.Result{Status: types.RunStopped, Results: history}
			}
			slog.Error("loop: planning failed", "step", state.step, "error", err)
			history = append(history, noticeEntry("planning failed: "+err.Error(), router.StatusError))
			return types.Result{Status: types.RunError, Results: history}
		}

		if len(calls) == 0 {
			slog.Info("loop: model returned no further tool calls", "step", state.step)
			return l.finalize(ctx, goal, history, types.RunSuccess)
		}

		call := calls[0]
		sig := call.Signature()

		// Repetition guard.
		if sig == state.lastProposed {
			state.repeatCount++
		} else {
			state.repeatCount = 1
		}
		state.lastProposed = sig

		if state.repeatCount >= l.config.HardStopThreshold {
			slog.Warn("loop: hard stop on repetition",
				"step", state.step, "signature", sig, "count", state.repeatCount)
			history = append(history, noticeEntry(hardStopRationale, router.StatusError))
			return types.Result{
				Status:       types.RunError,
				Results:      history,
				FinalSummary: hardStopRationale,
			}
		}

		if sig == state.lastExecuted && state.repeatCount >= l.config.SoftBlockThreshold {
			slog.Warn("loop: repeated call rejected",
				"step", state.step, "signature", sig)
			history = append(history, noticeEntry(
				"repeated call rejected: the previous identical call already succeeded; pick a different action next step",
				router.StatusInfo))
			// Allow the same call again after at least one divergent step.
			state.lastExecuted = ""
			state.step++
			continue
		}

		// Dangerous-tool gate.
		if l.isDangerous(call.Name) && l.config.ShellConfirm && !l.config.AutoContinueDangerous {
			approved, err := l.interactor.ConfirmDangerous(ctx, call)
			if err != nil || ctx.Err() != nil {
				return types.Result{Status: types.RunStopped, Results: history}
			}
			if !approved {
				slog.Info("loop: dangerous call rejected by user", "tool", call.Name)
				history = append(history, types.HistoryEntry{
					Command: call,
					Result:  router.Cancelled("user rejected dangerous tool call", ""),
				})
				state.step++
				continue
			}
		}

		// Dispatch.
		env, err := l.dispatcher.Call(ctx, call.Name, call.Arguments)
		if err != nil {
			// No provider for this tool: record it and give the model one
			// more planning step to pick a different tool.
			slog.Warn("loop: dispatch failed", "tool", call.Name, "error", err)
			history = append(history, noticeEntry("tool unavailable: "+err.Error(), router.StatusError))
			state.lastExecuted = ""
			state.step++
			continue
		}

		if env.Status == router.StatusSuccess {
			state.lastExecuted = sig
		} else {
			state.lastExecuted = ""
		}

		// Record. Envelope payloads were normalized at provider egress.
		history = append(history, types.HistoryEntry{Command: call, Result: env})
		l.interactor.Printf("[%s] %s\n", call.Name, env.Status)

		// Intermediate summary over the updated (truncated) history.
		truncated, _ = l.contextMgr.Truncate(history)
		summary := l.planner.IntermediateSummary(ctx, goal, truncated, l.interactor.StreamChunk)
		history[len(history)-1].Summary = summary

		// User decision gate.
		if !l.config.AutoContinue && !l.config.AutoContinueInteractive {
			decision, err := l.interactor.Decide(ctx)
			if err != nil || ctx.Err() != nil {
				return types.Result{Status: types.RunStopped, Results: history}
			}
			switch decision.Kind {
			case types.DecisionStop:
				return l.finalize(ctx, goal, history, types.RunStopped)
			case types.DecisionEdit:
				if strings.TrimSpace(decision.Goal) != "" {
					goal = decision.Goal
					l.interactor.Printf("goal updated, replanning\n")
				}
			case types.DecisionReplan:
				l.interactor.Printf("replanning on request\n")
			case types.DecisionClear:
				history = history[:0]
				l.clearHook()
			}
		}

		state.step++
	}

	// Max steps reached: the run still gets a final summary.
	return l.finalize(ctx, goal, history, types.RunSuccess)
}

// finalize produces the final summary, offers to clear the history, and
// assembles the terminal result.
func (l *Loop) finalize(ctx context.Context, goal string, history []types.HistoryEntry, status types.RunStatus) types.Result {
	if ctx.Err() != nil {
		return types.Result{Status: types.RunStopped, Results: history}
	}

	truncated, _ := l.contextMgr.Truncate(history)
	summary := l.planner.FinalSummary(ctx, goal, truncated, l.interactor.StreamChunk)

	if clear, err := l.interactor.ConfirmClear(ctx); err == nil && clear {
		history = history[:0]
		l.clearHook()
	}

	return types.Result{
		Status:       status,
		Results:      history,
		FinalSummary: summary,
	}
}

func (l *Loop) clearHook() {
	if l.onClear != nil {
		l.onClear()
	}
}

// isDangerous reports whether a tool is in the configured dangerous set.
func (l *Loop) isDangerous(name string) bool {
	for _, t := range l.config.DangerousTools {
		if t == name {
			return true
		}
	}
	return false
}

// noticeEntry builds a SystemNotice history entry with the given status.
func noticeEntry(notice string, status router.Status) types.HistoryEntry {
	env := router.Envelope{Status: status, Payload: notice}
	if status == router.StatusError {
		env.ErrorMessage = notice
	}
	return types.HistoryEntry{
		Command: types.SystemNotice{Notice: notice},
		Result:  env,
	}
}
