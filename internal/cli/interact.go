package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"lxagent/internal/agent/types"
)

// TerminalInteractor is the interaction channel backed by the terminal:
// confirmation prompts and per-step decisions read stdin, summary chunks
// stream to stdout.
type TerminalInteractor struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalInteractor creates a terminal interaction channel.
func NewTerminalInteractor() *TerminalInteractor {
	return &TerminalInteractor{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
}

// Interactive reports whether stdin is a real terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readLine reads one trimmed line, honoring cancellation.
func (t *TerminalInteractor) readLine(ctx context.Context) (string, error) {
	type lineResult struct {
		line string
		err  error
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		ch <- lineResult{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", res.err
		}
		return res.line, nil
	}
}

// ConfirmDangerous prompts before running a dangerous tool call.
func (t *TerminalInteractor) ConfirmDangerous(ctx context.Context, call types.ToolCall) (bool, error) {
	args, _ := json.Marshal(call.Arguments)
	fmt.Fprintf(t.out, "\nDangerous operation: %s %s\nRun it? (yes/y to confirm): ", call.Name, args)

	answer, err := t.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "confirm":
		return true, nil
	}
	return false, nil
}

// Decide reads the per-step user command.
func (t *TerminalInteractor) Decide(ctx context.Context) (types.Decision, error) {
	fmt.Fprint(t.out, "\n[Enter=continue / c=stop / e=edit goal / r=replan / clear]: ")

	answer, err := t.readLine(ctx)
	if err != nil {
		return types.Decision{}, err
	}

	switch strings.ToLower(answer) {
	case "c", "stop", "exit":
		return types.Decision{Kind: types.DecisionStop}, nil
	case "e", "edit":
		fmt.Fprint(t.out, "New goal: ")
		goal, err := t.readLine(ctx)
		if err != nil {
			return types.Decision{}, err
		}
		return types.Decision{Kind: types.DecisionEdit, Goal: goal}, nil
	case "r", "replan":
		return types.Decision{Kind: types.DecisionReplan}, nil
	case "clear":
		return types.Decision{Kind: types.DecisionClear}, nil
	default:
		return types.Decision{Kind: types.DecisionContinue}, nil
	}
}

// ConfirmClear asks whether to clear history for the next task.
func (t *TerminalInteractor) ConfirmClear(ctx context.Context) (bool, error) {
	fmt.Fprint(t.out, "\nClear history for the next task? (y/N): ")

	answer, err := t.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// StreamChunk prints a summary fragment as it arrives.
func (t *TerminalInteractor) StreamChunk(chunk string) {
	fmt.Fprint(t.out, chunk)
}

// Printf surfaces a loop status line.
func (t *TerminalInteractor) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}
