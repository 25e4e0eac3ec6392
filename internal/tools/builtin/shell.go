package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"lxagent/internal/tools"
)

// ExecuteShellArgs defines the parameters for the execute_shell tool.
type ExecuteShellArgs struct {
	Command string `json:"command" jsonschema:"description=The shell command to execute,required"`
	WorkDir string `json:"work_dir" jsonschema:"description=Working directory for the command"`
	Timeout int    `json:"timeout" jsonschema:"description=Timeout in seconds (default 60)"`
}

// ExecuteShellTool runs a shell command and waits for completion.
// It is a dangerous tool; the step loop gates it behind user confirmation.
type ExecuteShellTool struct {
	tools.BaseTool
	// MaxOutputBytes caps captured stdout/stderr.
	MaxOutputBytes int
}

// NewExecuteShellTool creates a new shell execution tool.
func NewExecuteShellTool() *ExecuteShellTool {
	return &ExecuteShellTool{
		BaseTool: tools.BaseTool{
			ToolName:        "execute_shell",
			ToolDescription: "Execute a shell command and return its output. Blocks until the command exits.",
			ToolParameters:  tools.BuildSchema(ExecuteShellArgs{}),
		},
		MaxOutputBytes: 128 * 1024,
	}
}

// shellCommand returns the platform shell invocation for a command line.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// Execute runs the command.
func (t *ExecuteShellTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "command is required", nil)
	}

	timeout := 60 * time.Second
	if v, ok := args["timeout"].(float64); ok && v > 0 {
		timeout = time.Duration(v) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(ctx, command)
	if wd, ok := args["work_dir"].(string); ok && wd != "" {
		cmd.Dir = wd
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	out := stdout.String()
	errOut := stderr.String()
	if len(out) > t.MaxOutputBytes {
		out = out[:t.MaxOutputBytes] + "\n[content truncated]"
	}
	if len(errOut) > t.MaxOutputBytes {
		errOut = errOut[:t.MaxOutputBytes] + "\n[content truncated]"
	}

	if ctx.Err() == context.DeadlineExceeded {
		return tools.NewErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}

	metadata := map[string]any{
		"stdout": out,
		"stderr": errOut,
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			metadata["exit_code"] = exitErr.ExitCode()
			content := out
			if errOut != "" {
				content += "\n" + errOut
			}
			return tools.ToolResult{
				Content:  fmt.Sprintf("command exited with code %d\n%s", exitErr.ExitCode(), strings.TrimSpace(content)),
				IsError:  true,
				Metadata: metadata,
			}, nil
		}
		return tools.NewErrorResult(fmt.Sprintf("failed to run command: %v", err)), nil
	}

	metadata["exit_code"] = 0
	content := out
	if content == "" {
		content = "(no output)"
	}
	return tools.NewResultWithMetadata(content, metadata), nil
}

// StartProcessArgs defines the parameters for the start_process tool.
type StartProcessArgs struct {
	Command string   `json:"command" jsonschema:"description=The program to start,required"`
	Args    []string `json:"args" jsonschema:"description=Arguments for the program"`
	WorkDir string   `json:"work_dir" jsonschema:"description=Working directory for the process"`
}

// StartProcessTool starts a detached process and returns immediately.
// It is a dangerous tool; the step loop gates it behind user confirmation.
type StartProcessTool struct {
	tools.BaseTool
}

// NewStartProcessTool creates a new process starting tool.
func NewStartProcessTool() *StartProcessTool {
	return &StartProcessTool{
		BaseTool: tools.BaseTool{
			ToolName:        "start_process",
			ToolDescription: "Start a background process without waiting for it to exit. Returns the process id.",
			ToolParameters:  tools.BuildSchema(StartProcessArgs{}),
		},
	}
}

// Execute starts the process.
func (t *StartProcessTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "command is required", nil)
	}

	var cmdArgs []string
	if raw, ok := args["args"].([]any); ok {
		for _, a := range raw {
			cmdArgs = append(cmdArgs, fmt.Sprintf("%v", a))
		}
	}

	cmd := exec.Command(command, cmdArgs...)
	if wd, ok := args["work_dir"].(string); ok && wd != "" {
		cmd.Dir = wd
	}

	if err := cmd.Start(); err != nil {
		return tools.NewErrorResult(fmt.Sprintf("failed to start process: %v", err)), nil
	}

	pid := cmd.Process.Pid
	// Reap the child when it exits so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()

	return tools.NewResultWithMetadata(fmt.Sprintf("started process %d", pid), map[string]any{
		"pid": pid,
	}), nil
}
