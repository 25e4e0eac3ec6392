package builtin

import (
	"context"
	"fmt"
	"time"

	"lxagent/internal/tools"
)

// SleepArgs defines the parameters for the sleep tool.
type SleepArgs struct {
	Seconds float64 `json:"seconds" jsonschema:"description=How long to sleep in seconds,required"`
}

// SleepTool pauses execution for a duration. Useful between UI-driving
// steps that need time to settle.
type SleepTool struct {
	tools.BaseTool
	// MaxSeconds bounds the sleep duration.
	MaxSeconds float64
}

// NewSleepTool creates a new sleep tool.
func NewSleepTool() *SleepTool {
	return &SleepTool{
		BaseTool: tools.BaseTool{
			ToolName:        "sleep",
			ToolDescription: "Pause for the given number of seconds before the next step.",
			ToolParameters:  tools.BuildSchema(SleepArgs{}),
		},
		MaxSeconds: 300,
	}
}

// Execute sleeps, honoring cancellation.
func (t *SleepTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	seconds, _ := args["seconds"].(float64)
	if seconds <= 0 {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "seconds must be positive", nil)
	}
	if seconds > t.MaxSeconds {
		seconds = t.MaxSeconds
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
	case <-ctx.Done():
		return tools.ToolResult{}, ctx.Err()
	}

	return tools.NewSuccessResult(fmt.Sprintf("slept %.1f seconds", seconds)), nil
}
