package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// ScriptSpec declares a user-defined JavaScript tool. The script body is
// evaluated with an `args` object in scope; its completion value becomes
// the tool output.
type ScriptSpec struct {
	Name        string         `mapstructure:"name" yaml:"name"`
	Description string         `mapstructure:"description" yaml:"description"`
	Script      string         `mapstructure:"script" yaml:"script"`
	Parameters  map[string]any `mapstructure:"parameters" yaml:"parameters"`
	Timeout     time.Duration  `mapstructure:"timeout" yaml:"timeout"`
}

// ScriptTool executes a JavaScript snippet through goja.
type ScriptTool struct {
	spec ScriptSpec
}

// NewScriptTool creates a script tool from its spec.
func NewScriptTool(spec ScriptSpec) *ScriptTool {
	if spec.Timeout <= 0 {
		spec.Timeout = 30 * time.Second
	}
	return &ScriptTool{spec: spec}
}

// Name returns the tool name.
func (t *ScriptTool) Name() string { return t.spec.Name }

// Description returns the tool description.
func (t *ScriptTool) Description() string { return t.spec.Description }

// Parameters returns the declared parameter schema.
func (t *ScriptTool) Parameters() map[string]any {
	if t.spec.Parameters == nil {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	return t.spec.Parameters
}

// Execute evaluates the script with args in scope, bounded by the timeout.
func (t *ScriptTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if err := vm.Set("args", args); err != nil {
		return ToolResult{}, fmt.Errorf("bind args: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.spec.Timeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("script interrupted")
		case <-done:
		}
	}()

	value, err := vm.RunString(t.spec.Script)
	if err != nil {
		if ctx.Err() != nil {
			return NewErrorResult(fmt.Sprintf("script %s timed out after %s", t.spec.Name, t.spec.Timeout)), nil
		}
		return NewErrorResult(fmt.Sprintf("script error: %v", err)), nil
	}

	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return NewSuccessResult(""), nil
	}
	return NewSuccessResult(fmt.Sprintf("%v", value.Export())), nil
}

// ScriptModule builds a tool module from a list of script specs.
func ScriptModule(specs []ScriptSpec) Module {
	toolList := make([]Tool, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" || spec.Script == "" {
			continue
		}
		toolList = append(toolList, NewScriptTool(spec))
	}
	return &StaticModule{
		ModuleName: "script",
		Tags:       []string{"script"},
		ToolList:   toolList,
	}
}
