package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptToolEvaluates(t *testing.T) {
	tool := NewScriptTool(ScriptSpec{
		Name:        "add",
		Description: "add two numbers",
		Script:      "args.a + args.b",
	})

	result, err := tool.Execute(context.Background(), map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "5", result.Content)
}

func TestScriptToolSyntaxError(t *testing.T) {
	tool := NewScriptTool(ScriptSpec{
		Name:   "broken",
		Script: "this is not javascript ((",
	})

	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "script error")
}

func TestScriptToolTimeout(t *testing.T) {
	tool := NewScriptTool(ScriptSpec{
		Name:    "spin",
		Script:  "while (true) {}",
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestScriptModuleSkipsInvalidSpecs(t *testing.T) {
	module := ScriptModule([]ScriptSpec{
		{Name: "good", Script: "1"},
		{Name: "", Script: "2"},
		{Name: "no-script"},
	})

	assert.Equal(t, "script", module.Name())
	assert.Len(t, module.Tools(), 1)
	assert.Equal(t, []string{"script"}, module.Capabilities())
}
