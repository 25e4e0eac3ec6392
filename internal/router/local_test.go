package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxagent/internal/tools"
)

// echoTool returns its "text" argument.
type echoTool struct {
	tools.BaseTool
	fail  bool
	panic bool
}

func newEchoTool(name string, fail, panics bool) *echoTool {
	return &echoTool{
		BaseTool: tools.BaseTool{
			ToolName:        name,
			ToolDescription: "echo the text argument",
			ToolParameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{"type": "string"},
				},
				"required": []any{"text"},
			},
		},
		fail:  fail,
		panic: panics,
	}
}

func (t *echoTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	if t.panic {
		panic("echo exploded")
	}
	if t.fail {
		return tools.ToolResult{}, errors.New("echo failed")
	}
	text, _ := args["text"].(string)
	return tools.NewSuccessResult(text), nil
}

func testModule(name string, caps []string, ts ...tools.Tool) tools.Module {
	return &tools.StaticModule{ModuleName: name, Tags: caps, ToolList: ts}
}

func TestLocalProviderAggregatesModules(t *testing.T) {
	p, err := NewLocalProvider("local", 10, []tools.Module{
		testModule("m1", []string{"file"}, newEchoTool("echo", false, false)),
		testModule("m2", []string{"shell", "file"}, newEchoTool("echo2", false, false)),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"file", "shell"}, p.Capabilities())
	catalog, err := p.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog, 2)
	assert.True(t, p.Available())
}

func TestLocalProviderRejectsDuplicateNames(t *testing.T) {
	_, err := NewLocalProvider("local", 0, []tools.Module{
		testModule("m1", nil, newEchoTool("dup", false, false)),
		testModule("m2", nil, newEchoTool("dup", false, false)),
	})
	assert.ErrorIs(t, err, tools.ErrDuplicateTool)
}

func TestLocalProviderCall(t *testing.T) {
	p, err := NewLocalProvider("local", 0, []tools.Module{
		testModule("m", nil, newEchoTool("echo", false, false)),
	})
	require.NoError(t, err)

	env, err := p.Call(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, "hi", env.Payload)
	assert.Equal(t, "local", env.ProviderID)
}

func TestLocalProviderUnknownTool(t *testing.T) {
	p, err := NewLocalProvider("local", 0, []tools.Module{
		testModule("m", nil, newEchoTool("echo", false, false)),
	})
	require.NoError(t, err)

	env, err := p.Call(context.Background(), "ghost", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
}

func TestLocalProviderValidatesArguments(t *testing.T) {
	p, err := NewLocalProvider("local", 0, []tools.Module{
		testModule("m", nil, newEchoTool("echo", false, false)),
	})
	require.NoError(t, err)

	// Missing the required "text" argument.
	env, err := p.Call(context.Background(), "echo", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
	assert.Contains(t, env.ErrorMessage, "invalid arguments")
}

func TestLocalProviderConvertsErrors(t *testing.T) {
	p, err := NewLocalProvider("local", 0, []tools.Module{
		testModule("m", nil, newEchoTool("bad", true, false)),
	})
	require.NoError(t, err)

	env, err := p.Call(context.Background(), "bad", map[string]any{"text": "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
	assert.Contains(t, env.ErrorMessage, "echo failed")
}

func TestLocalProviderRecoversPanics(t *testing.T) {
	p, err := NewLocalProvider("local", 0, []tools.Module{
		testModule("m", nil, newEchoTool("boom", false, true)),
	})
	require.NoError(t, err)

	env, err := p.Call(context.Background(), "boom", map[string]any{"text": "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
	assert.Contains(t, env.ErrorMessage, "panicked")
}

func TestLocalProviderDisconnectIdempotent(t *testing.T) {
	p, err := NewLocalProvider("local", 0, nil)
	require.NoError(t, err)

	require.NoError(t, p.Disconnect())
	require.NoError(t, p.Disconnect())
	assert.False(t, p.Available())
}
