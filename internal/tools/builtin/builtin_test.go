package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxagent/internal/tools"
)

func TestModulesHaveUniqueToolNames(t *testing.T) {
	seen := map[string]string{}
	for _, module := range Modules() {
		assert.NotEmpty(t, module.Capabilities(), "module %s has no capability tags", module.Name())
		for _, tool := range module.Tools() {
			owner, dup := seen[tool.Name()]
			assert.Falsef(t, dup, "tool %s exposed by both %s and %s", tool.Name(), owner, module.Name())
			seen[tool.Name()] = module.Name()
			assert.NotEmpty(t, tool.Description())
			assert.Equal(t, "object", tool.Parameters()["type"])
		}
	}
	assert.Contains(t, seen, "list_directory")
	assert.Contains(t, seen, "execute_shell")
	assert.Contains(t, seen, "start_process")
}

func TestListDirectoryTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aaa"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	tool := NewListDirectoryTool()

	result, err := tool.Execute(context.Background(), map[string]any{"path": dir})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "a.txt")
	assert.Contains(t, result.Content, "sub/")
	assert.Equal(t, 2, result.Metadata["count"])
}

func TestListDirectoryPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), nil, 0644))

	tool := NewListDirectoryTool()

	result, err := tool.Execute(context.Background(), map[string]any{"path": dir, "pattern": "*.txt"})
	require.NoError(t, err)
	assert.Contains(t, result.Content, "a.txt")
	assert.NotContains(t, result.Content, "b.log")
}

func TestListDirectoryMissingPath(t *testing.T) {
	tool := NewListDirectoryTool()

	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, tools.ErrInvalidArgs)

	result, err := tool.Execute(context.Background(), map[string]any{"path": "/does/not/exist"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReadWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	write := NewWriteFileTool()
	result, err := write.Execute(context.Background(), map[string]any{
		"path":    path,
		"content": "hello world",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	read := NewReadFileTool()
	result, err = read.Execute(context.Background(), map[string]any{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Content)
}

func TestWriteFileAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")

	write := NewWriteFileTool()
	_, err := write.Execute(context.Background(), map[string]any{"path": path, "content": "one"})
	require.NoError(t, err)
	_, err = write.Execute(context.Background(), map[string]any{"path": path, "content": "two", "append": true})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "onetwo", string(data))
}

func TestReadFileNotFound(t *testing.T) {
	tool := NewReadFileTool()

	result, err := tool.Execute(context.Background(), map[string]any{"path": "/no/such/file"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExecuteShellTool(t *testing.T) {
	tool := NewExecuteShellTool()

	result, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "hello")
	assert.Equal(t, 0, result.Metadata["exit_code"])
}

func TestExecuteShellNonZeroExit(t *testing.T) {
	tool := NewExecuteShellTool()

	result, err := tool.Execute(context.Background(), map[string]any{"command": "exit 3"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, 3, result.Metadata["exit_code"])
}

func TestExecuteShellEmptyCommand(t *testing.T) {
	tool := NewExecuteShellTool()

	_, err := tool.Execute(context.Background(), map[string]any{"command": "  "})
	assert.ErrorIs(t, err, tools.ErrInvalidArgs)
}

func TestSleepToolHonorsCancel(t *testing.T) {
	tool := NewSleepTool()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tool.Execute(ctx, map[string]any{"seconds": 30.0})
	assert.Error(t, err)
}
