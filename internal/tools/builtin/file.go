package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lxagent/internal/tools"
)

// ListDirectoryArgs defines the parameters for the list_directory tool.
type ListDirectoryArgs struct {
	Path    string `json:"path" jsonschema:"description=The directory path to list,required"`
	Pattern string `json:"pattern" jsonschema:"description=Glob pattern to filter entries (e.g. *.txt)"`
}

// ListDirectoryTool lists directory contents.
type ListDirectoryTool struct {
	tools.BaseTool
	// MaxEntries is the maximum number of entries to return.
	MaxEntries int
}

// NewListDirectoryTool creates a new directory listing tool.
func NewListDirectoryTool() *ListDirectoryTool {
	return &ListDirectoryTool{
		BaseTool: tools.BaseTool{
			ToolName:        "list_directory",
			ToolDescription: "List the contents of a directory. Returns entry names, types, sizes and modification times.",
			ToolParameters:  tools.BuildSchema(ListDirectoryArgs{}),
		},
		MaxEntries: 1000,
	}
}

// Execute lists the directory contents.
func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "path is required", nil)
	}
	pattern, _ := args["pattern"].(string)

	select {
	case <-ctx.Done():
		return tools.ToolResult{}, ctx.Err()
	default:
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.NewErrorResult(fmt.Sprintf("directory not found: %s", path)), nil
		}
		return tools.NewErrorResult(fmt.Sprintf("failed to stat path: %v", err)), nil
	}
	if !info.IsDir() {
		return tools.NewErrorResult(fmt.Sprintf("path is not a directory: %s", path)), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("failed to read directory: %v", err)), nil
	}

	var out strings.Builder
	count := 0
	for _, entry := range entries {
		if count >= t.MaxEntries {
			out.WriteString(fmt.Sprintf("\n... (%d more entries)", len(entries)-count))
			break
		}

		name := entry.Name()
		if pattern != "" {
			matched, err := filepath.Match(pattern, name)
			if err != nil {
				return tools.NewErrorResult(fmt.Sprintf("invalid pattern: %v", err)), nil
			}
			if !matched {
				continue
			}
		}

		if count > 0 {
			out.WriteString("\n")
		}

		fi, err := entry.Info()
		if err != nil {
			out.WriteString(fmt.Sprintf("%s [error getting info]", name))
			count++
			continue
		}

		typeStr := "file"
		if entry.IsDir() {
			typeStr = "dir"
			name += "/"
		} else if fi.Mode()&os.ModeSymlink != 0 {
			typeStr = "link"
		}
		out.WriteString(fmt.Sprintf("%s  %s  %d bytes  %s",
			name, typeStr, fi.Size(), fi.ModTime().Format("2006-01-02 15:04:05")))
		count++
	}

	if count == 0 {
		if pattern != "" {
			return tools.NewSuccessResult(fmt.Sprintf("No entries matching pattern '%s' in %s", pattern, path)), nil
		}
		return tools.NewSuccessResult(fmt.Sprintf("Directory is empty: %s", path)), nil
	}

	return tools.NewResultWithMetadata(out.String(), map[string]any{"count": count}), nil
}

// ReadFileArgs defines the parameters for the read_file tool.
type ReadFileArgs struct {
	Path string `json:"path" jsonschema:"description=The file path to read,required"`
}

// ReadFileTool reads a text file.
type ReadFileTool struct {
	tools.BaseTool
	// MaxBytes caps how much of the file is returned.
	MaxBytes int
}

// NewReadFileTool creates a new file reading tool.
func NewReadFileTool() *ReadFileTool {
	return &ReadFileTool{
		BaseTool: tools.BaseTool{
			ToolName:        "read_file",
			ToolDescription: "Read the contents of a text file.",
			ToolParameters:  tools.BuildSchema(ReadFileArgs{}),
		},
		MaxBytes: 256 * 1024,
	}
}

// Execute reads the file.
func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "path is required", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tools.NewErrorResult(fmt.Sprintf("file not found: %s", path)), nil
		}
		return tools.NewErrorResult(fmt.Sprintf("failed to read file: %v", err)), nil
	}

	truncated := false
	if len(data) > t.MaxBytes {
		data = data[:t.MaxBytes]
		truncated = true
	}

	content := string(data)
	if truncated {
		content += "\n[content truncated]"
	}
	return tools.NewResultWithMetadata(content, map[string]any{
		"bytes":     len(data),
		"truncated": truncated,
	}), nil
}

// WriteFileArgs defines the parameters for the write_file tool.
type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"description=The file path to write,required"`
	Content string `json:"content" jsonschema:"description=The content to write,required"`
	Append  bool   `json:"append" jsonschema:"description=Append instead of overwrite"`
}

// WriteFileTool writes a text file, creating parent directories as needed.
type WriteFileTool struct {
	tools.BaseTool
}

// NewWriteFileTool creates a new file writing tool.
func NewWriteFileTool() *WriteFileTool {
	return &WriteFileTool{
		BaseTool: tools.BaseTool{
			ToolName:        "write_file",
			ToolDescription: "Write content to a file. Creates parent directories when missing.",
			ToolParameters:  tools.BuildSchema(WriteFileArgs{}),
		},
	}
}

// Execute writes the file.
func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "path is required", nil)
	}
	content, _ := args["content"].(string)
	appendMode, _ := args["append"].(bool)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return tools.NewErrorResult(fmt.Sprintf("failed to create directories: %v", err)), nil
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("failed to open file: %v", err)), nil
	}
	defer f.Close()

	n, err := f.WriteString(content)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("failed to write file: %v", err)), nil
	}

	return tools.NewResultWithMetadata(fmt.Sprintf("Wrote %d bytes to %s", n, path), map[string]any{
		"bytes": n,
	}), nil
}
