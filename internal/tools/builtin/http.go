package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lxagent/internal/tools"
)

// FetchURLArgs defines the parameters for the fetch_url tool.
type FetchURLArgs struct {
	URL    string `json:"url" jsonschema:"description=The URL to fetch,required"`
	Method string `json:"method" jsonschema:"description=HTTP method (default GET),enum=GET|POST|HEAD"`
	Body   string `json:"body" jsonschema:"description=Request body for POST"`
}

// FetchURLTool performs an HTTP request and returns the response body.
type FetchURLTool struct {
	tools.BaseTool
	// MaxBodyBytes caps the returned response body.
	MaxBodyBytes int64
	client       *http.Client
}

// NewFetchURLTool creates a new URL fetching tool.
func NewFetchURLTool() *FetchURLTool {
	return &FetchURLTool{
		BaseTool: tools.BaseTool{
			ToolName:        "fetch_url",
			ToolDescription: "Fetch a URL over HTTP and return the response body.",
			ToolParameters:  tools.BuildSchema(FetchURLArgs{}),
		},
		MaxBodyBytes: 512 * 1024,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute performs the request.
func (t *FetchURLTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return tools.ToolResult{}, tools.NewInvalidArgsError(t.Name(), "url is required", nil)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return tools.NewErrorResult("only http and https URLs are supported"), nil
	}

	method := http.MethodGet
	if m, ok := args["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	var body io.Reader
	if b, ok := args["body"].(string); ok && b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.MaxBodyBytes))
	if err != nil {
		return tools.NewErrorResult(fmt.Sprintf("read response: %v", err)), nil
	}

	result := tools.NewResultWithMetadata(string(data), map[string]any{
		"status_code":  resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
	})
	if resp.StatusCode >= 400 {
		result.IsError = true
	}
	return result, nil
}
