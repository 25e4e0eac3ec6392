package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxagent/internal/config"
	internalContext "lxagent/internal/context"
	"lxagent/internal/provider"
	"lxagent/internal/router"
	"lxagent/internal/session"
	"lxagent/internal/tools"
	"lxagent/internal/tools/builtin"
)

// doneProvider is an LLM that immediately declares the goal complete.
type doneProvider struct{}

func (doneProvider) Name() string     { return "done" }
func (doneProvider) Models() []string { return []string{"m"} }

func (doneProvider) Generate(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return &provider.Response{Content: "[]"}, nil
}

func (doneProvider) GenerateStream(ctx context.Context, req provider.Request) (<-chan provider.StreamEvent, error) {
	events := make(chan provider.StreamEvent, 2)
	events <- provider.StreamEvent{Delta: "all done"}
	events <- provider.StreamEvent{Done: true}
	close(events)
	return events, nil
}

func newTestServer(t *testing.T) *Server {
	local, err := router.NewLocalProvider("local", 10, []tools.Module{builtin.FileModule()})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Gateway = config.GatewayConfig{Host: "127.0.0.1", Port: 0}
	cfg.Context = config.ContextConfig{MaxRounds: 5, MaxTokens: 8192, ReservedTokens: 1000}
	cfg.Security = config.SecurityConfig{
		ShellConfirm:   true,
		DangerousTools: []string{"execute_shell", "start_process"},
	}

	return NewServer(Deps{
		Config:     cfg,
		Router:     router.New(router.StrategyCapabilityMatch, local),
		Planner:    provider.NewPlanner(doneProvider{}),
		Sessions:   session.NewManager(),
		RunQueue:   session.NewRunQueue(10, time.Minute),
		ContextMgr: internalContext.NewManager(internalContext.DefaultConfig()),
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, true, data["initialized"])
}

func TestToolsListEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doRequest(t, s, http.MethodGet, "/tools/list", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	descriptors := resp.Data.([]any)
	names := map[string]bool{}
	for _, d := range descriptors {
		entry := d.(map[string]any)
		names[entry["name"].(string)] = true
		assert.Equal(t, "local", entry["provider_id"])
	}
	assert.True(t, names["list_directory"])
	assert.True(t, names["read_file"])
}

func TestToolsCallEndpoint(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()

	rec, resp := doRequest(t, s, http.MethodPost, "/tools/call", toolCallRequest{
		ToolName:  "list_directory",
		Arguments: map[string]any{"path": dir},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.SessionID)

	env := resp.Data.(map[string]any)
	assert.Equal(t, "success", env["status"])
}

func TestToolsCallUnknownTool(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doRequest(t, s, http.MethodPost, "/tools/call", toolCallRequest{
		ToolName: "ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestToolsCallValidation(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doRequest(t, s, http.MethodPost, "/tools/call", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
}

func TestMCPServicesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doRequest(t, s, http.MethodGet, "/mcp/services", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	services := resp.Data.([]any)
	require.Len(t, services, 1)
	svc := services[0].(map[string]any)
	assert.Equal(t, "local", svc["name"])
	assert.Equal(t, true, svc["available"])
}

func TestCommandExecuteImmediateCompletion(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doRequest(t, s, http.MethodPost, "/command/execute", commandExecuteRequest{
		Command:      "do nothing",
		AutoContinue: true,
		MaxSteps:     3,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.SessionID)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "success", data["status"])
	assert.Equal(t, "all done", data["final_summary"])

	// The goal is recorded on the session.
	sess, err := s.deps.Sessions.Get(resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "do nothing", sess.Goal)
}

func TestSessionManageLifecycle(t *testing.T) {
	s := newTestServer(t)

	// Create.
	_, created := doRequest(t, s, http.MethodPost, "/session/manage", sessionManageRequest{SessionID: "task-9"})
	require.True(t, created.Success)
	assert.Equal(t, "task-9", created.SessionID)

	// List.
	_, listed := doRequest(t, s, http.MethodPost, "/session/manage", sessionManageRequest{})
	sessions := listed.Data.([]any)
	assert.Len(t, sessions, 1)

	// Delete.
	rec, deleted := doRequest(t, s, http.MethodDelete, "/session/task-9", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deleted.Success)

	rec, _ = doRequest(t, s, http.MethodDelete, "/session/task-9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLLMChatEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.deps.Providers = mustRegistry(t)

	rec, resp := doRequest(t, s, http.MethodPost, "/llm/chat", llmChatRequest{Prompt: "hello"})
	// The fake registry has no reachable backend, so either a gateway
	// error or a response envelope is acceptable shape-wise; the route
	// itself must not 404.
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
	_ = resp
}

func mustRegistry(t *testing.T) *provider.Registry {
	r, err := provider.NewRegistry("main", map[string]provider.ServiceConfig{
		"main": {Type: provider.TypeOpenAI, APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "m", TimeoutSeconds: 1},
	})
	require.NoError(t, err)
	return r
}
