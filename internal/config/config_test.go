package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
version: "1.0"
llm:
  default: openai
  services:
    openai:
      type: openai
      api_key: sk-test
      model: gpt-4o
      max_tokens: 4096
      temperature: 0.7
      timeout_seconds: 30
    claude:
      type: anthropic
      api_key: sk-ant
      model: claude-sonnet-4-20250514
mcp:
  routing_strategy: priority_first
  services:
    local:
      type: local
      enabled: true
      priority: 10
    cloud:
      type: cloud
      enabled: false
      priority: 5
      url: http://tools.example/mcp
      capabilities: [browser]
      timeout_seconds: 20
      max_retries: 2
      retry_delay_seconds: 3
security:
  shell_confirm: true
  auto_continue_dangerous: false
  dangerous_tools: [execute_shell, start_process, rm_rf]
context:
  max_rounds: 7
  max_tokens: 8192
gateway:
  host: 127.0.0.1
  port: 9000
log:
  level: debug
  format: json
tools:
  scripts:
    - name: add
      description: add two numbers
      script: "args.a + args.b"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Default)
	assert.Len(t, cfg.LLM.Services, 2)
	assert.Equal(t, "gpt-4o", cfg.LLM.Services["openai"].Model)
	assert.Equal(t, 0.7, cfg.LLM.Services["openai"].Temperature)

	assert.Equal(t, "priority_first", cfg.MCP.RoutingStrategy)
	local := cfg.MCP.Services["local"]
	assert.True(t, local.IsEnabled())
	assert.Equal(t, 10, local.Priority)

	cloud := cfg.MCP.Services["cloud"]
	assert.False(t, cloud.IsEnabled())
	assert.Equal(t, []string{"browser"}, cloud.Capabilities)
	assert.Equal(t, 2, cloud.MaxRetries)

	assert.True(t, cfg.Security.ShellConfirm)
	assert.Contains(t, cfg.Security.DangerousTools, "rm_rf")

	assert.Equal(t, 7, cfg.Context.MaxRounds)
	assert.Equal(t, 8192, cfg.Context.MaxTokens)
	assert.Equal(t, "127.0.0.1:9000", cfg.Gateway.Addr())

	require.Len(t, cfg.Tools.Scripts, 1)
	assert.Equal(t, "add", cfg.Tools.Scripts[0].Name)
}

func TestLoadAppliesDefaults(t *testing.T) {
	minimal := `
llm:
  default: main
  services:
    main: {type: openai, api_key: sk, model: gpt-4o}
mcp:
  services:
    local: {type: local}
`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "capability_match", cfg.MCP.RoutingStrategy)
	assert.True(t, cfg.Security.ShellConfirm)
	assert.Equal(t, []string{"execute_shell", "start_process"}, cfg.Security.DangerousTools)
	assert.Equal(t, 10, cfg.Context.MaxRounds)
	assert.Equal(t, 1000, cfg.Context.ReservedTokens)
	assert.Equal(t, "0.0.0.0:8000", cfg.Gateway.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsMissingModel(t *testing.T) {
	bad := `
llm:
  default: main
  services:
    main: {type: openai, api_key: sk}
mcp:
  services:
    local: {type: local}
`
	_, err := Load(writeConfig(t, bad))
	assert.ErrorIs(t, err, ErrNoLLMService)
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	bad := `
llm:
  default: main
  services:
    main: {type: openai, model: gpt-4o}
mcp:
  services:
    local: {type: local}
`
	_, err := Load(writeConfig(t, bad))
	assert.ErrorIs(t, err, ErrNoLLMService)
}

func TestValidateRejectsNoEnabledProviders(t *testing.T) {
	bad := `
llm:
  default: main
  services:
    main: {type: openai, api_key: sk, model: gpt-4o}
mcp:
  services:
    cloud: {type: cloud, enabled: false, url: http://x}
`
	_, err := Load(writeConfig(t, bad))
	assert.ErrorIs(t, err, ErrNoProviderService)
}

func TestValidateRejectsCloudWithoutURL(t *testing.T) {
	bad := `
llm:
  default: main
  services:
    main: {type: openai, api_key: sk, model: gpt-4o}
mcp:
  services:
    cloud: {type: cloud, enabled: true}
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a url")
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	bad := `
llm:
  default: main
  services:
    main: {type: openai, api_key: sk, model: gpt-4o}
mcp:
  routing_strategy: roulette
  services:
    local: {type: local}
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing strategy")
}

func TestLocalLLMNeedsNoCredentials(t *testing.T) {
	ok := `
llm:
  default: ollama
  services:
    ollama: {type: local, base_url: "http://localhost:11434/v1", model: llama3}
mcp:
  services:
    local: {type: local}
`
	cfg, err := Load(writeConfig(t, ok))
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Default)
}
