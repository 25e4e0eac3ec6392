package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryBuildsServices(t *testing.T) {
	r, err := NewRegistry("main", map[string]ServiceConfig{
		"main": {Type: TypeOpenAI, APIKey: "sk-test", Model: "gpt-4o"},
		"alt":  {Type: TypeAnthropic, APIKey: "sk-ant", Model: "claude-sonnet-4-20250514"},
	})
	require.NoError(t, err)

	p, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "main", p.Name())

	alt, err := r.Get("alt")
	require.NoError(t, err)
	assert.Equal(t, "alt", alt.Name())
	assert.Len(t, r.Names(), 2)
}

func TestNewRegistryLocalNeedsNoKey(t *testing.T) {
	r, err := NewRegistry("ollama", map[string]ServiceConfig{
		"ollama": {Type: TypeLocal, BaseURL: "http://localhost:11434/v1", Model: "llama3"},
	})
	require.NoError(t, err)

	_, err = r.Default()
	assert.NoError(t, err)
}

func TestNewRegistryRejectsEmptyTable(t *testing.T) {
	_, err := NewRegistry("main", nil)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestNewRegistryRejectsMissingDefault(t *testing.T) {
	_, err := NewRegistry("missing", map[string]ServiceConfig{
		"main": {Type: TypeOpenAI, APIKey: "sk", Model: "gpt-4o"},
	})
	assert.Error(t, err)
}

func TestNewRegistryRejectsUnknownType(t *testing.T) {
	_, err := NewRegistry("main", map[string]ServiceConfig{
		"main": {Type: "quantum", Model: "q1"},
	})
	assert.Error(t, err)
}

func TestGetUnknownService(t *testing.T) {
	r, err := NewRegistry("main", map[string]ServiceConfig{
		"main": {Type: TypeOpenAI, APIKey: "sk", Model: "gpt-4o"},
	})
	require.NoError(t, err)

	_, err = r.Get("ghost")
	assert.ErrorIs(t, err, ErrNoProvider)

	// Empty name resolves to the default.
	p, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "main", p.Name())
}
