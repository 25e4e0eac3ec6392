package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpRedactsSecrets(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	dump, err := cfg.Dump()
	require.NoError(t, err)
	assert.NotContains(t, dump, "sk-test")
	assert.NotContains(t, dump, "sk-ant")
	assert.Contains(t, dump, "gpt-4o")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	path := writeConfig(t, "llm: {}")
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.LLM.Default, reloaded.LLM.Default)
	assert.Equal(t, cfg.Context.MaxRounds, reloaded.Context.MaxRounds)
}

func TestWatcherNotifiesOnChange(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	updated := strings.Replace(sampleConfig, "max_rounds: 7", "max_rounds: 9", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))

	select {
	case cfg := <-changed:
		assert.Equal(t, 9, cfg.Context.MaxRounds)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}

func TestWatcherSkipsInvalidReload(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond

	fired := make(chan struct{}, 1)
	w.OnChange(func(*Config) { fired <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// A config that fails validation must not reach subscribers.
	require.NoError(t, os.WriteFile(path, []byte("llm: {}\n"), 0600))

	select {
	case <-fired:
		t.Fatal("invalid config was delivered")
	case <-time.After(500 * time.Millisecond):
	}
}
