// Package context manages the history token budget: estimation, greedy
// newest-first truncation, and inner-string truncation for oversized
// single entries.
package context

import (
	"encoding/json"
	"log/slog"

	"lxagent/internal/agent/types"
)

// TruncationNotice marks every cut site inside a truncated entry.
const TruncationNotice = "[content truncated]"

// innerCaps are the shrinking per-string caps tried when a single entry
// exceeds the whole budget.
var innerCaps = []int{2000, 1000, 500, 200, 100, 50, 20}

// TokenCounter estimates token counts for text. The heuristic is
// approximately 3 characters per token, which works reasonably well for
// mixed English/CJK content; identical input yields identical counts.
type TokenCounter struct{}

// NewTokenCounter creates a new TokenCounter.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// EstimateText estimates the token count for a given text.
func (tc *TokenCounter) EstimateText(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 2) / 3
}

// EstimateValue estimates tokens for any JSON-serializable value.
func (tc *TokenCounter) EstimateValue(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return tc.EstimateText(string(data))
}

// Config holds the context manager budgets.
type Config struct {
	// MaxTokens is the model's total token limit.
	MaxTokens int
	// ReservedTokens is held back for prompt scaffolding and model output.
	ReservedTokens int
}

// DefaultConfig returns the default budgets.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      4096,
		ReservedTokens: 1000,
	}
}

// Manager truncates history lists to fit the available token budget.
type Manager struct {
	counter *TokenCounter
	config  Config
}

// NewManager creates a new context manager.
func NewManager(config Config) *Manager {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultConfig().MaxTokens
	}
	if config.ReservedTokens <= 0 {
		config.ReservedTokens = DefaultConfig().ReservedTokens
	}
	return &Manager{
		counter: NewTokenCounter(),
		config:  config,
	}
}

// Available returns the token budget left for history.
func (m *Manager) Available() int {
	a := m.config.MaxTokens - m.config.ReservedTokens
	if a < 0 {
		return 0
	}
	return a
}

// Truncate retains the longest newest-suffix of history that fits within
// the available budget. If even the newest single entry exceeds the
// budget, its internal long strings are truncated at shrinking caps until
// it fits; if it never fits, an empty history is returned. The boolean
// reports whether anything was cut.
func (m *Manager) Truncate(history []types.HistoryEntry) ([]types.HistoryEntry, bool) {
	return m.TruncateWithBudget(history, m.Available())
}

// TruncateWithBudget is Truncate with an explicit budget; retained suffixes
// are monotone in the budget.
func (m *Manager) TruncateWithBudget(history []types.HistoryEntry, available int) ([]types.HistoryEntry, bool) {
	if len(history) == 0 {
		return nil, false
	}

	// Walk newest to oldest accumulating estimated tokens.
	total := 0
	keepFrom := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		itemTokens := m.counter.EstimateValue(history[i])
		if total+itemTokens > available {
			break
		}
		total += itemTokens
		keepFrom = i
	}

	if keepFrom == len(history) {
		// Not even the newest entry fits: shrink its inner strings.
		newest := history[len(history)-1]
		for _, limit := range innerCaps {
			shrunk, ok := shrinkEntry(newest, limit)
			if !ok {
				break
			}
			if m.counter.EstimateValue(shrunk) <= available {
				slog.Warn("context: newest history entry truncated internally",
					"cap", limit)
				return []types.HistoryEntry{shrunk}, true
			}
		}
		slog.Warn("context: newest history entry too large even after truncation, dropping history")
		return nil, true
	}

	if keepFrom == 0 {
		return history, false
	}

	slog.Warn("context: history truncated",
		"dropped", keepFrom, "kept", len(history)-keepFrom, "tokens", total)
	out := make([]types.HistoryEntry, len(history)-keepFrom)
	copy(out, history[keepFrom:])
	return out, true
}

// shrinkEntry returns a copy of the entry with every string longer than
// cap cut and marked. The JSON round trip also guarantees the copy shares
// no mutable state with the original.
func shrinkEntry(entry types.HistoryEntry, maxLen int) (types.HistoryEntry, bool) {
	data, err := json.Marshal(entry)
	if err != nil {
		return entry, false
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return entry, false
	}

	shrunk := truncateLongStrings(generic, maxLen)

	data, err = json.Marshal(shrunk)
	if err != nil {
		return entry, false
	}
	var out types.HistoryEntry
	if err := json.Unmarshal(data, &out); err != nil {
		return entry, false
	}
	return out, true
}

// truncateLongStrings recursively cuts strings longer than cap, appending
// the truncation notice at every cut site.
func truncateLongStrings(v any, maxLen int) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = truncateLongStrings(item, maxLen)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = truncateLongStrings(item, maxLen)
		}
		return out
	case string:
		if len(val) > maxLen {
			return val[:maxLen] + TruncationNotice
		}
		return val
	default:
		return v
	}
}
