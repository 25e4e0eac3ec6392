package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lxagent/internal/router"
)

func TestSignatureCanonicalOrder(t *testing.T) {
	a := ToolCall{Name: "move_mouse", Arguments: map[string]any{"x": 1, "y": 2}}
	b := ToolCall{Name: "move_mouse", Arguments: map[string]any{"y": 2, "x": 1}}

	assert.Equal(t, a.Signature(), b.Signature())
}

func TestSignatureDistinguishesArguments(t *testing.T) {
	a := ToolCall{Name: "move_mouse", Arguments: map[string]any{"x": 1}}
	b := ToolCall{Name: "move_mouse", Arguments: map[string]any{"x": 2}}
	c := ToolCall{Name: "mouse_click", Arguments: map[string]any{"x": 1}}

	assert.NotEqual(t, a.Signature(), b.Signature())
	assert.NotEqual(t, a.Signature(), c.Signature())
}

func TestSignatureNestedValues(t *testing.T) {
	a := ToolCall{Name: "t", Arguments: map[string]any{
		"opts": map[string]any{"b": 2, "a": 1},
	}}
	b := ToolCall{Name: "t", Arguments: map[string]any{
		"opts": map[string]any{"a": 1, "b": 2},
	}}

	assert.Equal(t, a.Signature(), b.Signature())
}

func TestSignatureNoArguments(t *testing.T) {
	tc := ToolCall{Name: "screenshot"}
	assert.Equal(t, "screenshot()", tc.Signature())
}

func TestHistoryEntryJSONRoundTrip(t *testing.T) {
	entries := []HistoryEntry{
		{
			Command: ToolCall{Name: "read_file", Arguments: map[string]any{"path": "a.txt"}},
			Result:  router.Success("content", "local"),
			Summary: "read the file",
		},
		{
			Command: SystemNotice{Notice: "repeated call rejected"},
			Result:  router.Envelope{Status: router.StatusInfo, Payload: "notice"},
		},
	}

	data, err := json.Marshal(entries)
	require.NoError(t, err)

	var decoded []HistoryEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	call, ok := decoded[0].Command.(ToolCall)
	require.True(t, ok)
	assert.Equal(t, "read_file", call.Name)
	assert.Equal(t, "read the file", decoded[0].Summary)

	notice, ok := decoded[1].Command.(SystemNotice)
	require.True(t, ok)
	assert.Equal(t, "repeated call rejected", notice.Notice)
}
