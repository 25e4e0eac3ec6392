package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateToolError(t *testing.T) {
	err := NewDuplicateToolError("fetch_url", "http")

	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.NotErrorIs(t, err, ErrInvalidArgs)
	assert.Contains(t, err.Error(), `"fetch_url"`)
	assert.Contains(t, err.Error(), "http")
}

func TestInvalidArgsErrorWrapsCause(t *testing.T) {
	cause := errors.New("path escapes sandbox")
	err := NewInvalidArgsError("read_file", "bad path", cause)

	assert.ErrorIs(t, err, ErrInvalidArgs)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "read_file")
	assert.Contains(t, err.Error(), "bad path")
	assert.Contains(t, err.Error(), "path escapes sandbox")
}

func TestInvalidArgsErrorWithoutCause(t *testing.T) {
	err := NewInvalidArgsError("sleep", "seconds must be positive", nil)

	assert.ErrorIs(t, err, ErrInvalidArgs)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "sleep", toolErr.Tool)
}
