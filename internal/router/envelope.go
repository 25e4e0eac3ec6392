package router

import (
	"encoding/json"
	"fmt"
	"strings"

	"lxagent/internal/mcp/protocol"
)

// Status enumerates the normalized result states.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
	StatusInfo      Status = "info"
)

// Envelope is the normalized record every dispatch path returns,
// regardless of the provider's native result shape. The constructors in
// this file are the only place heterogeneous inputs are accepted.
type Envelope struct {
	Status       Status `json:"status"`
	Payload      any    `json:"payload"`
	ProviderID   string `json:"provider_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Fallback     bool   `json:"fallback,omitempty"`
}

// Success creates a success envelope with the given payload.
func Success(payload any, providerID string) Envelope {
	return Envelope{
		Status:     StatusSuccess,
		Payload:    NormalizeJSON(payload),
		ProviderID: providerID,
	}
}

// Error creates an error envelope with the given message.
func Error(message, providerID string) Envelope {
	return Envelope{
		Status:       StatusError,
		Payload:      message,
		ProviderID:   providerID,
		ErrorMessage: message,
	}
}

// Cancelled creates a cancelled envelope.
func Cancelled(reason, providerID string) Envelope {
	return Envelope{
		Status:       StatusCancelled,
		Payload:      reason,
		ProviderID:   providerID,
		ErrorMessage: reason,
	}
}

// Info creates an info envelope with the given payload.
func Info(payload any, providerID string) Envelope {
	return Envelope{
		Status:     StatusInfo,
		Payload:    NormalizeJSON(payload),
		ProviderID: providerID,
	}
}

// FromMap normalizes a mapping-shaped result. A recognized "status" field
// passes through (anything else means success). The payload is the
// "payload" field, else the "result" field, else the map without its
// "status" and "error" keys.
func FromMap(m map[string]any, providerID string) Envelope {
	env := Envelope{
		Status:     StatusSuccess,
		ProviderID: providerID,
	}

	if s, ok := m["status"].(string); ok {
		switch Status(s) {
		case StatusSuccess, StatusError, StatusCancelled, StatusInfo:
			env.Status = Status(s)
		}
	}

	if msg, ok := m["error"].(string); ok && msg != "" {
		env.ErrorMessage = msg
	}

	switch {
	case m["payload"] != nil:
		env.Payload = NormalizeJSON(m["payload"])
	case m["result"] != nil:
		env.Payload = NormalizeJSON(m["result"])
	default:
		rest := make(map[string]any, len(m))
		for k, v := range m {
			if k == "status" || k == "error" {
				continue
			}
			rest[k] = v
		}
		env.Payload = NormalizeJSON(rest)
	}

	if env.Status == StatusError && env.ErrorMessage == "" {
		if s, ok := env.Payload.(string); ok {
			env.ErrorMessage = s
		}
	}

	return env
}

// FromCallToolResult normalizes a structured remote tool result: the
// textual content blocks are concatenated into a single string, and any
// structured-content blob is appended as a trailing annotation.
func FromCallToolResult(r *protocol.CallToolResult, providerID string) Envelope {
	var text strings.Builder
	for _, block := range r.Content {
		if block.IsText() {
			text.WriteString(block.Text)
		}
	}

	resultText := text.String()
	if r.StructuredContent != nil {
		if data, err := json.Marshal(NormalizeJSON(r.StructuredContent)); err == nil {
			if resultText != "" {
				resultText += "\n"
			}
			resultText += "structured_content: " + string(data)
		}
	}

	env := Envelope{
		Status:     StatusSuccess,
		Payload:    resultText,
		ProviderID: providerID,
	}
	if r.IsError {
		env.Status = StatusError
		env.ErrorMessage = resultText
	}
	return env
}

// NormalizeJSON re-encodes a value so nothing non-serializable remains:
// foreign numeric wrappers are flattened to plain JSON numbers, structs to
// maps. Values that cannot be marshaled degrade to their string form.
func NormalizeJSON(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}
