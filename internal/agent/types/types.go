// Package types defines the records exchanged between the step loop, the
// model interface and the API surface.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"lxagent/internal/router"
)

// ToolCall is a model-proposed tool invocation.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Signature returns the canonical identity of a tool call: the name plus
// the sorted argument pairs, so semantically identical calls hash
// identically regardless of argument order.
func (tc ToolCall) Signature() string {
	keys := make([]string, 0, len(tc.Arguments))
	for k := range tc.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(tc.Name)
	b.WriteString("(")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		// encoding/json sorts map keys, so nested values canonicalize too.
		data, err := json.Marshal(router.NormalizeJSON(tc.Arguments[k]))
		if err != nil {
			b.WriteString(fmt.Sprintf("%v", tc.Arguments[k]))
		} else {
			b.Write(data)
		}
	}
	b.WriteString(")")
	return b.String()
}

// SystemNotice is a synthetic history command recording a guard action.
type SystemNotice struct {
	Notice string `json:"system_notice"`
}

// HistoryEntry is one step's record: the command (a ToolCall or a
// SystemNotice), its normalized result, and the intermediate summary.
type HistoryEntry struct {
	Command any             `json:"command"`
	Result  router.Envelope `json:"result"`
	Summary string          `json:"summary,omitempty"`
}

// UnmarshalJSON decodes the command back into a concrete type so that
// history round-trips through JSON (sessions are handed over the API).
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Command json.RawMessage `json:"command"`
		Result  router.Envelope `json:"result"`
		Summary string          `json:"summary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Result = raw.Result
	h.Summary = raw.Summary

	if len(raw.Command) == 0 {
		return nil
	}
	var notice SystemNotice
	if err := json.Unmarshal(raw.Command, &notice); err == nil && notice.Notice != "" {
		h.Command = notice
		return nil
	}
	var call ToolCall
	if err := json.Unmarshal(raw.Command, &call); err == nil && call.Name != "" {
		h.Command = call
		return nil
	}
	var generic any
	if err := json.Unmarshal(raw.Command, &generic); err != nil {
		return err
	}
	h.Command = generic
	return nil
}

// RunStatus enumerates the terminal states of a loop invocation.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunStopped RunStatus = "stopped"
	RunError   RunStatus = "error"
)

// Result is the step loop's output.
type Result struct {
	Status       RunStatus      `json:"status"`
	Results      []HistoryEntry `json:"results"`
	FinalSummary string         `json:"final_summary"`
}

// DecisionKind enumerates the user commands at the decision gate.
type DecisionKind string

const (
	DecisionContinue DecisionKind = "continue"
	DecisionStop     DecisionKind = "stop"
	DecisionEdit     DecisionKind = "edit"
	DecisionReplan   DecisionKind = "replan"
	DecisionClear    DecisionKind = "clear"
)

// Decision is a user command read from the interaction channel.
type Decision struct {
	Kind DecisionKind `json:"kind"`
	// Goal carries the replacement goal for DecisionEdit.
	Goal string `json:"goal,omitempty"`
}
