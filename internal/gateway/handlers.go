package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"lxagent/internal/agent"
	"lxagent/internal/agent/types"
	"lxagent/internal/gateway/websocket"
	"lxagent/internal/provider"
	"lxagent/internal/session"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{
		"status":      "ok",
		"initialized": true,
	})
}

// handleToolsList returns the aggregated catalog.
func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.deps.Router.ListTools(r.Context()))
}

// toolCallRequest is the body of POST /tools/call.
type toolCallRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	SessionID string         `json:"session_id,omitempty"`
}

// handleToolsCall dispatches a single tool invocation.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request) {
	var req toolCallRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ToolName == "" {
		writeError(w, http.StatusBadRequest, "tool_name is required")
		return
	}

	sess := s.deps.Sessions.GetOrCreate(req.SessionID)

	env, err := s.deps.Router.Call(r.Context(), req.ToolName, req.Arguments)
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiResponse{
			Success:   false,
			Error:     err.Error(),
			SessionID: sess.ID,
		})
		return
	}

	s.deps.Sessions.Touch(sess.ID)
	s.hub.Broadcast(websocket.Event{
		Type:      "tool_result",
		SessionID: sess.ID,
		Data:      env,
	})
	writeJSON(w, http.StatusOK, apiResponse{
		Success:   true,
		Data:      env,
		SessionID: sess.ID,
	})
}

// handleMCPServices lists the configured providers.
func (s *Server) handleMCPServices(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.deps.Router.Services())
}

// handleMCPCapabilities returns the union of provider capabilities.
func (s *Server) handleMCPCapabilities(w http.ResponseWriter, r *http.Request) {
	set := make(map[string]struct{})
	for _, svc := range s.deps.Router.Services() {
		if !svc.Available {
			continue
		}
		for _, c := range svc.Capabilities {
			set[c] = struct{}{}
		}
	}
	caps := make([]string, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	writeData(w, caps)
}

// llmChatRequest is the body of POST /llm/chat.
type llmChatRequest struct {
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// handleLLMChat runs a raw completion against the default LLM service.
func (s *Server) handleLLMChat(w http.ResponseWriter, r *http.Request) {
	var req llmChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	p, err := s.deps.Providers.Default()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	request := provider.Request{
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.Stream {
		events, err := p.GenerateStream(r.Context(), request)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		flusher, _ := w.(http.Flusher)
		for event := range events {
			if event.Err != nil {
				fmt.Fprintf(w, "\n[stream error: %v]", event.Err)
				return
			}
			if event.Delta != "" {
				fmt.Fprint(w, event.Delta)
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
		return
	}

	resp, err := p.Generate(r.Context(), request)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeData(w, map[string]any{
		"response": resp.Content,
		"stream":   false,
	})
}

// commandExecuteRequest is the body of POST /command/execute.
type commandExecuteRequest struct {
	Command      string `json:"command"`
	SessionID    string `json:"session_id,omitempty"`
	AutoContinue bool   `json:"auto_continue"`
	MaxSteps     int    `json:"max_steps"`
}

// handleCommandExecute runs the step loop for a goal. Runs for the same
// session serialize through the run queue.
func (s *Server) handleCommandExecute(w http.ResponseWriter, r *http.Request) {
	var req commandExecuteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	sess := s.deps.Sessions.GetOrCreate(req.SessionID)
	sessionID := sess.ID

	interactor := &agent.AutoInteractor{
		AllowDangerous: s.deps.Config.Security.AutoContinueDangerous,
		Sink: func(chunk string) {
			s.hub.Broadcast(websocket.Event{
				Type:      "chunk",
				SessionID: sessionID,
				Data:      chunk,
			})
		},
	}

	// API callers cannot answer per-step prompts; the non-interactive
	// channel answers every decision gate with continue.
	loop := agent.New(
		s.deps.Router,
		s.deps.Planner,
		s.deps.ContextMgr,
		interactor,
		s.loopConfig(req.AutoContinue, req.MaxSteps),
	)
	loop.OnClear(func() {
		_ = s.deps.Sessions.ClearHistory(sessionID)
	})

	var result types.Result
	runErr := s.deps.RunQueue.Run(sessionID, r.Context(), func(ctx context.Context) error {
		current, err := s.deps.Sessions.Get(sessionID)
		if err != nil {
			return err
		}
		result = loop.Run(ctx, req.Command, current.History)
		return s.deps.Sessions.Update(sessionID, req.Command, result.Results)
	})
	if runErr != nil {
		if runErr == session.ErrQueueFull || runErr == session.ErrSessionClosed {
			writeError(w, http.StatusConflict, fmt.Sprintf("session %s is busy: %v", sessionID, runErr))
			return
		}
		writeError(w, http.StatusInternalServerError, runErr.Error())
		return
	}

	s.hub.Broadcast(websocket.Event{
		Type:      "status",
		SessionID: sessionID,
		Data:      string(result.Status),
	})
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data: map[string]any{
			"status":        result.Status,
			"results":       result.Results,
			"final_summary": result.FinalSummary,
		},
		SessionID: sessionID,
	})
}

// sessionManageRequest is the body of POST /session/manage.
type sessionManageRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	ClearHistory bool   `json:"clear_history,omitempty"`
}

// handleSessionManage creates, fetches or clears sessions. Without a
// session id the full session list is returned.
func (s *Server) handleSessionManage(w http.ResponseWriter, r *http.Request) {
	var req sessionManageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.SessionID == "" && !req.ClearHistory {
		writeData(w, s.deps.Sessions.List())
		return
	}

	sess := s.deps.Sessions.GetOrCreate(req.SessionID)
	if req.ClearHistory {
		if err := s.deps.Sessions.ClearHistory(sess.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sess, _ = s.deps.Sessions.Get(sess.ID)
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success:   true,
		Data:      sess,
		SessionID: sess.ID,
	})
}

// handleSessionDelete destroys a session.
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Sessions.Delete(id); err != nil {
		if err == session.ErrSessionNotFound {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success:   true,
		Data:      map[string]any{"deleted": id},
		SessionID: id,
	})
}
